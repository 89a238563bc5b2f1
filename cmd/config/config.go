// Package config implements `friendswall config`, which inspects the effective settings.
package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendswall/friendswall-go/internal/conf"
)

const redacted = "[REDACTED]"

// Command returns the config command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(dumpCommand(settings), pathCommand(settings))
	return cmd
}

func dumpCommand(settings *conf.Settings) *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := *settings
			if !showSecrets {
				out = redact(out)
			}
			data, err := yaml.Marshal(&out)
			if err != nil {
				return fmt.Errorf("error marshaling settings to YAML: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print passwords, secrets and DSNs in clear text")
	return cmd
}

func pathCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the path of the loaded config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), settings.ConfigFile)
			return err
		},
	}
}

// redact blanks every credential in a copy of s.
func redact(s conf.Settings) conf.Settings {
	mask := func(v *string) {
		if *v != "" {
			*v = redacted
		}
	}
	mask(&s.Security.SessionSecret)
	mask(&s.Database.MySQL.Password)
	mask(&s.MQTT.Password)
	mask(&s.Sentry.DSN)

	if len(s.Feedback.Notify.URLs) > 0 {
		urls := make([]string, len(s.Feedback.Notify.URLs))
		for i := range urls {
			urls[i] = redacted
		}
		s.Feedback.Notify.URLs = urls
	}
	return s
}
