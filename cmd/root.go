// Package cmd wires the friendswall command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/friendswall/friendswall-go/cmd/config"
	"github.com/friendswall/friendswall-go/cmd/feedback"
	"github.com/friendswall/friendswall-go/cmd/serve"
	"github.com/friendswall/friendswall-go/internal/buildinfo"
	"github.com/friendswall/friendswall-go/internal/conf"
)

// RootCommand creates and returns the root command. Settings are loaded once
// flags are parsed and shared with every subcommand through settings.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "friendswall",
		Short:        "FriendsWall social backend",
		Version:      build.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				conf.SetConfigFile(configFile)
			}
			loaded, err := conf.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			*settings = *loaded
			return nil
		},
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings, build),
		feedback.Command(settings),
		config.Command(settings),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search the standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
