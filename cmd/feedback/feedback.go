// Package feedback implements the operator commands for stored help-form feedback.
package feedback

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// descriptionWidth truncates long messages in the list output.
const descriptionWidth = 60

// Command returns the feedback command with its list and delete subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "List or delete feedback submitted through the help form",
	}

	cmd.AddCommand(listCommand(settings), deleteCommand(settings))
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored feedback, one page at a time",
		Example: `  friendswall feedback list
  friendswall feedback list --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(settings, func(ds datastore.Interface) error {
				rows, err := ds.ListFeedback(cmd.Context(), page)
				if err != nil {
					return err
				}
				return printFeedback(cmd.OutOrStdout(), rows)
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number, starting at 1")
	return cmd
}

func deleteCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one feedback entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return errors.Newf("invalid feedback id %q", args[0]).
					Component("cmd").
					Category(errors.CategoryValidation).
					Build()
			}

			return withStore(settings, func(ds datastore.Interface) error {
				if err := ds.DeleteFeedback(cmd.Context(), uint(id)); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted feedback %d\n", id)
				return err
			})
		},
	}
}

// withStore opens the configured datastore for the duration of fn.
func withStore(settings *conf.Settings, fn func(ds datastore.Interface) error) error {
	log := logger.NewConsoleLogger("datastore", logger.LogLevelWarn)
	ds := datastore.New(settings, log)
	if ds == nil {
		return errors.Newf("no database backend enabled").
			Component("cmd").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = ds.Close() }()

	return fn(ds)
}

func printFeedback(w io.Writer, rows []datastore.Feedback) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no feedback")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tDESCRIPTION")
	for _, fb := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", fb.ID, fb.Name, fb.Email, summarize(fb.Description))
	}
	return tw.Flush()
}

// summarize flattens whitespace and truncates s to descriptionWidth runes.
func summarize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= descriptionWidth {
		return s
	}
	return string(runes[:descriptionWidth-3]) + "..."
}
