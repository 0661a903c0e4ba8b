package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrijr/comgr/pkg/api"
)

var errJournalDisabled = errors.New("the action journal is disabled; set COMGR_JOURNAL=sqlite and COMGR_JOURNAL_DSN")

// newJournalCommand creates the "journal" subcommand that prints recorded
// action events, either the latest ones or those of one run.
func newJournalCommand(opts *Options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal [RUN_ID]",
		Short: "Show the action journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer stack.Close()
			if stack.Journal == nil {
				return errJournalDisabled
			}

			var events []api.ActionEvent
			if len(args) == 1 {
				events, err = stack.Journal.ListEvents(cmd.Context(), args[0])
			} else {
				events, err = stack.Journal.ListRecent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent events to show (0 for all)")
	return cmd
}

func printEvents(w io.Writer, events []api.ActionEvent) error {
	for _, ev := range events {
		_, err := fmt.Fprintf(w, "%s %s %-15s %-34s %d %s\n",
			ev.At.UTC().Format(time.RFC3339), ev.RunID, ev.Type, ev.Action, ev.Item, ev.Detail)
		if err != nil {
			return err
		}
	}
	return nil
}
