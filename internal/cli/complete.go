package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rbright/weekview/internal/app"
)

func addComplete(topLevel *cobra.Command) {
	var (
		listID string
		undo   bool
	)
	cmd := &cobra.Command{
		Use:   "complete <reminder-uid>",
		Short: "Mark a reminder completed, or open again with --undo.",
		Example: `
weekview complete 20261019T090000-rent --list inbox
weekview complete 20261019T090000-rent --list inbox --undo
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("expected one reminder uid")
			}
			if listID == "" {
				return errors.New("--list is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				item, err := a.Complete(ctx, listID, args[0], !undo)
				if err != nil {
					return err
				}
				state := "Completed"
				if !item.Completed {
					state = "Reopened"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, fallbackTitle(item.Title, item.ID))
				return a.Refresh(ctx)
			})
		},
	}
	cmd.Flags().StringVarP(&listID, "list", "l", "", "UID of the reminder list holding the reminder.")
	cmd.Flags().BoolVar(&undo, "undo", false, "Mark the reminder as not completed.")
	topLevel.AddCommand(cmd)
}

func fallbackTitle(title, id string) string {
	if title == "" {
		return id
	}
	return title
}
