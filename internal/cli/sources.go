package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/app"
)

func addCalendars(topLevel *cobra.Command) {
	var output string
	cmd := &cobra.Command{
		Use:     "calendars",
		Aliases: []string{"cals"},
		Short:   "List calendars and whether they are shown.",
		Args:    cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateFormat(output, formatText, formatJSON, formatYAML)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Bootstrap(ctx); err != nil {
					return err
				}
				calendars, _, err := a.Catalog(ctx)
				if err != nil {
					return err
				}
				return writeSources(cmd.OutOrStdout(), output, calendars, a.Settings.Snapshot().Calendars)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "Output format. One of 'text', 'json' or 'yaml'.")
	topLevel.AddCommand(cmd)
}

func addReminderLists(topLevel *cobra.Command) {
	var output string
	cmd := &cobra.Command{
		Use:     "reminder-lists",
		Aliases: []string{"lists"},
		Short:   "List reminder lists and whether they are shown.",
		Args:    cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateFormat(output, formatText, formatJSON, formatYAML)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Bootstrap(ctx); err != nil {
					return err
				}
				_, lists, err := a.Catalog(ctx)
				if err != nil {
					return err
				}
				return writeSources(cmd.OutOrStdout(), output, lists, a.Settings.Snapshot().ReminderLists)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "Output format. One of 'text', 'json' or 'yaml'.")
	topLevel.AddCommand(cmd)
}

// writeSources prints sources with their Selected flag resolved against the
// current selection.
func writeSources(w io.Writer, format string, sources []agenda.Calendar, selection agenda.Selection) error {
	resolved := make([]agenda.Calendar, 0, len(sources))
	for _, source := range sources {
		source.Selected = selection.Contains(source.UID)
		resolved = append(resolved, source)
	}

	if format != formatText {
		return encode(w, format, resolved)
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("", color.New(color.Bold).Sprint("UID"), color.New(color.Bold).Sprint("NAME"), color.New(color.Bold).Sprint("ACCOUNT"))
	for _, source := range resolved {
		mark := "[ ]"
		if source.Selected {
			mark = color.GreenString("[x]")
		}
		name := source.Name
		if !source.Enabled {
			name = color.New(color.Faint).Sprint(name + " (disabled)")
		}
		tbl.AddRow(mark, source.UID, name, source.AccountName)
	}

	if _, err := fmt.Fprintln(w, tbl); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}
