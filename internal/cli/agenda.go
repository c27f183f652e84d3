package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/app"
	"github.com/rbright/weekview/internal/datewindow"
)

func addAgenda(topLevel *cobra.Command) {
	var (
		from   string
		days   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print events and reminders for a range of days.",
		Example: `
weekview agenda
weekview agenda --from 2026-10-26 --days 3
weekview agenda -o json
`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1, got %d", days)
			}
			if from != "" {
				if _, err := datewindow.ParseKey(from, time.Local); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			return validateFormat(output, formatText, formatJSON, formatYAML)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Bootstrap(ctx); err != nil {
					return err
				}

				start := time.Now()
				if from != "" {
					start, _ = datewindow.ParseKey(from, time.Local)
				}

				loaded, loadErr := a.Agenda(ctx, start, days)
				if err := writeAgenda(cmd.OutOrStdout(), output, loaded, time.Now()); err != nil {
					return err
				}
				return loadErr
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day to print as YYYY-MM-DD. Defaults to today.")
	cmd.Flags().IntVarP(&days, "days", "d", 7, "Number of days to print.")
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "Output format. One of 'text', 'json' or 'yaml'.")

	topLevel.AddCommand(cmd)
}

func writeAgenda(w io.Writer, format string, days []agenda.Day, now time.Time) error {
	if format != formatText {
		if days == nil {
			days = []agenda.Day{}
		}
		return encode(w, format, days)
	}

	header := color.New(color.Bold, color.Underline)
	today := color.New(color.Bold, color.FgBlue)
	faint := color.New(color.Faint)

	var b strings.Builder
	for idx, day := range days {
		if idx > 0 {
			b.WriteString("\n")
		}
		name, isToday := dayName(day.Day, now)
		label := name + " " + day.Day.Format("02/01/2006")
		if isToday {
			b.WriteString(today.Sprint(label))
		} else {
			b.WriteString(header.Sprint(label))
		}
		b.WriteString("\n")

		items := agenda.Flatten(day)
		if len(items) == 0 {
			b.WriteString("  ")
			b.WriteString(faint.Sprint("NO EVENTS OR REMINDERS"))
			b.WriteString("\n")
			continue
		}
		for _, item := range items {
			b.WriteString("  ")
			b.WriteString(agendaLine(item, faint))
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write agenda: %w", err)
	}
	return nil
}

func dayName(day, now time.Time) (string, bool) {
	switch {
	case datewindow.SameDay(day, now):
		return "TODAY", true
	case datewindow.SameDay(day, datewindow.AddDays(now, 1)):
		return "TOMORROW", false
	default:
		return strings.ToUpper(day.Format("Monday")), false
	}
}

func agendaLine(item agenda.Item, faint *color.Color) string {
	switch item.Kind {
	case agenda.KindEvent:
		event := item.Event
		when := "All Day"
		if !event.AllDay {
			when = event.Start.Format("15:04") + " - " + event.End.Format("15:04")
		}
		line := fmt.Sprintf("%-13s  %s", when, event.Title)
		if location := event.LocationLabel(); location != "" {
			line += faint.Sprint(" · " + location)
		}
		return line

	case agenda.KindReminder:
		reminder := item.Reminder
		mark := "☐"
		if reminder.Completed {
			mark = "☑"
		}
		when := ""
		if reminder.Due != nil && !reminder.AllDay {
			when = reminder.Due.Format("15:04")
		}
		line := fmt.Sprintf("%s %-11s  %s", mark, when, reminder.Title)
		if reminder.ListName != "" {
			line += faint.Sprint(" (" + reminder.ListName + ")")
		}
		return line
	}
	return ""
}
