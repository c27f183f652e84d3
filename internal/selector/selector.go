package selector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rbright/weekview/internal/agenda"
)

var ErrSelectionCancelled = errors.New("selection cancelled")

// Dialog describes one checklist: which sources to offer and how to title it.
type Dialog struct {
	Title   string
	Text    string
	Sources []agenda.Calendar
	Current agenda.Selection
}

func CalendarsDialog(calendars []agenda.Calendar, current agenda.Selection) Dialog {
	return Dialog{
		Title:   "Weekview Calendars",
		Text:    "Select calendars to show in the week view",
		Sources: calendars,
		Current: current,
	}
}

func ReminderListsDialog(lists []agenda.Calendar, current agenda.Selection) Dialog {
	return Dialog{
		Title:   "Weekview Reminder Lists",
		Text:    "Select reminder lists to show in the week view",
		Sources: lists,
		Current: current,
	}
}

// Select runs a zenity checklist and returns the chosen UIDs. An empty,
// non-nil result means the user unchecked everything.
func Select(ctx context.Context, dialog Dialog) ([]string, error) {
	if len(dialog.Sources) == 0 {
		return nil, fmt.Errorf("nothing to select")
	}

	if !hasGraphicalSession() {
		return nil, fmt.Errorf("selection requires a graphical session")
	}

	if _, err := exec.LookPath("zenity"); err != nil {
		return nil, fmt.Errorf("zenity is required for selection")
	}

	cmd := exec.CommandContext(ctx, "zenity", zenityArgs(dialog)...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, ErrSelectionCancelled
		}
		return nil, fmt.Errorf("zenity selector failed: %w", err)
	}

	selected := agenda.NormalizeIDs(parseSelectionOutput(string(out)))
	if selected == nil {
		selected = []string{}
	}
	return selected, nil
}

func hasGraphicalSession() bool {
	return strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) != "" || strings.TrimSpace(os.Getenv("DISPLAY")) != ""
}

func zenityArgs(dialog Dialog) []string {
	args := []string{
		"--list",
		"--checklist",
		"--title=" + dialog.Title,
		"--text=" + dialog.Text,
		"--modal",
		"--width=960",
		"--height=680",
		"--separator=\n",
		"--print-column=4",
		"--column=Use",
		"--column=Name",
		"--column=Account",
		"--column=UID",
		"--hide-column=4",
	}

	for _, source := range dialog.Sources {
		if !source.Enabled {
			continue
		}

		checked := "FALSE"
		if dialog.Current.Contains(source.UID) {
			checked = "TRUE"
		}

		account := strings.TrimSpace(source.AccountName)
		if account == "" {
			account = "-"
		}

		args = append(args, checked, sourceLabel(source), account, source.UID)
	}
	return args
}

func parseSelectionOutput(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	parts := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == '\n' || r == '|'
	})
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		result = append(result, value)
	}
	return result
}

func sourceLabel(source agenda.Calendar) string {
	name := strings.TrimSpace(source.Name)
	if name == "" {
		name = source.UID
	}
	if strings.TrimSpace(source.AccountName) != "" {
		return fmt.Sprintf("%s (%s)", name, source.AccountName)
	}
	return name
}
