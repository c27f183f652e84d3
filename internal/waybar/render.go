package waybar

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/weekview/internal/agenda"
)

type Output struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
}

type Options struct {
	Lookahead   time.Duration
	MaxItems    int
	WeatherLine string
}

// Today flattens a day in presentation order and caps it at max items.
func Today(day agenda.Day, max int) []agenda.Item {
	items := agenda.Flatten(day)
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items
}

// Render summarizes today's agenda for the bar: a countdown to the next
// event, otherwise the number of open reminders.
func Render(now time.Time, day agenda.Day, opts Options) Output {
	next, hasNext := agenda.NextEvent(day.Events, now, opts.Lookahead)
	open := agenda.OpenReminders(day.Reminders)

	out := Output{Tooltip: tooltip(now, day, opts, next, hasNext)}
	switch {
	case hasNext:
		out.Text = agenda.CountdownText(now, next)
		out.Class = "normal"
	case open > 0:
		out.Text = fmt.Sprintf("☐ %d", open)
		out.Class = "reminders"
	default:
		out.Text = "—"
		out.Class = "clear"
	}
	return out
}

func RenderUnknown(message string) Output {
	return Output{Text: "?", Tooltip: strings.TrimSpace(message), Class: "unknown"}
}

func RenderError(message string) Output {
	return Output{Text: "!", Tooltip: strings.TrimSpace(message), Class: "error"}
}

func Encode(output Output) ([]byte, error) {
	payload, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("marshal waybar output: %w", err)
	}
	return payload, nil
}

func tooltip(now time.Time, day agenda.Day, opts Options, next agenda.CalendarEvent, hasNext bool) string {
	var b strings.Builder

	if hasNext {
		if next.Start.After(now) {
			_, _ = fmt.Fprintf(&b, "Next in %s: %s\n", agenda.HumanizeDuration(next.Start.Sub(now)), next.Title)
		} else {
			_, _ = fmt.Fprintf(&b, "In progress: %s\n", next.Title)
		}
		_, _ = fmt.Fprintf(&b, "%s\n", next.LocationLabel())
		if next.JoinURL() != "" {
			_, _ = fmt.Fprint(&b, "Join available\n")
		}
	} else {
		_, _ = fmt.Fprintf(&b, "Nothing in the next %s\n", agenda.HumanizeDuration(opts.Lookahead))
	}

	items := Today(day, opts.MaxItems)
	if len(items) > 0 {
		_, _ = fmt.Fprint(&b, "\nToday:\n")
		for _, item := range items {
			_, _ = fmt.Fprintf(&b, "%s\n", tooltipLine(item))
		}
	}

	if strings.TrimSpace(opts.WeatherLine) != "" {
		_, _ = fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(opts.WeatherLine))
	}

	_, _ = fmt.Fprint(&b, "Click to open dropdown")
	return strings.TrimSpace(b.String())
}

func tooltipLine(item agenda.Item) string {
	switch item.Kind {
	case agenda.KindEvent:
		if item.Event.AllDay {
			return "All day  " + item.Event.Title
		}
		return fmt.Sprintf("%s  %s", item.Event.Start.Format("15:04"), item.Event.Title)
	case agenda.KindReminder:
		mark := "☐"
		if item.Reminder.Completed {
			mark = "☑"
		}
		if item.Reminder.Due == nil || item.Reminder.AllDay {
			return fmt.Sprintf("%s %s", mark, item.Reminder.Title)
		}
		return fmt.Sprintf("%s  %s %s", item.Reminder.Due.Format("15:04"), mark, item.Reminder.Title)
	default:
		return ""
	}
}
