package launch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/logging"
)

// Opener hands items off to the desktop's own calendar and task apps. Every
// open is fire-and-forget: the child is reaped in the background.
type Opener struct {
	EventCommand    string
	ReminderCommand string

	start StartFunc
}

// StartFunc starts a command without waiting for it.
type StartFunc func(ctx context.Context, name string, args ...string) error

type Option func(*Opener)

// WithStarter replaces process spawning, for tests.
func WithStarter(start StartFunc) Option {
	return func(o *Opener) {
		o.start = start
	}
}

func New(eventCommand, reminderCommand string, opts ...Option) *Opener {
	o := &Opener{
		EventCommand:    eventCommand,
		ReminderCommand: reminderCommand,
		start:           startDetached,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Opener) OpenEvent(ctx context.Context, event agenda.CalendarEvent) error {
	values := map[string]string{
		"{date}":  event.Start.Format("2006-01-02"),
		"{start}": event.Start.Format(time.RFC3339),
		"{uid}":   event.ID,
		"{list}":  event.CalendarID,
	}
	return o.run(ctx, o.EventCommand, values)
}

func (o *Opener) OpenReminder(ctx context.Context, reminder agenda.ReminderItem) error {
	values := map[string]string{
		"{uid}":  reminder.ID,
		"{list}": reminder.ListID,
	}
	if reminder.Due != nil {
		values["{date}"] = reminder.Due.Format("2006-01-02")
		values["{start}"] = reminder.Due.Format(time.RFC3339)
	}
	return o.run(ctx, o.ReminderCommand, values)
}

// OpenItem opens whichever kind of item it is given.
func (o *Opener) OpenItem(ctx context.Context, item agenda.Item) error {
	switch item.Kind {
	case agenda.KindEvent:
		return o.OpenEvent(ctx, *item.Event)
	case agenda.KindReminder:
		return o.OpenReminder(ctx, *item.Reminder)
	default:
		return fmt.Errorf("unknown item kind %q", item.Kind)
	}
}

// OpenURL opens a link, typically a meeting join URL, with xdg-open.
func (o *Opener) OpenURL(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if err := o.start(ctx, "xdg-open", url); err != nil {
		return fmt.Errorf("open url: %w", err)
	}
	return nil
}

// Notify shows a desktop notification when notify-send is available.
func (o *Opener) Notify(ctx context.Context, message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	if err := o.start(ctx, "notify-send", "Weekview", trimmed); err != nil {
		logging.Debug("notify-send unavailable", "err", err)
	}
}

func (o *Opener) run(ctx context.Context, template string, values map[string]string) error {
	argv := Expand(template, values)
	if len(argv) == 0 {
		return errors.New("no open command configured")
	}
	if err := o.start(ctx, argv[0], argv[1:]...); err != nil {
		logging.Error("deep link failed", err, "command", argv[0])
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	logging.Debug("deep link started", "command", argv[0])
	return nil
}

// Expand splits a command template on whitespace and substitutes
// placeholders inside each field, so substituted values never split into
// extra arguments.
func Expand(template string, values map[string]string) []string {
	fields := strings.Fields(strings.TrimSpace(template))
	argv := make([]string, 0, len(fields))
	for _, field := range fields {
		for placeholder, value := range values {
			field = strings.ReplaceAll(field, placeholder, value)
		}
		for _, placeholder := range []string{"{date}", "{start}", "{uid}", "{list}"} {
			field = strings.ReplaceAll(field, placeholder, "")
		}
		if field == "" {
			continue
		}
		argv = append(argv, field)
	}
	return argv
}

func startDetached(ctx context.Context, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found", name)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
