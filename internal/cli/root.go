package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rbright/weekview/internal/app"
	"github.com/rbright/weekview/internal/config"
	"github.com/rbright/weekview/internal/logging"
	"github.com/rbright/weekview/internal/ui"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weekview",
		Short: "A scrolling week view of your calendar events and reminders.",
		Long: `weekview shows calendar events and reminders from Evolution Data Server
as an endless list of days under a week strip. Run without a subcommand to
open the interactive view.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context())
		},
	}

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addAgenda(topLevel)
	addCalendars(topLevel)
	addReminderLists(topLevel)
	addToggle(topLevel)
	addShowCompleted(topLevel)
	addSelect(topLevel)
	addResetSettings(topLevel)
	addComplete(topLevel)
	addWeather(topLevel)
	addStatus(topLevel)
	addRefresh(topLevel)
	addOpenItem(topLevel)
	addJoinNext(topLevel)
	addWatch(topLevel)
	addVersion(topLevel)
}

func runTUI(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	closeLog, err := logging.SetupFile(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	model, err := ui.New(ctx, a, a.Window, a.Settings, ui.Options{
		RefreshSchedule: cfg.RefreshSchedule,
		Timeout:         cfg.Timeout,
	})
	if err != nil {
		return err
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run week view: %w", err)
	}
	return nil
}

// openApp loads configuration, logs to stderr and builds the app. The
// returned func releases the backend connection.
func openApp(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logging.Setup(cmd.ErrOrStderr(), logging.ParseLevel(cfg.LogLevel))

	a, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, func() { _ = a.Close() }, nil
}

// withApp runs fn against a freshly opened app under the command timeout.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, release, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(a.Config()))
	defer cancel()
	return fn(ctx, a)
}

func commandTimeout(cfg config.Runtime) time.Duration {
	timeout := cfg.Timeout + 5*time.Second
	if timeout < 10*time.Second {
		timeout = 10 * time.Second
	}
	return timeout
}
