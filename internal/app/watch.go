package app

import (
	"context"
	"fmt"
	"io"

	"github.com/robfig/cron/v3"

	"github.com/rbright/weekview/internal/logging"
)

// Watch prints a status line immediately and then on every tick of the
// refresh schedule until ctx is done.
func (a *App) Watch(ctx context.Context, stdout io.Writer) error {
	emit := func() {
		tickCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()

		out, err := a.Status(tickCtx)
		if err != nil {
			logging.Error("status refresh failed", err)
			return
		}
		if err := WriteOutput(stdout, out); err != nil {
			logging.Error("write status failed", err)
		}
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(a.cfg.RefreshSchedule, emit); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", a.cfg.RefreshSchedule, err)
	}

	emit()
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}
