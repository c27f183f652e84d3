package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rbright/weekview/internal/app"
)

func addToggle(topLevel *cobra.Command) {
	var kind app.SelectKind
	cmd := &cobra.Command{
		Use:   "toggle <calendar|list> <uid>",
		Short: "Show or hide one calendar or reminder list.",
		Example: `
weekview toggle calendar personal
weekview toggle list 1b7e5c2a
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected a kind and a uid, got %d args", len(args))
			}
			var err error
			kind, err = app.ParseSelectKind(args[0])
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Toggle(ctx, kind, args[1]); err != nil {
					return err
				}
				return a.Refresh(ctx)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addShowCompleted(topLevel *cobra.Command) {
	var show bool
	cmd := &cobra.Command{
		Use:       "show-completed <on|off|toggle>",
		Short:     "Choose whether completed reminders are listed.",
		ValidArgs: []string{"on", "off", "toggle"},
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected on, off or toggle")
			}
			if strings.EqualFold(args[0], "toggle") {
				return nil
			}
			var err error
			show, err = parseOnOff(args[0])
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var err error
				if strings.EqualFold(args[0], "toggle") {
					err = a.Settings.ToggleShowCompleted()
				} else {
					err = a.Settings.SetShowCompleted(show)
				}
				if err != nil {
					return err
				}
				return a.Refresh(ctx)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addSelect(topLevel *cobra.Command) {
	var kind app.SelectKind
	cmd := &cobra.Command{
		Use:   "select <calendars|lists>",
		Short: "Pick calendars or reminder lists in a checklist dialog.",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected calendars or lists")
			}
			var err error
			kind, err = app.ParseSelectKind(args[0])
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Select(ctx, kind, cmd.OutOrStdout())
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", value)
	}
}

func addResetSettings(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "reset-settings",
		Short: "Forget the stored calendar and reminder list selection.",
		Long:  "Erase the stored filter so the next launch selects every calendar and reminder list again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				path, err := a.ResetSettings()
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Cleared preferences in %s\n", path); err != nil {
					return err
				}
				return a.Refresh(ctx)
			})
		},
	}
	topLevel.AddCommand(cmd)
}
