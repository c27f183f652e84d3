package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rbright/weekview/internal/app"
)

func addStatus(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print today's agenda as waybar JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Status(ctx)
				if err != nil {
					return err
				}
				return app.WriteOutput(cmd.OutOrStdout(), out)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addRefresh(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Rewrite the menu and items snapshot without printing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Refresh(ctx)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addOpenItem(topLevel *cobra.Command) {
	var index int
	cmd := &cobra.Command{
		Use:   "open-item <n>",
		Short: "Open the nth item of the last status snapshot.",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected an item number")
			}
			value, err := strconv.Atoi(args[0])
			if err != nil || value < 1 {
				return fmt.Errorf("invalid item number %q", args[0])
			}
			index = value
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.OpenItem(ctx, index)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addJoinNext(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "join-next",
		Short: "Join or open the next event of today.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.JoinNext(ctx)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addWatch(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print waybar JSON now and on every refresh tick.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, release, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer release()
			return a.Watch(cmd.Context(), cmd.OutOrStdout())
		},
	}
	topLevel.AddCommand(cmd)
}

func addWeather(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Print the current weather line.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), a.WeatherLine(ctx))
				return err
			})
		},
	}
	topLevel.AddCommand(cmd)
}
