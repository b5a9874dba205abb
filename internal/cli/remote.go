package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/freezer/internal/app"
)

func shareCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Share the household with other devices",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Print the household share link, creating it on first use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				url, err := a.CreateShareURL(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, url)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "accept <url>",
		Short: "Join the household behind a share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				acc, err := a.AcceptShare(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Joined %q (%d items).\n", acc.Title, len(a.Store.Items()))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "leave",
		Short: "Stop using a joined household on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				return a.LeaveShare()
			})
		},
	})
	return cmd
}

func syncCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull the latest household from the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				if !a.RemoteEnabled() {
					fmt.Fprintln(out, "Remote sync is not configured.")
					return nil
				}
				if err := a.Repo.EnsureSubscriptions(ctx); err != nil {
					fmt.Fprintf(out, "Subscriptions not registered: %v\n", err)
				}
				changed, err := a.Sync(ctx)
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintln(out, "Updated from remote.")
				} else {
					fmt.Fprintln(out, "Already up to date.")
				}
				return nil
			})
		},
	}
}

func watchCmd(s *state) *cobra.Command {
	var poll time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay in sync and send daily reminders until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				fmt.Fprintln(out, "Watching for changes, Ctrl-C to stop.")
				return a.Watch(ctx, poll)
			})
		},
	}
	cmd.Flags().DurationVar(&poll, "poll", app.DefaultPollInterval, "Poll interval for stores without a change feed")
	return cmd
}
