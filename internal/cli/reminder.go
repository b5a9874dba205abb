package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/freezer/internal/app"
	"github.com/dukerupert/freezer/internal/reminder"
)

var errNoWebPush = errors.New("web push is not configured (set reminder.vapid_public_key and reminder.vapid_private_key)")

func reminderCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Configure overdue reminders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "vapid",
		Short: "Generate a VAPID key pair for web push",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := reminder.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "FREEZER_REMINDER_VAPID_PUBLIC_KEY=%s\n", pub)
			fmt.Fprintf(out, "FREEZER_REMINDER_VAPID_PRIVATE_KEY=%s\n", priv)
			return nil
		},
	})

	var sub reminder.Subscription
	subscribe := &cobra.Command{
		Use:   "subscribe",
		Short: "Register a browser push subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				wp := a.WebPush()
				if wp == nil {
					return errNoWebPush
				}
				if err := wp.AddSubscription(sub); err != nil {
					return err
				}
				fmt.Fprintf(out, "%d subscriptions registered.\n", len(wp.Subscriptions()))
				return nil
			})
		},
	}
	subscribe.Flags().StringVar(&sub.Endpoint, "endpoint", "", "Push endpoint URL")
	subscribe.Flags().StringVar(&sub.P256dh, "p256dh", "", "Subscription public key")
	subscribe.Flags().StringVar(&sub.Auth, "auth", "", "Subscription auth secret")
	subscribe.MarkFlagRequired("endpoint")
	subscribe.MarkFlagRequired("p256dh")
	subscribe.MarkFlagRequired("auth")
	cmd.AddCommand(subscribe)

	cmd.AddCommand(&cobra.Command{
		Use:   "send",
		Short: "Send the overdue reminder now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				wp := a.WebPush()
				if wp == nil {
					return errNoWebPush
				}
				count := len(a.Store.OverdueItems(time.Now()))
				if count == 0 {
					fmt.Fprintln(out, "Nothing overdue.")
					return nil
				}
				req := reminder.Request{OverdueCount: count, Hour: a.Store.Settings().NotificationHour}
				if err := wp.Send(ctx, reminder.PayloadFor(req)); err != nil {
					return err
				}
				fmt.Fprintln(out, reminder.Body(count))
				return nil
			})
		},
	})
	return cmd
}
