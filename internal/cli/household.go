package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/freezer/internal/app"
	"github.com/dukerupert/freezer/internal/model"
)

func statusCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the household, the acting user and where data is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				st := a.Store
				h := st.Household()
				fmt.Fprintf(out, "Household:  %s\n", h.Name)
				fmt.Fprintf(out, "User:       %s (%s)\n", st.CurrentUser().DisplayName, st.CurrentRole().Label())
				fmt.Fprintf(out, "Backend:    %s\n", a.Repo.Backend())
				if scope, name := a.ActiveRecord(); name != "" {
					fmt.Fprintf(out, "Record:     %s (%s)\n", name, scope)
				}
				if !st.OnboardingComplete() {
					fmt.Fprintln(out, "Setup:      not done, run 'freezer setup'")
				}
				settings := st.Settings()
				fmt.Fprintf(out, "Items:      %d in %d drawers\n", len(st.Items()), len(st.Drawers()))
				fmt.Fprintf(out, "Overdue:    %d (limit %d months)\n", len(st.OverdueItems(time.Now())), settings.ThresholdMonths)
				fmt.Fprintf(out, "Reminder:   %02d:00\n", settings.NotificationHour)
				return nil
			})
		},
	}
}

func setupCmd(s *state) *cobra.Command {
	var (
		drawers   int
		names     []string
		threshold int
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the drawers and set the storage limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				n := max(drawers, len(names))
				if cmd.Flags().Changed("names") && !cmd.Flags().Changed("drawers") {
					n = len(names)
				}
				drafts := make([]model.DrawerDraft, n)
				for i := range drafts {
					if i < len(names) {
						drafts[i].Name = names[i]
					}
				}
				if err := a.Store.CompleteOnboarding(drafts, threshold); err != nil {
					return err
				}
				fmt.Fprintf(out, "Set up %d drawers, limit %d months.\n", len(a.Store.Drawers()), a.Store.Settings().ThresholdMonths)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&drawers, "drawers", 3, "Number of drawers")
	cmd.Flags().StringSliceVar(&names, "names", nil, "Drawer names, top to bottom")
	cmd.Flags().IntVar(&threshold, "threshold", model.DefaultThresholdMonths, "Months an item may stay frozen")
	return cmd
}

func drawersCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drawers",
		Short: "List or replace drawers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List drawers top to bottom",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				for i, d := range a.Store.Drawers() {
					fmt.Fprintf(out, "%d  %-16s %-12s %d items\n", i+1, d.Name,
						a.Store.CategoryName(d.DefaultCategoryID), len(a.Store.ItemsInDrawer(d.ID)))
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <name>...",
		Short: "Replace the drawer list; items in removed drawers move to the first one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				drafts := make([]model.DrawerDraft, 0, len(args))
				current := a.Store.Drawers()
				for i, name := range args {
					d := model.DrawerDraft{Name: name}
					if i < len(current) {
						d.CategoryID = current[i].DefaultCategoryID
					}
					drafts = append(drafts, d)
				}
				return a.Store.UpdateDrawers(drafts)
			})
		},
	})
	return cmd
}

func categoriesCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				for _, c := range a.Store.Categories() {
					fmt.Fprintln(out, c.Name)
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				_, err := a.Store.AddCategory(args[0])
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a category; its items move to another one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				c, err := findCategory(a.Store, args[0])
				if err != nil {
					return err
				}
				return a.Store.DeleteCategory(c.ID)
			})
		},
	})
	return cmd
}

func mappingsCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage keyword to category mappings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				for _, m := range a.Store.Mappings() {
					fmt.Fprintf(out, "%-16s -> %s\n", m.Keyword, a.Store.CategoryName(m.CategoryID))
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <keyword> <category>",
		Short: "File items containing keyword under category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				c, err := findCategory(a.Store, args[1])
				if err != nil {
					return err
				}
				_, err = a.Store.AddUserMapping(args[0], c.ID)
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <keyword>",
		Short: "Delete a mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				for _, m := range a.Store.Mappings() {
					if model.Normalize(m.Keyword) == model.Normalize(args[0]) {
						return a.Store.DeleteMapping(m.ID)
					}
				}
				return fmt.Errorf("no mapping for %q", args[0])
			})
		},
	})
	return cmd
}

func membersCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage household members",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				current := a.Store.CurrentUser().ID
				for _, m := range a.Store.Members() {
					marker := " "
					if m.UserID == current {
						marker = "*"
					}
					fmt.Fprintf(out, "%s %-16s %s\n", marker, a.Store.UserName(m.UserID), m.Role.Label())
				}
				return nil
			})
		},
	})

	var role string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				r, ok := model.ParseRole(role)
				if !ok {
					return fmt.Errorf("unknown role %q", role)
				}
				_, err := a.Store.AddMember(args[0], r)
				return err
			})
		},
	}
	add.Flags().StringVar(&role, "role", string(model.RoleEditor), "owner, editor or viewer")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "role <name> <role>",
		Short: "Change a member's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				m, err := findMember(a.Store, args[0])
				if err != nil {
					return err
				}
				r, ok := model.ParseRole(args[1])
				if !ok {
					return fmt.Errorf("unknown role %q", args[1])
				}
				return a.Store.UpdateMemberRole(m.ID, r)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				m, err := findMember(a.Store, args[0])
				if err != nil {
					return err
				}
				return a.Store.RemoveMember(m.ID)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "switch <name>",
		Short: "Act as another member on this device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				m, err := findMember(a.Store, args[0])
				if err != nil {
					return err
				}
				return a.Store.SwitchCurrentUser(m.UserID)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rename <name>",
		Short: "Rename the acting user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				return a.Store.RenameCurrentUser(args[0])
			})
		},
	})
	return cmd
}

func settingsCmd(s *state) *cobra.Command {
	var (
		threshold int
		hour      int
		household string
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Change the storage limit, reminder hour or household name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				if cmd.Flags().Changed("threshold") {
					if err := a.Store.SetThresholdMonths(threshold); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("hour") {
					if err := a.Store.SetNotificationHour(hour); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("household") {
					if err := a.Store.RenameHousehold(household); err != nil {
						return err
					}
				}
				st := a.Store.Settings()
				fmt.Fprintf(out, "Limit %d months, reminder at %02d:00, household %q\n",
					st.ThresholdMonths, st.NotificationHour, a.Store.Household().Name)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Months an item may stay frozen")
	cmd.Flags().IntVar(&hour, "hour", 0, "Hour of the daily reminder (0-23)")
	cmd.Flags().StringVar(&household, "household", "", "Household name")
	return cmd
}
