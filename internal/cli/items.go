package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/freezer/internal/app"
	"github.com/dukerupert/freezer/internal/inventory"
	"github.com/dukerupert/freezer/internal/model"
)

func printItems(out io.Writer, st *inventory.Store, items []model.Item) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No items.")
		return
	}
	now := time.Now()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tCATEGORY\tDRAWER\tADDED\tSTATE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(it.ID), it.Name, it.Quantity,
			st.CategoryName(it.CategoryID), st.DrawerName(it.DrawerID),
			it.DateAdded.Format(time.DateOnly), st.ExpiryState(it, now))
	}
	tw.Flush()
}

func itemsCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List, add and remove items",
	}

	var listDrawer string
	list := &cobra.Command{
		Use:   "list",
		Short: "List items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				items := a.Store.Items()
				if listDrawer != "" {
					d, err := findDrawer(a.Store, listDrawer)
					if err != nil {
						return err
					}
					items = a.Store.ItemsInDrawer(d.ID)
				}
				printItems(out, a.Store, items)
				return nil
			})
		},
	}
	list.Flags().StringVar(&listDrawer, "drawer", "", "Only items in this drawer (name or number)")
	cmd.AddCommand(list)

	var (
		qty      string
		category string
		drawer   string
		added    string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item; category and drawer are suggested when omitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				in := inventory.NewItem{Name: args[0], Quantity: qty}
				if category != "" {
					c, err := findCategory(a.Store, category)
					if err != nil {
						return err
					}
					in.CategoryID = c.ID
				}
				if drawer != "" {
					d, err := findDrawer(a.Store, drawer)
					if err != nil {
						return err
					}
					in.DrawerID = d.ID
				}
				if added != "" {
					t, err := time.ParseInLocation(time.DateOnly, added, time.Local)
					if err != nil {
						return fmt.Errorf("parse --added: %w", err)
					}
					in.DateAdded = t
				}
				item, err := a.Store.AddItem(in)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Added %s (%s) to %s as %s.\n", item.Name, shortID(item.ID),
					a.Store.DrawerName(item.DrawerID), a.Store.CategoryName(item.CategoryID))
				return nil
			})
		},
	}
	add.Flags().StringVarP(&qty, "qty", "q", "", "Quantity, free text")
	add.Flags().StringVar(&category, "category", "", "Category name")
	add.Flags().StringVar(&drawer, "drawer", "", "Drawer name or number")
	add.Flags().StringVar(&added, "added", "", "Date frozen (YYYY-MM-DD), default today")
	cmd.AddCommand(add)

	var (
		editName string
		editQty  string
		editDraw string
	)
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Rename, requantify or move an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				item, err := findItem(a.Store, args[0])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("name") {
					item.Name = editName
				}
				if cmd.Flags().Changed("qty") {
					item.Quantity = editQty
				}
				if editDraw != "" {
					d, err := findDrawer(a.Store, editDraw)
					if err != nil {
						return err
					}
					item.DrawerID = d.ID
				}
				_, err = a.Store.UpdateItem(item)
				return err
			})
		},
	}
	edit.Flags().StringVar(&editName, "name", "", "New name")
	edit.Flags().StringVarP(&editQty, "qty", "q", "", "New quantity")
	edit.Flags().StringVar(&editDraw, "drawer", "", "Move to drawer (name or number)")
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an item by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				item, err := findItem(a.Store, args[0])
				if err != nil {
					return err
				}
				if err := a.Store.DeleteItem(item.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s.\n", item.Name)
				return nil
			})
		},
	})
	return cmd
}

func searchCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find items by name, quantity, category or drawer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				printItems(out, a.Store, a.Store.MatchingItems(args[0]))
				return nil
			})
		},
	}
}
