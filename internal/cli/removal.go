package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dukerupert/freezer/internal/app"
	"github.com/dukerupert/freezer/internal/inventory"
	"github.com/dukerupert/freezer/internal/repository"
)

func voiceCmd(s *state) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   `voice "<utterance>"`,
		Short: `Remove an item by saying what you took, e.g. "I removed chicken from drawer 2"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				outcome := a.Store.ResolveRemoval(args[0])
				fmt.Fprintln(out, outcome.Message)
				if outcome.Status != inventory.VoiceSingle {
					return nil
				}
				if !yes {
					fmt.Fprintln(out, "Run again with --yes to remove it.")
					return nil
				}
				item, err := a.Store.ConfirmRemoval(outcome.Candidate.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s.\n", item.Name)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Remove a single match without asking")
	return cmd
}

func assistantRemoveCmd(s *state) *cobra.Command {
	var (
		item   string
		drawer string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "assistant-remove",
		Short: "Remove an item the way a voice assistant would, without confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				resp := a.Store.RemoveItemForAssistant(item, drawer)
				if asJSON {
					return json.NewEncoder(out).Encode(resp)
				}
				fmt.Fprintln(out, resp.Dialog)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&item, "item", "", "Item name")
	cmd.Flags().StringVar(&drawer, "drawer", "", "Drawer name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status and dialog as JSON")
	return cmd
}

func suggestionsCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:       "suggestions <items|drawers>",
		Short:     "List the names a voice assistant can offer",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"items", "drawers"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				doc := repository.Snapshot(a.Repo)
				var list []inventory.Suggestion
				switch args[0] {
				case "items":
					list = inventory.ItemSuggestions(doc)
				case "drawers":
					list = inventory.DrawerSuggestions(doc)
				default:
					return fmt.Errorf("unknown list %q, want items or drawers", args[0])
				}
				for _, sg := range list {
					fmt.Fprintln(out, sg.Name)
				}
				return nil
			})
		},
	}
}
