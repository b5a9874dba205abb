// Package cli implements the freezer command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/freezer/internal/app"
	"github.com/dukerupert/freezer/internal/config"
	"github.com/dukerupert/freezer/internal/logging"
)

const closeTimeout = 10 * time.Second

// state carries the global flags to every command.
type state struct {
	configPath string
	dataDir    string
	logLevel   string
}

func (s *state) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, err
	}
	if s.dataDir != "" {
		cfg.DataDir = s.dataDir
	}
	if s.logLevel != "" {
		cfg.LogLevel = s.logLevel
	}
	return cfg, nil
}

// run opens the household, calls fn and drains pending pushes afterwards.
func (s *state) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, out io.Writer) error) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, "freezer")

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	runErr := fn(cmd.Context(), a, cmd.OutOrStdout())

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		logger.Warn("pending pushes not sent", "error", err)
	}
	return runErr
}

// NewRootCmd builds the freezer command tree.
func NewRootCmd(version string) *cobra.Command {
	s := &state{}
	root := &cobra.Command{
		Use:   "freezer",
		Short: "Household freezer inventory",
		Long: `freezer tracks what is in the household freezer, which drawer it is in and
how long it has been there. The inventory works offline and can be shared
with other devices through a hub or an S3 bucket.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&s.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&s.dataDir, "data-dir", "", "Directory holding the local cache (overrides config)")
	root.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(
		statusCmd(s),
		setupCmd(s),
		itemsCmd(s),
		searchCmd(s),
		drawersCmd(s),
		categoriesCmd(s),
		mappingsCmd(s),
		membersCmd(s),
		settingsCmd(s),
		voiceCmd(s),
		assistantRemoveCmd(s),
		shareCmd(s),
		syncCmd(s),
		watchCmd(s),
		reminderCmd(s),
		suggestionsCmd(s),
	)
	return root
}

// Execute runs the command line.
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
