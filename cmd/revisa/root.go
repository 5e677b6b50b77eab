package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/revisa/internal/config"
	"github.com/conorfennell/revisa/internal/storage"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "revisa",
		Short:        "Spaced-repetition study server for Markdown decks",
		SilenceUsage: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newSyncCmd(), newSourceCmd())
	return root
}

// app is what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *storage.DB
}

// setup loads the configuration and opens the database. defaultFormat picks
// the log format when the configuration leaves it open.
func setup(cmd *cobra.Command, defaultFormat string) (*app, error) {
	path, _ := cmd.Flags().GetString(config.FileFlag)
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(os.Stderr, cfg.Log, defaultFormat)
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DB, err)
	}
	logger.Debug("database opened", "path", cfg.DB)
	return &app{cfg: cfg, logger: logger, db: db}, nil
}
