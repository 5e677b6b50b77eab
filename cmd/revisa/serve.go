package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/revisa/internal/deck"
	"github.com/conorfennell/revisa/internal/study"
	"github.com/conorfennell/revisa/internal/web"
)

func newServeCmd() *cobra.Command {
	var syncOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, "json")
			if err != nil {
				return err
			}
			defer a.db.Close()

			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			svc, err := study.NewService(a.db, a.cfg.Scheduler, a.logger, time.Now, loc)
			if err != nil {
				return err
			}
			sessionDefaults, err := a.cfg.Session.SelectOptions()
			if err != nil {
				return err
			}
			syncer := deck.NewSyncer(a.db, a.cfg.ReposDir, a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if syncOnStart {
				if _, err := syncer.Run(ctx); err != nil {
					return fmt.Errorf("initial sync: %w", err)
				}
			}

			handler := web.NewServer(a.db, svc, syncer, web.Options{
				Session:     sessionDefaults,
				CORSOrigins: a.cfg.CORSOrigins,
			}, a.logger)
			srv := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server listening", "addr", a.cfg.Addr, "timezone", loc.String())
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "localhost:8080", "address to listen on")
	flags.Int("session-max-new", 20, "default cap on new cards per session")
	flags.Int("session-max-reviews", 200, "default cap on reviews per session")
	flags.String("session-order", "random", "default session order: random, difficulty or chronological")
	flags.BoolVar(&syncOnStart, "sync", false, "sync all sources before serving")
	return cmd
}
