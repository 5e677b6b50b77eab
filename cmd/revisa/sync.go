package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/revisa/internal/deck"
)

func newSyncCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile every source with the card database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, "text")
			if err != nil {
				return err
			}
			defer a.db.Close()

			syncer := deck.NewSyncer(a.db, a.cfg.ReposDir, a.logger)
			if !quiet {
				syncer.Progress = os.Stderr
			}
			report, err := syncer.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range report.Sources {
				fmt.Fprintf(out, "%s: %d parsed, %d new, %d removed\n", s.Path, s.Parsed, s.Inserted, s.Deleted)
				for _, e := range s.Errors {
					fmt.Fprintf(out, "  - %s\n", e)
				}
			}
			if report.Failed() {
				return errors.New("sync finished with errors")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide git progress output")
	return cmd
}
