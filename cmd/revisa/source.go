package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conorfennell/revisa/internal/deck"
)

func newSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage card sources",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <path/or/url.git>",
			Short: "Add a local directory or git repository",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := setup(cmd, "text")
				if err != nil {
					return err
				}
				defer a.db.Close()

				src, err := deck.AddSource(cmd.Context(), a.db, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "source %d: %s (%s)\n", src.ID, src.Path, src.Type)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List sources",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := setup(cmd, "text")
				if err != nil {
					return err
				}
				defer a.db.Close()

				sources, err := a.db.GetAllSources(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTYPE\tPATH\tLAST SCANNED")
				for _, s := range sources {
					scanned := "never"
					if s.LastScanned.Valid {
						scanned = s.LastScanned.Time.Local().Format("2006-01-02 15:04")
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Type, s.Path, scanned)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a source and its cards",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid source id %q", args[0])
				}
				a, err := setup(cmd, "text")
				if err != nil {
					return err
				}
				defer a.db.Close()

				if err := a.db.DeleteSource(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed source %d\n", id)
				return nil
			},
		},
	)
	return cmd
}
