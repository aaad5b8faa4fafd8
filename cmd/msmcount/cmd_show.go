package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		storePath string
		dense     bool
	)
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "List stored results, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("store") {
				a.cfg.Store.Path = storePath
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("show: no store configured (--store)")
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				list, err := st.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN ID\tSTATES\tRANKS\tNNZ\tCREATED")
				for _, s := range list {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n",
						s.RunID, s.NumStates, s.Ranks, s.NNZ, s.CreatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			}

			rec, err := st.Load(ctx, args[0])
			if err != nil {
				return err
			}
			m, err := rec.Matrix()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "run %s: %d ranks, lag %d, %s\n",
				rec.RunID, rec.Ranks, rec.Lag, rec.CreatedAt.Format(time.RFC3339))
			printMatrix(cmd, m, dense)

			return nil
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "", "BadgerDB directory")
	cmd.Flags().BoolVar(&dense, "dense", false, "print as a dense matrix")

	return cmd
}
