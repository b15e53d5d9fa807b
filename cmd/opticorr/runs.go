package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/opticorr/store"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived correction runs",
	}
	show := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print a run and its iterations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				rec, err := st.Run(ctx, args[0])
				if err != nil {
					return err
				}
				its, err := st.Iterations(ctx, args[0])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "run %s %s final_rms=%.6g\n", rec.RunID, rec.State, rec.FinalRMS)
				if rec.Error != "" {
					fmt.Fprintf(w, "error: %s\n", rec.Error)
				}
				for _, it := range its {
					fmt.Fprintf(w, "  %d rms=%.6g rank=%d %s\n", it.Iteration, it.RMS, it.Rank, it.Correction)
				}
				fmt.Fprintf(w, "correction: %s\n", rec.Correction)

				return nil
			})
		},
	}
	cmd.AddCommand(show)

	return cmd
}
