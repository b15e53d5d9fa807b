package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/opticorr/accelerator"
	"github.com/katalvlaran/opticorr/store"
)

func newScriptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Render model-engine and machine scripts",
	}

	var bestKnowledge bool
	base := &cobra.Command{
		Use:   "base",
		Short: "Script that builds the nominal model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := a.accelerator()
			if err != nil {
				return err
			}
			s, err := acc.BaseModelScript(bestKnowledge)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), s)
			return err
		},
	}
	base.Flags().BoolVar(&bestKnowledge, "best-knowledge", false, "include measured machine errors")

	var (
		runID   string
		machine bool
	)
	corr := &cobra.Command{
		Use:   "correction",
		Short: "Script that applies the correction of an archived run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID == "" {
				return fmt.Errorf("script correction: --run is required")
			}
			acc, err := a.accelerator()
			if err != nil {
				return err
			}

			return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				rec, err := st.Run(ctx, runID)
				if err != nil {
					return err
				}
				var s string
				if machine {
					s = accelerator.ChangeParameters(rec.Correction, true)
				} else if s, err = acc.UpdateCorrectionScript(rec.Correction, a.cfg.Correction.VariableCategories); err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), s)

				return err
			})
		},
	}
	corr.Flags().StringVar(&runID, "run", "", "run ID")
	corr.Flags().BoolVar(&machine, "machine", false, "emit trims with the machine sign convention")

	var dpp float64
	deltap := &cobra.Command{
		Use:   "deltap",
		Short: "Script that moves the model to a momentum offset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := a.accelerator()
			if err != nil {
				return err
			}
			s, err := acc.UpdateDeltapScript(dpp)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), s)
			return err
		},
	}
	deltap.Flags().Float64Var(&dpp, "dpp", 0, "relative momentum offset")

	cmd.AddCommand(base, corr, deltap)

	return cmd
}
