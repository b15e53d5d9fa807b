package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/opticorr/accelerator"
	"github.com/katalvlaran/opticorr/correction"
	"github.com/katalvlaran/opticorr/optics"
	"github.com/katalvlaran/opticorr/store"
)

type correctFlags struct {
	responseName   string
	iterations     int
	updateResponse bool
	script         string
}

func newCorrectCmd(a *app) *cobra.Command {
	var f correctFlags
	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Run an iterative global correction and archive every step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("iterations") {
				a.cfg.Correction.Iterations = f.iterations
			}
			if cmd.Flags().Changed("update-response") {
				a.cfg.Correction.UpdateResponse = f.updateResponse
			}
			if f.script != "" {
				a.cfg.Output.ScriptPath = f.script
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				res, err := a.correct(ctx, st, f.responseName)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run %s %s rms=%.6g\n%s\n",
					res.RunID, res.State, res.Final.RMS, res.Correction)

				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.responseName, "response-name", "", "use the archived response matrix with this name")
	cmd.Flags().IntVarP(&f.iterations, "iterations", "n", 0, "override correction.iterations")
	cmd.Flags().BoolVar(&f.updateResponse, "update-response", false, "override correction.update_response")
	cmd.Flags().StringVar(&f.script, "script", "", "write the machine trim script to this path")

	return cmd
}

// correct runs one correction and records it in st, whatever its outcome.
func (a *app) correct(ctx context.Context, st *store.Store, responseName string) (correction.Result, error) {
	cfg := a.cfg
	acc, err := a.accelerator()
	if err != nil {
		return correction.Result{}, err
	}
	meas, err := optics.LoadFrame(cfg.Inputs.Measurement)
	if err != nil {
		return correction.Result{}, err
	}
	meas, dropped, err := accelerator.AtMonitors(acc, meas)
	if err != nil {
		return correction.Result{}, err
	}
	if len(dropped) > 0 {
		a.logger.Info("ignoring measurements away from BPMs", zap.Int("count", len(dropped)))
	}
	base, err := optics.LoadFrame(cfg.Inputs.Model)
	if err != nil {
		return correction.Result{}, err
	}
	resp, err := a.loadResponse(ctx, st, responseName)
	if err != nil {
		return correction.Result{}, err
	}
	engine, err := a.linearEngine(base, resp)
	if err != nil {
		return correction.Result{}, err
	}
	kinds, err := cfg.Kinds()
	if err != nil {
		return correction.Result{}, err
	}
	optional, err := cfg.OptionalKinds()
	if err != nil {
		return correction.Result{}, err
	}

	res, runErr := correction.RunGlobalCorrection(ctx, correction.Input{
		Measurement:        meas,
		Model:              base,
		Response:           resp,
		Builder:            engine,
		Catalog:            accelerator.CorrectorCatalog{Acc: acc, Span: cfg.Span()},
		VariableCategories: cfg.Correction.VariableCategories,
		OpticsParams:       kinds,
		Weights:            cfg.Correction.Weights,
		OptionalParams:     optional,
		UseErrorbars:       cfg.Correction.UseErrorbars,
		SVDCutoff:          cfg.Correction.SVDCut,
		Iterations:         cfg.Correction.Iterations,
		UpdateResponse:     cfg.Correction.UpdateResponse,
		DeltaK:             cfg.Correction.DeltaK,
		Parallelism:        cfg.Correction.Parallelism,
		Logger:             a.logger.With(zap.String("accelerator", acc.Name())),
		OnIteration:        st.SaveArtifact,
	})
	// The run is archived even when it failed; the record carries the error.
	if err = st.FinishRun(context.WithoutCancel(ctx), res); err != nil {
		a.logger.Error("archiving run", zap.String("run_id", res.RunID), zap.Error(err))
	}
	if runErr != nil {
		return res, runErr
	}
	if cfg.Output.ScriptPath != "" {
		if err = writeScript(cfg.Output.ScriptPath, accelerator.ChangeParameters(res.Correction, true)); err != nil {
			return res, err
		}
	}

	return res, nil
}

func writeScript(path, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("script: create directory: %w", err)
	}

	return os.WriteFile(path, []byte(body), 0o644)
}
