package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/model"
	"github.com/katalvlaran/opticorr/optics"
	"github.com/katalvlaran/opticorr/response"
	"github.com/katalvlaran/opticorr/store"
)

func newResponseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "response",
		Short: "Compute, import and list response matrices",
	}
	cmd.AddCommand(newResponseComputeCmd(a), newResponseImportCmd(a), newResponseListCmd(a))

	return cmd
}

func newResponseComputeCmd(a *app) *cobra.Command {
	var out, name string
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a response matrix by central differences around the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" && name == "" {
				return fmt.Errorf("response compute: set --out and/or --name")
			}
			m, err := a.computeResponse(cmd.Context())
			if err != nil {
				return err
			}
			norms, err := matrix.ColumnNorms(m.Data())
			if err != nil {
				return err
			}
			for j, v := range m.Cols() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.6g\n", v, norms[j])
				if norms[j] == 0 {
					a.logger.Warn("variable has no effect on the selected observables", zap.String("variable", v))
				}
			}
			if out != "" {
				if err = response.Save(out, m); err != nil {
					return err
				}
			}
			if name != "" {
				return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
					return st.SaveResponse(ctx, name, m)
				})
			}

			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the matrix to this YAML file")
	cmd.Flags().StringVar(&name, "name", "", "archive the matrix under this name")

	return cmd
}

// computeResponse differentiates the engine over its corrector variables in
// the configured categories and span, around the uncorrected model.
func (a *app) computeResponse(ctx context.Context) (*response.Matrix, error) {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	acc, err := a.accelerator()
	if err != nil {
		return nil, err
	}
	base, err := optics.LoadFrame(cfg.Inputs.Model)
	if err != nil {
		return nil, err
	}
	var fallback *response.Matrix
	if cfg.Inputs.Sensitivity == "" && cfg.Inputs.Response != "" {
		if fallback, err = response.Load(cfg.Inputs.Response); err != nil {
			return nil, err
		}
	}
	engine, err := a.linearEngine(base, fallback)
	if err != nil {
		return nil, err
	}
	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool)
	for _, v := range acc.CorrectorVariables(cfg.Span(), cfg.Correction.VariableCategories...) {
		wanted[v] = true
	}
	var vars []string
	for _, v := range engine.Variables() {
		if wanted[v] {
			vars = append(vars, v)
		}
	}
	if len(vars) == 0 {
		return nil, &response.UnknownVariableCategoryError{Category: fmt.Sprint(cfg.Correction.VariableCategories)}
	}

	zero := model.NewCorrection(vars...)
	center, err := engine.ApplyCorrection(ctx, zero)
	if err != nil {
		return nil, err
	}

	return response.Refresh(ctx, engine, zero, center, center.Keys(kinds...), vars, cfg.Correction.DeltaK,
		response.WithParallelism(cfg.Correction.Parallelism),
		response.WithRefreshLogger(a.logger),
	)
}

func newResponseImportCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Archive a response matrix file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := response.Load(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = args[0]
			}

			return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				return st.SaveResponse(ctx, name, m)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "archive name (default: the file path)")

	return cmd
}

func newResponseListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived response matrices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				names, err := st.ListResponses(ctx)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}

				return nil
			})
		},
	}
}
