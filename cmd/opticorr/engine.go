package main

import (
	"context"
	"fmt"

	"github.com/katalvlaran/opticorr/model"
	"github.com/katalvlaran/opticorr/optics"
	"github.com/katalvlaran/opticorr/response"
	"github.com/katalvlaran/opticorr/store"
)

// loadResponse reads the response matrix from the archive when name is set,
// from the configured file otherwise.
func (a *app) loadResponse(ctx context.Context, st *store.Store, name string) (*response.Matrix, error) {
	if name != "" {
		return st.LoadResponse(ctx, name)
	}
	if a.cfg.Inputs.Response == "" {
		return nil, fmt.Errorf("no response matrix: set inputs.response or --response-name")
	}

	return response.Load(a.cfg.Inputs.Response)
}

// linearEngine builds the linear model engine around base from the
// sensitivity table, which defaults to the response matrix file.
func (a *app) linearEngine(base *optics.Frame, fallback *response.Matrix) (*model.Linear, error) {
	sens := fallback
	if path := a.cfg.Inputs.Sensitivity; path != "" {
		var err error
		if sens, err = response.Load(path); err != nil {
			return nil, err
		}
	}
	if sens == nil {
		return nil, fmt.Errorf("no sensitivity table: set inputs.sensitivity or inputs.response")
	}

	return model.NewLinear(base, sens.Rows(), sens.Cols(), sens.Data(), model.WithCurvature(a.cfg.Inputs.Curvature))
}
