package optics

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Residuals is the output of a comparison: one row per observable, aligned
// with Keys. Values are unweighted differences in Differencer units; Weights
// are applied by the solver.
type Residuals struct {
	Keys    []Key
	Values  []float64
	Errors  []float64
	Weights []float64
}

// Len returns the number of residual rows.
func (r *Residuals) Len() int { return len(r.Keys) }

// Weighted returns w∘r as a new slice.
func (r *Residuals) Weighted() []float64 {
	out := make([]float64, len(r.Values))
	floats.MulTo(out, r.Values, r.Weights)

	return out
}

// WeightedRMS returns sqrt(mean((w∘r)²)), or 0 for an empty set.
func (r *Residuals) WeightedRMS() float64 {
	return WeightedRMS(r.Values, r.Weights)
}

// RMSByKind returns the weighted RMS per parameter kind.
func (r *Residuals) RMSByKind() map[Kind]float64 {
	vals := make(map[Kind][]float64)
	ws := make(map[Kind][]float64)
	for i, k := range r.Keys {
		vals[k.Kind] = append(vals[k.Kind], r.Values[i])
		ws[k.Kind] = append(ws[k.Kind], r.Weights[i])
	}
	out := make(map[Kind]float64, len(vals))
	for k := range vals {
		out[k] = WeightedRMS(vals[k], ws[k])
	}

	return out
}

// Subset returns the rows selected by idx, in idx order.
func (r *Residuals) Subset(idx []int) *Residuals {
	out := &Residuals{
		Keys:    make([]Key, len(idx)),
		Values:  make([]float64, len(idx)),
		Errors:  make([]float64, len(idx)),
		Weights: make([]float64, len(idx)),
	}
	for i, j := range idx {
		out.Keys[i] = r.Keys[j]
		out.Values[i] = r.Values[j]
		out.Errors[i] = r.Errors[j]
		out.Weights[i] = r.Weights[j]
	}

	return out
}

// WeightedRMS returns sqrt(mean((w∘v)²)). A nil w means unit weights.
func WeightedRMS(v, w []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	wv := make([]float64, len(v))
	copy(wv, v)
	if w != nil {
		floats.Mul(wv, w)
	}

	return floats.Norm(wv, 2) / math.Sqrt(float64(len(v)))
}

// Differencer computes residuals between a model and a measurement.
// Configure it once per correction run; it holds no per-call state.
type Differencer struct {
	optional     map[Kind]bool
	paramWeights map[Kind]float64
	useErrorbars bool
	logger       *zap.Logger
}

// Option configures a Differencer.
type Option func(*Differencer)

// WithOptional marks kinds whose absence from the measurement, or whose
// locations absent from the model, are skipped instead of failing.
func WithOptional(kinds ...Kind) Option {
	return func(d *Differencer) {
		for _, k := range kinds {
			d.optional[k] = true
		}
	}
}

// WithParamWeights sets a per-kind weight multiplied into every entry weight.
func WithParamWeights(w map[Kind]float64) Option {
	return func(d *Differencer) {
		for k, v := range w {
			d.paramWeights[k] = v
		}
	}
}

// WithErrorbars divides each weight by the measurement error. Entries without
// a usable error (zero, negative or non-finite, as tunes from SetTunes) are
// divided by the smallest positive error among the selected rows instead, so
// they count as well as the best-measured observable. With no positive error
// anywhere the weights are left as they are.
func WithErrorbars(on bool) Option {
	return func(d *Differencer) { d.useErrorbars = on }
}

// WithLogger sets the logger used for skipped observables.
func WithLogger(l *zap.Logger) Option {
	return func(d *Differencer) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDifferencer returns a Differencer with unit parameter weights, no
// optional kinds and error-bar weighting off.
func NewDifferencer(opts ...Option) *Differencer {
	d := &Differencer{
		optional:     make(map[Kind]bool),
		paramWeights: make(map[Kind]float64),
		logger:       zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}

	return d
}

// Diff is NewDifferencer(opts...).Diff(model, meas, kinds).
func Diff(model, meas *Frame, kinds []Kind, opts ...Option) (*Residuals, error) {
	return NewDifferencer(opts...).Diff(model, meas, kinds)
}

// Diff returns one residual per measured location of each requested kind.
//
// Rows follow the kinds order, then the measurement's location order. Every
// requested kind must be present in both frames and every measured location
// must exist in the model; otherwise a MissingObservableError is returned,
// unless the kind is optional, in which case the absent rows are skipped.
func (d *Differencer) Diff(model, meas *Frame, kinds []Kind) (*Residuals, error) {
	out := &Residuals{}
	for _, k := range kinds {
		if !k.Valid() {
			return nil, &MissingObservableError{Key: Key{Kind: k}, Source: "supported kinds"}
		}
		if !meas.Has(k) {
			if d.optional[k] {
				d.logger.Debug("optional kind absent from measurement", zap.String("kind", string(k)))
				continue
			}
			return nil, &MissingObservableError{Key: Key{Kind: k}, Source: "measurement"}
		}
		if !model.Has(k) {
			if d.optional[k] {
				d.logger.Debug("optional kind absent from model", zap.String("kind", string(k)))
				continue
			}
			return nil, &MissingObservableError{Key: Key{Kind: k}, Source: "model"}
		}

		pw, ok := d.paramWeights[k]
		if !ok {
			pw = 1
		}
		sem := k.Semantics()
		for _, key := range meas.Keys(k) {
			me, _ := meas.Get(key)
			mo, ok := model.Get(key)
			if !ok {
				if d.optional[k] {
					d.logger.Debug("optional observable absent from model", zap.Stringer("key", key))
					continue
				}
				return nil, &MissingObservableError{Key: key, Source: "model"}
			}

			out.Keys = append(out.Keys, key)
			out.Values = append(out.Values, Difference(sem, mo.Value, me.Value))
			out.Errors = append(out.Errors, me.Error)
			out.Weights = append(out.Weights, pw*me.Weight)
		}
	}
	if d.useErrorbars {
		applyErrorbars(out)
	}

	return out, nil
}

// Difference returns meas − model under the given semantics. A Relative
// difference against a zero model value is NaN and must be filtered by the caller.
func Difference(sem Semantics, model, meas float64) float64 {
	raw := meas - model
	switch sem {
	case Angular:
		return Fold(raw)
	case Relative:
		if model == 0 {
			return math.NaN()
		}
		return raw / model
	default:
		return raw
	}
}

// DiffKeys returns residuals for exactly keys, in keys order. Every key must
// exist in both frames; optional kinds do not apply here.
func (d *Differencer) DiffKeys(model, meas *Frame, keys []Key) (*Residuals, error) {
	out := &Residuals{
		Keys:    make([]Key, len(keys)),
		Values:  make([]float64, len(keys)),
		Errors:  make([]float64, len(keys)),
		Weights: make([]float64, len(keys)),
	}
	for i, key := range keys {
		mo, ok := model.Get(key)
		if !ok {
			return nil, &MissingObservableError{Key: key, Source: "model"}
		}
		me, ok := meas.Get(key)
		if !ok {
			return nil, &MissingObservableError{Key: key, Source: "measurement"}
		}
		pw, ok := d.paramWeights[key.Kind]
		if !ok {
			pw = 1
		}
		out.Keys[i] = key
		out.Values[i] = Difference(key.Kind.Semantics(), mo.Value, me.Value)
		out.Errors[i] = me.Error
		out.Weights[i] = pw * me.Weight
	}
	if d.useErrorbars {
		applyErrorbars(out)
	}

	return out, nil
}

func usableError(e float64) bool { return e > 0 && !math.IsInf(e, 0) }

// applyErrorbars divides every weight by its error, substituting the smallest
// usable error for entries that have none.
func applyErrorbars(r *Residuals) {
	floor := math.Inf(1)
	for _, e := range r.Errors {
		if usableError(e) && e < floor {
			floor = e
		}
	}
	if math.IsInf(floor, 1) {
		return
	}
	for i, e := range r.Errors {
		if !usableError(e) {
			e = floor
		}
		r.Weights[i] /= e
	}
}
