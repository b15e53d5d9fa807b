package model

import (
	"fmt"
	"sort"
	"strings"
)

// Correction is an ordered map from variable name to strength delta.
// Names keep first-insertion order. The zero value is an empty correction.
type Correction struct {
	names  []string
	values map[string]float64
}

// NewCorrection returns a correction with every name set to zero.
func NewCorrection(names ...string) Correction {
	var c Correction
	for _, n := range names {
		c.Set(n, 0)
	}

	return c
}

// CorrectionFrom builds a correction from parallel name/value slices.
func CorrectionFrom(names []string, values []float64) (Correction, error) {
	if len(names) != len(values) {
		return Correction{}, fmt.Errorf("model: %d names for %d values: %w", len(names), len(values), ErrLengthMismatch)
	}
	var c Correction
	for i, n := range names {
		c.Set(n, values[i])
	}

	return c, nil
}

// Set stores v for name, appending the name if it is new.
func (c *Correction) Set(name string, v float64) {
	if c.values == nil {
		c.values = make(map[string]float64)
	}
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] = v
}

// Add increments name by v.
func (c *Correction) Add(name string, v float64) {
	c.Set(name, c.values[name]+v)
}

// AddVector increments names[i] by delta[i].
func (c *Correction) AddVector(names []string, delta []float64) error {
	if len(names) != len(delta) {
		return fmt.Errorf("model: %d names for %d deltas: %w", len(names), len(delta), ErrLengthMismatch)
	}
	for i, n := range names {
		c.Add(n, delta[i])
	}

	return nil
}

// Get returns the value stored for name.
func (c Correction) Get(name string) (float64, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Names returns the variable names in insertion order.
func (c Correction) Names() []string {
	return append([]string(nil), c.names...)
}

// Values returns the values aligned with Names.
func (c Correction) Values() []float64 {
	out := make([]float64, len(c.names))
	for i, n := range c.names {
		out[i] = c.values[n]
	}

	return out
}

// Len returns the number of variables.
func (c Correction) Len() int { return len(c.names) }

// Clone returns an independent copy.
func (c Correction) Clone() Correction {
	out := Correction{names: append([]string(nil), c.names...)}
	if c.values != nil {
		out.values = make(map[string]float64, len(c.values))
		for k, v := range c.values {
			out.values[k] = v
		}
	}

	return out
}

// Negate returns a copy with every value sign-flipped.
func (c Correction) Negate() Correction {
	out := c.Clone()
	for k, v := range out.values {
		out.values[k] = -v
	}

	return out
}

// String renders "a=1, b=-0.5" in insertion order.
func (c Correction) String() string {
	parts := make([]string, len(c.names))
	for i, n := range c.names {
		parts[i] = fmt.Sprintf("%s=%g", n, c.values[n])
	}

	return strings.Join(parts, ", ")
}

// Sorted returns the names in lexical order.
func (c Correction) Sorted() []string {
	out := c.Names()
	sort.Strings(out)

	return out
}
