package accelerator

import (
	"fmt"
	"sort"
	"strings"
)

// Options carries the settings of every variant; each variant reads its own fields.
type Options struct {
	Beam          int
	Ring          int
	Energy        float64
	OpticsFile    string
	BeamDirection int    // 0 keeps the variant default
	CatalogPath   string // Generic only
}

type factory func(Options) (Accelerator, error)

var registry = map[string]factory{
	"lhc": func(o Options) (Accelerator, error) {
		l, err := NewLHC(LHCOptions{Beam: o.Beam, Energy: o.Energy, OpticsFile: o.OpticsFile})
		if err != nil {
			return nil, err
		}
		if o.BeamDirection != 0 {
			if err = l.SetBeamDirection(o.BeamDirection); err != nil {
				return nil, err
			}
		}

		return l, nil
	},
	"psb": func(o Options) (Accelerator, error) {
		if o.BeamDirection != 0 && o.BeamDirection != 1 {
			return nil, &DefinitionError{Accelerator: "psb", Reason: "only forward beam direction is supported"}
		}
		return NewPSB(PSBOptions{Ring: o.Ring})
	},
	"generic": func(o Options) (Accelerator, error) {
		if o.CatalogPath == "" {
			return nil, &DefinitionError{Accelerator: "generic", Reason: "catalog path is required"}
		}
		return LoadGeneric(o.CatalogPath)
	},
}

// Names lists the registered variants.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)

	return out
}

// New builds the variant registered under name (case-insensitive).
func New(name string, opts Options) (Accelerator, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%q (known: %s): %w", name, strings.Join(Names(), ", "), ErrUnknownAccelerator)
	}

	return f(opts)
}
