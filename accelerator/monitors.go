package accelerator

import (
	"github.com/katalvlaran/opticorr/optics"
)

// AtMonitors returns the observables of f measured at a BPM of acc, and the
// keys it left out. Tunes are global and always kept.
func AtMonitors(acc Accelerator, f *optics.Frame) (*optics.Frame, []optics.Key, error) {
	out := optics.NewFrame()
	var dropped []optics.Key
	for _, k := range f.Kinds() {
		locs := f.Locations(k)
		keep := make([]bool, len(locs))
		if k == optics.Tune {
			for i := range keep {
				keep[i] = true
			}
		} else {
			mask, err := acc.ElementTypesMask(locs, BPMs)
			if err != nil {
				return nil, nil, err
			}
			keep = mask
		}
		for i, loc := range locs {
			key := optics.Key{Kind: k, Location: loc}
			if !keep[i] {
				dropped = append(dropped, key)
				continue
			}
			e, _ := f.Get(key)
			if err := out.Add(key, e); err != nil {
				return nil, nil, err
			}
		}
	}

	return out, dropped, nil
}
