package optics

import (
	"fmt"
)

// Entry is one observable value with its uncertainty and weight.
// A zero Weight excludes the observable from a fit without removing it.
type Entry struct {
	Value  float64
	Error  float64
	Weight float64
}

// NewEntry returns an Entry with unit weight.
func NewEntry(value, err float64) Entry {
	return Entry{Value: value, Error: err, Weight: 1}
}

type table struct {
	locs    []string
	index   map[string]int
	entries []Entry
}

// Frame is an ordered optics table: entries grouped by kind, locations in
// insertion order. The zero value is not usable; call NewFrame.
//
// A Frame is not safe for concurrent mutation; readers may share it once built.
type Frame struct {
	kinds  []Kind
	tables map[Kind]*table
}

// NewFrame returns an empty Frame.
func NewFrame() *Frame {
	return &Frame{tables: make(map[Kind]*table)}
}

func (f *Frame) tableFor(k Kind) *table {
	t, ok := f.tables[k]
	if !ok {
		t = &table{index: make(map[string]int)}
		f.tables[k] = t
		f.kinds = append(f.kinds, k)
	}

	return t
}

// Add inserts a new observable. Keys are unique within a frame.
func (f *Frame) Add(key Key, e Entry) error {
	if err := key.Validate(); err != nil {
		return err
	}
	t := f.tableFor(key.Kind)
	if _, dup := t.index[key.Location]; dup {
		return fmt.Errorf("%s: %w", key, ErrDuplicateKey)
	}
	t.index[key.Location] = len(t.locs)
	t.locs = append(t.locs, key.Location)
	t.entries = append(t.entries, e)

	return nil
}

// Set inserts or overwrites an observable.
func (f *Frame) Set(key Key, e Entry) error {
	if err := key.Validate(); err != nil {
		return err
	}
	t := f.tableFor(key.Kind)
	if i, ok := t.index[key.Location]; ok {
		t.entries[i] = e
		return nil
	}
	t.index[key.Location] = len(t.locs)
	t.locs = append(t.locs, key.Location)
	t.entries = append(t.entries, e)

	return nil
}

// SetTunes stores both plane tunes under the Tune kind.
func (f *Frame) SetTunes(q1, q2 float64) {
	_ = f.Set(Key{Kind: Tune, Location: TuneX}, NewEntry(q1, 0))
	_ = f.Set(Key{Kind: Tune, Location: TuneY}, NewEntry(q2, 0))
}

// Get returns the entry stored for key.
func (f *Frame) Get(key Key) (Entry, bool) {
	t, ok := f.tables[key.Kind]
	if !ok {
		return Entry{}, false
	}
	i, ok := t.index[key.Location]
	if !ok {
		return Entry{}, false
	}

	return t.entries[i], true
}

// Value returns the value stored for key.
func (f *Frame) Value(key Key) (float64, bool) {
	e, ok := f.Get(key)
	return e.Value, ok
}

// Has reports whether the frame holds any observable of kind k.
func (f *Frame) Has(k Kind) bool {
	_, ok := f.tables[k]
	return ok
}

// Kinds returns the kinds in insertion order.
func (f *Frame) Kinds() []Kind {
	out := make([]Kind, len(f.kinds))
	copy(out, f.kinds)

	return out
}

// Locations returns the locations of kind k in insertion order.
func (f *Frame) Locations(k Kind) []string {
	t, ok := f.tables[k]
	if !ok {
		return nil
	}
	out := make([]string, len(t.locs))
	copy(out, t.locs)

	return out
}

// Keys returns all keys of the given kinds (all kinds when none given),
// kinds in argument order, locations in insertion order.
func (f *Frame) Keys(kinds ...Kind) []Key {
	if len(kinds) == 0 {
		kinds = f.kinds
	}
	var out []Key
	for _, k := range kinds {
		t, ok := f.tables[k]
		if !ok {
			continue
		}
		for _, loc := range t.locs {
			out = append(out, Key{Kind: k, Location: loc})
		}
	}

	return out
}

// Len returns the total number of observables.
func (f *Frame) Len() int {
	n := 0
	for _, t := range f.tables {
		n += len(t.locs)
	}

	return n
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := NewFrame()
	for _, k := range f.kinds {
		t := f.tables[k]
		nt := out.tableFor(k)
		nt.locs = append([]string(nil), t.locs...)
		nt.entries = append([]Entry(nil), t.entries...)
		for loc, i := range t.index {
			nt.index[loc] = i
		}
	}

	return out
}
