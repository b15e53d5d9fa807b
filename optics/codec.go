package optics

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// frameDoc is the YAML layout of a Frame:
//
//   - kind: PHASEX
//     entries:
//   - {location: BPM.1, value: 0.251, error: 0.001}
//   - kind: Q
//     entries:
//   - {location: Q1, value: 0.28}
//   - {location: Q2, value: 0.31}
type frameDoc []kindDoc

type kindDoc struct {
	Kind    string     `yaml:"kind"`
	Entries []entryDoc `yaml:"entries"`
}

type entryDoc struct {
	Location string   `yaml:"location"`
	Value    float64  `yaml:"value"`
	Error    float64  `yaml:"error,omitempty"`
	Weight   *float64 `yaml:"weight,omitempty"`
}

// DecodeFrame reads a YAML frame. Missing weights default to 1.
func DecodeFrame(r io.Reader) (*Frame, error) {
	var doc frameDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("optics: decode frame: %w", err)
	}
	f := NewFrame()
	for _, kd := range doc {
		k, err := ParseKind(kd.Kind)
		if err != nil {
			return nil, err
		}
		for _, ed := range kd.Entries {
			e := NewEntry(ed.Value, ed.Error)
			if ed.Weight != nil {
				e.Weight = *ed.Weight
			}
			if err := f.Add(Key{Kind: k, Location: ed.Location}, e); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

// EncodeFrame writes f as YAML in frame order.
func EncodeFrame(w io.Writer, f *Frame) error {
	doc := make(frameDoc, 0, len(f.kinds))
	for _, k := range f.kinds {
		t := f.tables[k]
		kd := kindDoc{Kind: string(k), Entries: make([]entryDoc, len(t.locs))}
		for i, loc := range t.locs {
			e := t.entries[i]
			wt := e.Weight
			kd.Entries[i] = entryDoc{Location: loc, Value: e.Value, Error: e.Error, Weight: &wt}
		}
		doc = append(doc, kd)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("optics: encode frame: %w", err)
	}

	return nil
}

// LoadFrame reads a YAML frame file.
func LoadFrame(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("optics: open frame: %w", err)
	}
	defer fh.Close()

	return DecodeFrame(fh)
}

// SaveFrame writes f to path as YAML.
func SaveFrame(path string, f *Frame) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("optics: create frame: %w", err)
	}
	if err := EncodeFrame(fh, f); err != nil {
		fh.Close()
		return err
	}

	return fh.Close()
}
