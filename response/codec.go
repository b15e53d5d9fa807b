package response

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/optics"
)

// document is the YAML layout of a response matrix:
//
//	variables: [kq4.l1b1, kq5.l1b1]
//	observables:
//	  - {kind: BETX, location: BPM.12L1.B1}
//	values:
//	  - [0.12, -0.03]
type document struct {
	Variables   []string    `yaml:"variables"`
	Observables []keyDoc    `yaml:"observables"`
	Values      [][]float64 `yaml:"values"`
}

type keyDoc struct {
	Kind     string `yaml:"kind"`
	Location string `yaml:"location"`
}

// Decode reads a YAML response matrix.
//
// Errors:
//   - ResponseMatrixFormatError for undecodable YAML, unknown kinds, empty or
//     duplicated labels, or a values table that is ragged or mis-sized.
func Decode(r io.Reader) (*Matrix, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &ResponseMatrixFormatError{Reason: "decode", Err: err}
	}
	if len(doc.Variables) == 0 || len(doc.Observables) == 0 {
		return nil, &ResponseMatrixFormatError{Reason: "no variables or no observables"}
	}

	rows := make([]optics.Key, len(doc.Observables))
	for i, kd := range doc.Observables {
		k, err := optics.ParseKind(kd.Kind)
		if err != nil {
			return nil, &ResponseMatrixFormatError{Label: kd.Kind + "/" + kd.Location, Err: err}
		}
		rows[i] = optics.Key{Kind: k, Location: kd.Location}
	}
	if len(doc.Values) != len(rows) {
		return nil, &ResponseMatrixFormatError{
			Reason: fmt.Sprintf("%d value rows for %d observables", len(doc.Values), len(rows)),
		}
	}
	for i, row := range doc.Values {
		if len(row) != len(doc.Variables) {
			return nil, &ResponseMatrixFormatError{
				Label:  rows[i].String(),
				Reason: fmt.Sprintf("%d values for %d variables", len(row), len(doc.Variables)),
			}
		}
	}
	data, err := matrix.NewDenseRows(doc.Values)
	if err != nil {
		return nil, &ResponseMatrixFormatError{Err: err}
	}

	return New(rows, doc.Variables, data)
}

// Encode writes m as YAML; Decode(Encode(m)) reproduces m.
func Encode(w io.Writer, m *Matrix) error {
	doc := document{
		Variables:   m.Cols(),
		Observables: make([]keyDoc, len(m.rows)),
		Values:      make([][]float64, len(m.rows)),
	}
	for i, k := range m.rows {
		doc.Observables[i] = keyDoc{Kind: string(k.Kind), Location: k.Location}
		row, err := m.data.RawRow(i)
		if err != nil {
			return err
		}
		doc.Values[i] = row
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("response: encode: %w", err)
	}

	return nil
}

// Load reads a YAML response matrix file.
func Load(path string) (*Matrix, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("response: open: %w", err)
	}
	defer fh.Close()

	return Decode(fh)
}

// Save writes m to path as YAML.
func Save(path string, m *Matrix) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("response: create: %w", err)
	}
	if err := Encode(fh, m); err != nil {
		fh.Close()
		return err
	}

	return fh.Close()
}
