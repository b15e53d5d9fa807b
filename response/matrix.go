// SPDX-License-Identifier: MIT
// Package: response
//
// Purpose:
//   - Matrix binds a *matrix.Dense to row (observable key) and column
//     (variable name) labels and keeps label lookups O(1).
//   - Every constructor validates labels: non-empty, well-formed, unique.

package response

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/optics"
)

// Matrix is an immutable labelled response matrix.
type Matrix struct {
	rows   []optics.Key
	cols   []string
	rowIdx map[optics.Key]int
	colIdx map[string]int
	data   *matrix.Dense
}

// New validates labels against data and returns a Matrix that owns a copy of data.
//
// Errors:
//   - ResponseMatrixFormatError for nil data, a shape/label count mismatch,
//     an empty or malformed label, or a duplicated label.
func New(rows []optics.Key, cols []string, data *matrix.Dense) (*Matrix, error) {
	if data == nil {
		return nil, &ResponseMatrixFormatError{Reason: "no values"}
	}
	if data.Rows() != len(rows) || data.Cols() != len(cols) {
		return nil, &ResponseMatrixFormatError{
			Reason: fmt.Sprintf("values are %d×%d, labels %d×%d", data.Rows(), data.Cols(), len(rows), len(cols)),
		}
	}

	m := &Matrix{
		rows:   append([]optics.Key(nil), rows...),
		cols:   append([]string(nil), cols...),
		rowIdx: make(map[optics.Key]int, len(rows)),
		colIdx: make(map[string]int, len(cols)),
		data:   data.Clone().(*matrix.Dense),
	}
	for i, k := range rows {
		if err := k.Validate(); err != nil {
			return nil, &ResponseMatrixFormatError{Label: k.String(), Err: err}
		}
		if _, dup := m.rowIdx[k]; dup {
			return nil, &ResponseMatrixFormatError{Label: k.String(), Reason: "duplicated observable"}
		}
		m.rowIdx[k] = i
	}
	for j, c := range cols {
		if strings.TrimSpace(c) == "" {
			return nil, &ResponseMatrixFormatError{Label: c, Reason: "empty variable name"}
		}
		if _, dup := m.colIdx[c]; dup {
			return nil, &ResponseMatrixFormatError{Label: c, Reason: "duplicated variable"}
		}
		m.colIdx[c] = j
	}

	return m, nil
}

// induced builds a sub-matrix from index sets already known to be valid.
func (m *Matrix) induced(rowsIdx, colsIdx []int) (*Matrix, error) {
	d, err := m.data.Induced(rowsIdx, colsIdx)
	if err != nil {
		return nil, err
	}
	out := &Matrix{
		rows:   make([]optics.Key, len(rowsIdx)),
		cols:   make([]string, len(colsIdx)),
		rowIdx: make(map[optics.Key]int, len(rowsIdx)),
		colIdx: make(map[string]int, len(colsIdx)),
		data:   d,
	}
	for i, ri := range rowsIdx {
		out.rows[i] = m.rows[ri]
		out.rowIdx[m.rows[ri]] = i
	}
	for j, cj := range colsIdx {
		out.cols[j] = m.cols[cj]
		out.colIdx[m.cols[cj]] = j
	}

	return out, nil
}

// Rows returns the observable keys in row order.
func (m *Matrix) Rows() []optics.Key { return append([]optics.Key(nil), m.rows...) }

// Cols returns the variable names in column order.
func (m *Matrix) Cols() []string { return append([]string(nil), m.cols...) }

// Shape returns (rows, cols).
func (m *Matrix) Shape() (int, int) { return len(m.rows), len(m.cols) }

// Data returns the underlying values. Callers must treat it as read-only.
func (m *Matrix) Data() *matrix.Dense { return m.data }

// HasRow reports whether key labels a row.
func (m *Matrix) HasRow(key optics.Key) bool {
	_, ok := m.rowIdx[key]
	return ok
}

// HasCol reports whether name labels a column.
func (m *Matrix) HasCol(name string) bool {
	_, ok := m.colIdx[name]
	return ok
}

// Value returns the element at (key, name).
func (m *Matrix) Value(key optics.Key, name string) (float64, bool) {
	i, ok := m.rowIdx[key]
	if !ok {
		return 0, false
	}
	j, ok := m.colIdx[name]
	if !ok {
		return 0, false
	}
	v, err := m.data.At(i, j)

	return v, err == nil
}
