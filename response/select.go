package response

import (
	"fmt"
	"math"

	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/optics"
)

// Catalog resolves variable categories to variable names.
// An unknown category resolves to no names.
type Catalog interface {
	Variables(classes ...string) []string
}

// Select returns the matrix restricted to the columns of the requested
// categories, in the original column order. Rows are unchanged.
//
// Each category is resolved through catalog (which may be nil). A category
// that is itself a column name (e.g. ORBIT_DPP) selects that column.
// A category with no matching column is an UnknownVariableCategoryError.
func Select(m *Matrix, catalog Catalog, categories []string) (*Matrix, error) {
	if len(categories) == 0 {
		return nil, &UnknownVariableCategoryError{}
	}
	want := make(map[string]bool)
	for _, cat := range categories {
		matched := false
		if catalog != nil {
			for _, name := range catalog.Variables(cat) {
				if m.HasCol(name) {
					want[name] = true
					matched = true
				}
			}
		}
		if m.HasCol(cat) {
			want[cat] = true
			matched = true
		}
		if !matched {
			return nil, &UnknownVariableCategoryError{Category: cat}
		}
	}

	colsIdx := make([]int, 0, len(want))
	for j, c := range m.cols {
		if want[c] {
			colsIdx = append(colsIdx, j)
		}
	}

	return m.induced(identity(len(m.rows)), colsIdx)
}

// Rows returns the matrix with rows restricted and reordered to keys.
// A key without a row is a MissingObservableError with source "response".
func Rows(m *Matrix, keys []optics.Key) (*Matrix, error) {
	rowsIdx := make([]int, len(keys))
	for i, k := range keys {
		ri, ok := m.rowIdx[k]
		if !ok {
			return nil, &optics.MissingObservableError{Key: k, Source: "response"}
		}
		rowsIdx[i] = ri
	}

	return m.induced(rowsIdx, identity(len(m.cols)))
}

// DropNonFinite removes every row whose matrix values or residual value is
// NaN or ±Inf. res.Keys must equal m's rows in order. The returned matrix
// and residuals stay aligned; the dropped keys are reported for logging.
func DropNonFinite(m *Matrix, res *optics.Residuals) (*Matrix, *optics.Residuals, []optics.Key, error) {
	if res.Len() != len(m.rows) {
		return nil, nil, nil, fmt.Errorf("%d residuals for %d rows: %w", res.Len(), len(m.rows), ErrRowMismatch)
	}
	for i, k := range res.Keys {
		if m.rows[i] != k {
			return nil, nil, nil, fmt.Errorf("row %d is %s, residual %s: %w", i, m.rows[i], k, ErrRowMismatch)
		}
	}
	finite, err := matrix.RowFinite(m.data)
	if err != nil {
		return nil, nil, nil, err
	}

	keep := make([]int, 0, len(m.rows))
	var dropped []optics.Key
	for i, ok := range finite {
		v := res.Values[i]
		if ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			keep = append(keep, i)
			continue
		}
		dropped = append(dropped, m.rows[i])
	}
	if len(dropped) == 0 {
		return m, res, nil, nil
	}
	out, err := m.induced(keep, identity(len(m.cols)))
	if err != nil {
		return nil, nil, nil, err
	}

	return out, res.Subset(keep), dropped, nil
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	return idx
}
