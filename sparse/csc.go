// SPDX-License-Identifier: MIT
// Package sparse: compressed sparse column (CSC) storage.
//
// CSC is an owned value: three ordered buffers plus the dimension. Every
// operation that changes structure (Dedup, Add, Transpose, Sort) returns a new
// CSC with independent storage; receivers and operands are never mutated.
//
// Layout (n = dimension, nnz = ColPtr[n], nzmax = len(RowIdx)):
//   - ColPtr: length n+1, ColPtr[0] == 0, non-decreasing, ColPtr[n] <= nzmax.
//   - RowIdx: length nzmax; RowIdx[p] in [0, n) for p < nnz.
//   - Values: length nzmax.
//
// nzmax is an upper bound on the stored entries. After Dedup it equals the
// true number of distinct (row, col) pairs.

package sparse

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

const (
	methodNewZero    = "NewZero"
	methodFromArrays = "FromArrays"
	methodAt         = "CSC.At"
)

// CSC is a square sparse matrix in compressed sparse column form.
type CSC struct {
	n      int       // dimension (square)
	colPtr []int     // column pointers, len n+1
	rowIdx []int     // row indices, len nzmax
	values []float64 // values, len nzmax
}

// Entry is one stored (row, col, value) triple.
type Entry struct {
	Row   int
	Col   int
	Value float64
}

// NewZero returns an n×n matrix with no stored entries.
// Complexity: O(n).
func NewZero(n int) (*CSC, error) {
	if n <= 0 {
		return nil, sparseErrorf(methodNewZero, "n=%d: %w", n, ErrInvalidDimensions)
	}

	return &CSC{n: n, colPtr: make([]int, n+1), rowIdx: []int{}, values: []float64{}}, nil
}

// FromArrays builds a CSC from raw compressed-column buffers, typically ones
// received from another process. The buffers are validated and copied; the
// returned matrix never aliases caller memory.
// Stage 1 (Validate): n > 0, len(colPtr) == n+1, len(rowIdx) == len(values).
// Stage 2 (Validate): ColPtr starts at 0, is non-decreasing, ends <= nzmax.
// Stage 3 (Validate): every stored row index lies in [0, n).
// Stage 4 (Finalize): deep copy.
// Complexity: O(n + nzmax).
func FromArrays(n int, colPtr, rowIdx []int, values []float64) (*CSC, error) {
	if n <= 0 {
		return nil, sparseErrorf(methodFromArrays, "n=%d: %w", n, ErrInvalidDimensions)
	}
	if len(colPtr) != n+1 {
		return nil, sparseErrorf(methodFromArrays, "len(colPtr)=%d, want %d: %w", len(colPtr), n+1, ErrMalformed)
	}
	if len(rowIdx) != len(values) {
		return nil, sparseErrorf(methodFromArrays, "len(rowIdx)=%d != len(values)=%d: %w",
			len(rowIdx), len(values), ErrMalformed)
	}
	if colPtr[0] != 0 {
		return nil, sparseErrorf(methodFromArrays, "colPtr[0]=%d: %w", colPtr[0], ErrMalformed)
	}
	for j := 0; j < n; j++ {
		if colPtr[j+1] < colPtr[j] {
			return nil, sparseErrorf(methodFromArrays, "colPtr decreases at column %d: %w", j, ErrMalformed)
		}
	}
	nnz := colPtr[n]
	if nnz > len(rowIdx) {
		return nil, sparseErrorf(methodFromArrays, "nnz=%d exceeds nzmax=%d: %w", nnz, len(rowIdx), ErrMalformed)
	}
	for p := 0; p < nnz; p++ {
		if rowIdx[p] < 0 || rowIdx[p] >= n {
			return nil, sparseErrorf(methodFromArrays, "row %d at position %d with n=%d: %w",
				rowIdx[p], p, n, ErrOutOfRange)
		}
	}

	return &CSC{
		n:      n,
		colPtr: append([]int(nil), colPtr...),
		rowIdx: append(make([]int, 0, len(rowIdx)), rowIdx...),
		values: append(make([]float64, 0, len(values)), values...),
	}, nil
}

// N returns the dimension.
func (m *CSC) N() int { return m.n }

// Nzmax returns the allocated entry capacity, len(RowIdx()).
func (m *CSC) Nzmax() int { return len(m.rowIdx) }

// NNZ returns the number of stored entries, ColPtr()[N()].
func (m *CSC) NNZ() int { return m.colPtr[m.n] }

// ColPtr returns a copy of the column pointer array (length N()+1).
func (m *CSC) ColPtr() []int { return append([]int(nil), m.colPtr...) }

// RowIdx returns a copy of the row index array (length Nzmax()).
func (m *CSC) RowIdx() []int { return append(make([]int, 0, len(m.rowIdx)), m.rowIdx...) }

// Values returns a copy of the value array (length Nzmax()).
func (m *CSC) Values() []float64 { return append(make([]float64, 0, len(m.values)), m.values...) }

// Clone returns a deep copy.
func (m *CSC) Clone() *CSC {
	return &CSC{n: m.n, colPtr: m.ColPtr(), rowIdx: m.RowIdx(), values: m.Values()}
}

// Dedup consolidates duplicate (row, col) entries by summation and trims the
// storage so that Nzmax() == NNZ(). Within a column, rows keep the order of
// their first occurrence. Dedup is idempotent.
// Stage 1 (Prepare): workspace w[i] = position of row i in the current column.
// Stage 2 (Execute): per column, sum into the first slot or append a new one.
// Stage 3 (Finalize): exact-size copy of the compacted buffers.
// Complexity: O(n + nnz) time, O(n + nnz) memory.
func (m *CSC) Dedup() *CSC {
	n := m.n
	colPtr := make([]int, n+1)
	rowIdx := make([]int, m.NNZ())
	values := make([]float64, m.NNZ())

	w := make([]int, n)
	for i := range w {
		w[i] = -1 // no row seen yet
	}

	var i, nz, q int
	for j := 0; j < n; j++ {
		q = nz // start of column j in the output
		for p := m.colPtr[j]; p < m.colPtr[j+1]; p++ {
			i = m.rowIdx[p]
			if w[i] >= q {
				values[w[i]] += m.values[p] // repeated row in this column
				continue
			}
			w[i] = nz
			rowIdx[nz] = i
			values[nz] = m.values[p]
			nz++
		}
		colPtr[j] = q
	}
	colPtr[n] = nz

	return &CSC{
		n:      n,
		colPtr: colPtr,
		rowIdx: append(make([]int, 0, nz), rowIdx[:nz]...),
		values: append(make([]float64, 0, nz), values[:nz]...),
	}
}

// Transpose returns the transpose. Row indices of the result are sorted
// ascending inside every column.
// Complexity: O(n + nnz).
func (m *CSC) Transpose() *CSC {
	n, nnz := m.n, m.NNZ()
	colPtr := make([]int, n+1)
	rowIdx := make([]int, nnz)
	values := make([]float64, nnz)

	for p := 0; p < nnz; p++ {
		colPtr[m.rowIdx[p]+1]++ // row counts become column counts
	}
	for i := 0; i < n; i++ {
		colPtr[i+1] += colPtr[i]
	}
	next := make([]int, n)
	copy(next, colPtr[:n])

	var q int
	for j := 0; j < n; j++ {
		for p := m.colPtr[j]; p < m.colPtr[j+1]; p++ {
			q = next[m.rowIdx[p]]
			next[m.rowIdx[p]]++
			rowIdx[q] = j
			values[q] = m.values[p]
		}
	}

	return &CSC{n: n, colPtr: colPtr, rowIdx: rowIdx, values: values}
}

// Sort returns a copy whose row indices are ascending inside every column.
// Implemented as a double transpose.
func (m *CSC) Sort() *CSC {
	return m.Transpose().Transpose()
}

// At returns the value at (i, j), summing duplicates if the matrix has not
// been consolidated. Missing entries read as zero.
// Complexity: O(entries in column j).
func (m *CSC) At(i, j int) (float64, error) {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		return 0, sparseErrorf(methodAt, "(%d,%d) with n=%d: %w", i, j, m.n, ErrOutOfRange)
	}
	var v float64
	for p := m.colPtr[j]; p < m.colPtr[j+1]; p++ {
		if m.rowIdx[p] == i {
			v += m.values[p]
		}
	}

	return v, nil
}

// Sum returns the sum of all stored values (the total count mass).
func (m *CSC) Sum() float64 {
	var s float64
	for p := 0; p < m.NNZ(); p++ {
		s += m.values[p]
	}

	return s
}

// Entries lists the stored entries in column-major storage order.
func (m *CSC) Entries() []Entry {
	out := make([]Entry, 0, m.NNZ())
	for j := 0; j < m.n; j++ {
		for p := m.colPtr[j]; p < m.colPtr[j+1]; p++ {
			out = append(out, Entry{Row: m.rowIdx[p], Col: j, Value: m.values[p]})
		}
	}

	return out
}

// Equal reports whether m and other hold the same consolidated entries.
// Storage order and slack capacity are ignored.
func (m *CSC) Equal(other *CSC) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.n != other.n {
		return false
	}
	a, b := m.Dedup().Sort(), other.Dedup().Sort()
	if a.NNZ() != b.NNZ() {
		return false
	}
	for j := 0; j <= a.n; j++ {
		if a.colPtr[j] != b.colPtr[j] {
			return false
		}
	}
	for p := 0; p < a.NNZ(); p++ {
		if a.rowIdx[p] != b.rowIdx[p] || a.values[p] != b.values[p] {
			return false
		}
	}

	return true
}

// ToDense expands the matrix into a gonum dense matrix. Duplicates are summed.
// Complexity: O(n² + nnz) memory and time.
func (m *CSC) ToDense() *mat.Dense {
	d := mat.NewDense(m.n, m.n, nil)
	for j := 0; j < m.n; j++ {
		for p := m.colPtr[j]; p < m.colPtr[j+1]; p++ {
			d.Set(m.rowIdx[p], j, d.At(m.rowIdx[p], j)+m.values[p])
		}
	}

	return d
}

// String renders a column-by-column listing of stored entries.
func (m *CSC) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d-by-%d, nzmax: %d nnz: %d, mass: %g\n", m.n, m.n, m.Nzmax(), m.NNZ(), m.Sum())
	for j := 0; j < m.n; j++ {
		if m.colPtr[j] == m.colPtr[j+1] {
			continue
		}
		fmt.Fprintf(&b, "    col %d : locations %d to %d\n", j, m.colPtr[j], m.colPtr[j+1]-1)
		for p := m.colPtr[j]; p < m.colPtr[j+1]; p++ {
			fmt.Fprintf(&b, "      %d : %g\n", m.rowIdx[p], m.values[p])
		}
	}

	return b.String()
}
