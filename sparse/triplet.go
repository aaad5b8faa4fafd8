// SPDX-License-Identifier: MIT
// Package sparse: coordinate (triplet) form used during construction.
//
// A Triplet accumulates (row, col, value) entries in insertion order and
// allows duplicates. It is the write-side of the package: callers add entries
// in bulk, then call Compress to obtain a CSC matrix, then Dedup to sum
// repeated (row, col) pairs.
//
// Determinism:
//   - Compress preserves insertion order inside every column, so the same
//     insertion sequence always yields byte-identical CSC arrays.

package sparse

import "math"

const (
	methodNewTriplet = "NewTriplet"
	methodEntry      = "Triplet.Entry"

	// minTripletCapacity keeps the first Entry from reallocating.
	minTripletCapacity = 1
)

// Triplet is an n×n matrix in coordinate form with duplicates allowed.
type Triplet struct {
	n    int       // dimension (square)
	rows []int     // row index per entry
	cols []int     // column index per entry
	vals []float64 // value per entry
}

// NewTriplet allocates an empty n×n triplet matrix with room for capacity
// entries. A capacity below one is raised to one.
// Stage 1 (Validate): n > 0.
// Stage 2 (Prepare): allocate parallel slices with the requested capacity.
// Complexity: O(capacity) memory.
func NewTriplet(n, capacity int) (*Triplet, error) {
	if n <= 0 {
		return nil, sparseErrorf(methodNewTriplet, "n=%d: %w", n, ErrInvalidDimensions)
	}
	if capacity < minTripletCapacity {
		capacity = minTripletCapacity
	}

	return &Triplet{
		n:    n,
		rows: make([]int, 0, capacity),
		cols: make([]int, 0, capacity),
		vals: make([]float64, 0, capacity),
	}, nil
}

// N returns the dimension of the matrix.
func (t *Triplet) N() int { return t.n }

// Len returns the number of recorded entries, duplicates included.
func (t *Triplet) Len() int { return len(t.vals) }

// Entry records value v at (i, j). Repeated calls for the same (i, j) are kept
// as separate entries until Dedup sums them.
// Returns ErrOutOfRange for indices outside [0, n) and ErrNaNInf for
// non-finite values; the triplet is unchanged on error.
// Complexity: amortized O(1).
func (t *Triplet) Entry(i, j int, v float64) error {
	if i < 0 || i >= t.n || j < 0 || j >= t.n {
		return sparseErrorf(methodEntry, "(%d,%d) with n=%d: %w", i, j, t.n, ErrOutOfRange)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sparseErrorf(methodEntry, "(%d,%d)=%g: %w", i, j, v, ErrNaNInf)
	}
	t.rows = append(t.rows, i)
	t.cols = append(t.cols, j)
	t.vals = append(t.vals, v)

	return nil
}

// Compress converts the triplet into compressed-column form. Duplicates are
// carried over unchanged; call Dedup on the result to consolidate them.
// Stage 1 (Count): tally entries per column.
// Stage 2 (Prefix): cumulative sum into the column pointer.
// Stage 3 (Scatter): place each entry at the next free slot of its column.
// Complexity: O(n + nz) time and memory.
func (t *Triplet) Compress() *CSC {
	nz := len(t.vals)
	colPtr := make([]int, t.n+1)
	rowIdx := make([]int, nz)
	values := make([]float64, nz)

	// column counts, shifted by one so the prefix sum lands in colPtr directly
	for _, j := range t.cols {
		colPtr[j+1]++
	}
	for j := 0; j < t.n; j++ {
		colPtr[j+1] += colPtr[j]
	}

	// next free slot per column
	next := make([]int, t.n)
	copy(next, colPtr[:t.n])
	var p int
	for k := 0; k < nz; k++ {
		p = next[t.cols[k]]
		next[t.cols[k]]++
		rowIdx[p] = t.rows[k]
		values[p] = t.vals[k]
	}

	return &CSC{n: t.n, colPtr: colPtr, rowIdx: rowIdx, values: values}
}
