// SPDX-License-Identifier: MIT
// Package sparse: matrix addition C = alpha*A + beta*B.
//
// Contract:
//   - A and B must be non-nil and share the same dimension.
//   - The result owns fresh storage; A and B are never mutated.
//   - Duplicates inside a column of A or B are summed, so the result is
//     always consolidated (Nzmax() == NNZ()).
//
// Determinism:
//   - Within a column, rows of A come first in A's order, followed by rows
//     that appear only in B in B's order.

package sparse

const methodAdd = "Add"

// Add returns alpha*a + beta*b.
// Stage 1 (Validate): both operands present and of equal dimension.
// Stage 2 (Execute): per column, scatter a then b into a dense workspace
// keyed by a column mark, then gather the touched rows.
// Stage 3 (Finalize): trim storage to the exact entry count.
// Complexity: O(n + nnz(a) + nnz(b)) time and memory.
func Add(a, b *CSC, alpha, beta float64) (*CSC, error) {
	if a == nil || b == nil {
		return nil, sparseErrorf(methodAdd, "operand: %w", ErrNilMatrix)
	}
	if a.n != b.n {
		return nil, sparseErrorf(methodAdd, "%d vs %d: %w", a.n, b.n, ErrDimensionMismatch)
	}

	n := a.n
	capHint := a.NNZ() + b.NNZ()
	colPtr := make([]int, n+1)
	rowIdx := make([]int, 0, capHint)
	values := make([]float64, 0, capHint)

	mark := make([]int, n) // mark[i] == j+1 when row i is live in column j
	x := make([]float64, n)

	for j := 0; j < n; j++ {
		colPtr[j] = len(rowIdx)
		rowIdx = scatter(a, j, alpha, mark, j+1, x, rowIdx)
		rowIdx = scatter(b, j, beta, mark, j+1, x, rowIdx)
		for p := colPtr[j]; p < len(rowIdx); p++ {
			values = append(values, x[rowIdx[p]])
		}
	}
	colPtr[n] = len(rowIdx)

	nz := len(rowIdx)
	return &CSC{
		n:      n,
		colPtr: colPtr,
		rowIdx: append(make([]int, 0, nz), rowIdx...),
		values: append(make([]float64, 0, nz), values...),
	}, nil
}

// scatter accumulates beta*m[:,j] into x, appending rows seen for the first
// time in this column to rows.
func scatter(m *CSC, j int, beta float64, mark []int, tag int, x []float64, rows []int) []int {
	var i int
	for p := m.colPtr[j]; p < m.colPtr[j+1]; p++ {
		i = m.rowIdx[p]
		if mark[i] < tag {
			mark[i] = tag
			rows = append(rows, i)
			x[i] = beta * m.values[p]
			continue
		}
		x[i] += beta * m.values[p]
	}

	return rows
}
