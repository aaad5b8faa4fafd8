// Package sparse provides the square sparse count matrix used to accumulate
// state-to-state transitions.
//
// The package offers:
//
//   - Triplet: coordinate-form builder that accepts duplicate entries.
//   - CSC: compressed sparse column storage with Dedup (sum duplicates),
//     Transpose/Sort, Add (alpha*A + beta*B), and read-only accessors.
//   - FromArrays: validated reconstruction of a CSC from raw column-pointer,
//     row-index and value buffers, e.g. after a network transfer.
//
// Every structural operation returns a new value; no CSC shares storage with
// another CSC or with caller-provided buffers.
//
// Typical flow:
//
//	t, _ := sparse.NewTriplet(n, len(labels))
//	_ = t.Entry(i, j, 1)
//	counts := t.Compress().Dedup()
//	total, _ := sparse.Add(counts, other, 1, 1)
package sparse
