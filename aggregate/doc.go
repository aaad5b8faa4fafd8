// Package aggregate sums per-rank transition count matrices into one global
// matrix on a coordinator rank.
//
// The protocol is a two-phase star: a gather of SizeReports tells the
// coordinator how large every incoming payload is, then each non-coordinator
// sends its three CSC arrays (column pointers, row indices, values) under
// distinct tags and the coordinator folds them in ascending rank order with
// sparse addition.
//
// Usage (every rank):
//
//	local, err := counter.Count(labels, numStates)
//	agg, err := aggregate.New(c, aggregate.WithLogger(log))
//	total, err := agg.Reduce(ctx, local) // non-nil on the coordinator only
//
// A stalled or crashed rank blocks the reduction until ctx ends; there is no
// retry and no partial result.
package aggregate
