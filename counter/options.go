// SPDX-License-Identifier: MIT
// Package: msmcount/counter
//
// options.go: functional options for Counter.
//
// Deterministic defaults:
//   • lag          = 1   (adjacent pairs)
//   • capacityHint = 0   (grow on demand)

package counter

// Defaults (single source of truth).
const (
	// DefaultLag counts pairs (labels[k], labels[k+1]).
	DefaultLag = 1

	// DefaultCapacityHint lets the triplet buffer grow on demand.
	DefaultCapacityHint = 0
)

const (
	panicLagInvalid      = "counter: WithLag: lag must be >= 1"
	panicCapacityInvalid = "counter: WithCapacityHint: hint must be >= 0"
)

// Option configures a Counter. Constructors panic on nonsensical values.
type Option func(*options)

type options struct {
	lag          int
	capacityHint int
}

// WithLag counts pairs (labels[k], labels[k+lag]) instead of adjacent pairs.
// Panics if lag < 1.
func WithLag(lag int) Option {
	if lag < 1 {
		panic(panicLagInvalid)
	}

	return func(o *options) { o.lag = lag }
}

// WithCapacityHint preallocates room for hint raw observations.
// Panics if hint < 0.
func WithCapacityHint(hint int) Option {
	if hint < 0 {
		panic(panicCapacityInvalid)
	}

	return func(o *options) { o.capacityHint = hint }
}

// gatherOptions applies opts in order over the defaults.
func gatherOptions(opts ...Option) options {
	o := options{lag: DefaultLag, capacityHint: DefaultCapacityHint}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
