// SPDX-License-Identifier: MIT
// Package: msmcount/aggregate
//
// options.go: functional options for Aggregator.
//
// Defaults:
//   • coordinator     = DefaultCoordinator (rank 0)
//   • maxReceiveBytes = DefaultMaxReceiveBytes
//   • logger          = discard

package aggregate

import (
	"io"
	"log/slog"
)

const (
	// DefaultCoordinator is the rank that receives and folds every matrix.
	DefaultCoordinator = 0

	// DefaultMaxReceiveBytes caps one source's row-index plus value buffers.
	DefaultMaxReceiveBytes int64 = 16 << 30

	// bytesPerEntry is one int row index plus one float64 value.
	bytesPerEntry = 16
)

const (
	panicCoordinatorInvalid = "aggregate: WithCoordinator: rank must be >= 0"
	panicMaxReceiveInvalid  = "aggregate: WithMaxReceiveBytes: limit must be > 0"
	panicNilLogger          = "aggregate: WithLogger: logger must not be nil"
)

// Option configures an Aggregator.
type Option func(*options)

type options struct {
	coordinator     int
	maxReceiveBytes int64
	logger          *slog.Logger
}

// WithCoordinator designates the collecting rank. Panics if rank < 0; a rank
// beyond the communicator size is rejected by New.
func WithCoordinator(rank int) Option {
	if rank < 0 {
		panic(panicCoordinatorInvalid)
	}

	return func(o *options) { o.coordinator = rank }
}

// WithMaxReceiveBytes caps the per-source receive allocation on the
// coordinator. Panics if limit <= 0.
func WithMaxReceiveBytes(limit int64) Option {
	if limit <= 0 {
		panic(panicMaxReceiveInvalid)
	}

	return func(o *options) { o.maxReceiveBytes = limit }
}

// WithLogger sets the structured logger. Panics on nil.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic(panicNilLogger)
	}

	return func(o *options) { o.logger = l }
}

func gatherOptions(opts ...Option) options {
	o := options{
		coordinator:     DefaultCoordinator,
		maxReceiveBytes: DefaultMaxReceiveBytes,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
