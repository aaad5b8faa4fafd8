// SPDX-License-Identifier: MIT
// Package: msmcount/counter
//
// counter.go: local transition counting.
//
// Contract:
//   - numStates > 0 (else ErrInvalidArgument wrapping sparse.ErrInvalidDimensions).
//   - Every label lies in [0, numStates) (else ErrInvalidArgument wrapping
//     sparse.ErrOutOfRange); a rejected trajectory records nothing.
//   - Each observed pair contributes weight 1.0; self-transitions count.
//   - Pairs never span two trajectories passed to separate Add calls.
//   - Sequences shorter than lag+1 contribute nothing and are not an error.
//
// Complexity:
//   - Add: O(L) per trajectory of length L.
//   - Result: O(numStates + observations).

package counter

import (
	"fmt"

	"github.com/katalvlaran/msmcount/sparse"
)

const (
	methodNew   = "counter.New"
	methodAdd   = "Counter.Add"
	methodCount = "counter.Count"

	unitWeight = 1.0
)

// Counter accumulates transition observations of one process.
type Counter struct {
	numStates int
	lag       int
	trip      *sparse.Triplet
}

// New returns an empty Counter over numStates states.
func New(numStates int, opts ...Option) (*Counter, error) {
	o := gatherOptions(opts...)
	trip, err := sparse.NewTriplet(numStates, o.capacityHint)
	if err != nil {
		return nil, fmt.Errorf("%s(%d): %w: %w", methodNew, numStates, ErrInvalidArgument, err)
	}

	return &Counter{numStates: numStates, lag: o.lag, trip: trip}, nil
}

// NumStates returns the matrix dimension.
func (c *Counter) NumStates() int { return c.numStates }

// Observations returns the number of pairs recorded so far.
func (c *Counter) Observations() int { return c.trip.Len() }

// Add records every (labels[k], labels[k+lag]) pair of one trajectory.
func (c *Counter) Add(labels []int) error {
	// validate up front so a bad trajectory leaves no partial pairs behind
	for k, s := range labels {
		if s < 0 || s >= c.numStates {
			return fmt.Errorf("%s: label[%d]=%d not in [0,%d): %w: %w",
				methodAdd, k, s, c.numStates, ErrInvalidArgument, sparse.ErrOutOfRange)
		}
	}
	for k := 0; k+c.lag < len(labels); k++ {
		if err := c.trip.Entry(labels[k], labels[k+c.lag], unitWeight); err != nil {
			return fmt.Errorf("%s: %w", methodAdd, err)
		}
	}

	return nil
}

// Result returns the consolidated count matrix of everything added so far.
// The Counter stays usable; later Adds do not affect the returned matrix.
func (c *Counter) Result() *sparse.CSC {
	return c.trip.Compress().Dedup()
}

// Count builds the consolidated count matrix of a single label sequence.
func Count(labels []int, numStates int, opts ...Option) (*sparse.CSC, error) {
	opts = append([]Option{WithCapacityHint(max(len(labels)-1, 0))}, opts...)
	c, err := New(numStates, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", methodCount, err)
	}
	if err = c.Add(labels); err != nil {
		return nil, fmt.Errorf("%s: %w", methodCount, err)
	}

	return c.Result(), nil
}
