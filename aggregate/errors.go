// SPDX-License-Identifier: MIT
// Package: msmcount/aggregate
//
// errors.go: sentinel errors and the rank-tagged error wrapper.
//
// Error policy:
//   • Every failure of Reduce is fatal for the run; nothing is retried and no
//     partial matrix is returned.
//   • Reduce always returns a *RankError naming the detecting rank and the
//     phase; the sentinel stays reachable through errors.Is.

package aggregate

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/msmcount/comm"
)

var (
	// ErrInvalidArgument indicates a nil local matrix, a bad coordinator rank,
	// a negative reported nzmax, or numStates disagreeing across ranks.
	ErrInvalidArgument = errors.New("aggregate: invalid argument")

	// ErrAllocationFailure indicates the coordinator cannot size a receive
	// buffer for a reported nzmax.
	ErrAllocationFailure = errors.New("aggregate: receive buffer allocation failed")
)

// ErrProtocolViolation is the transport sentinel; a received array whose
// length or layout disagrees with the size exchange matches it.
var ErrProtocolViolation = comm.ErrProtocolViolation

// RankError records which rank detected a failure and in which phase.
type RankError struct {
	Rank  int
	Phase Phase
	Err   error
}

// Error implements error.
func (e *RankError) Error() string {
	return fmt.Sprintf("aggregate: rank %d in %s: %v", e.Rank, e.Phase, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *RankError) Unwrap() error { return e.Err }
