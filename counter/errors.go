// SPDX-License-Identifier: MIT
// Package: msmcount/counter
//
// errors.go: sentinel errors for the counter package.
//
// Error policy:
//   • Only sentinel variables are exposed; callers branch with errors.Is.
//   • Wrapped errors keep the underlying sparse sentinel reachable, so
//     errors.Is(err, sparse.ErrInvalidDimensions) also holds for a bad
//     numStates.

package counter

import "errors"

// ErrInvalidArgument indicates a non-positive numStates or a label outside
// [0, numStates).
var ErrInvalidArgument = errors.New("counter: invalid argument")
