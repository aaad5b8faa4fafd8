// SPDX-License-Identifier: MIT
// Package: msmcount/synth
//
// errors.go: sentinel errors for the synth package.
//
// Error policy:
//   • Only sentinel variables are exposed; branch with errors.Is.
//   • Context is attached with %w via synthErrorf.
//   • Generators never panic; option constructors do on meaningless values.

package synth

import (
	"errors"
	"fmt"
)

// ErrTooFewStates indicates numStates < 1.
var ErrTooFewStates = errors.New("synth: numStates too small")

// ErrBadSize indicates a negative sequence length or rank count < 1.
var ErrBadSize = errors.New("synth: invalid size/length")

// ErrNeedRandSource indicates a stochastic generator was called without
// WithSeed or WithRand.
var ErrNeedRandSource = errors.New("synth: rng is required")

// synthErrorf prefixes a wrapped error with the generator name.
func synthErrorf(method, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", method, fmt.Errorf(format, args...))
}
