// SPDX-License-Identifier: MIT
// Package sparse: sentinel error set.
// This file defines ONLY package-level sentinel errors used across the sparse
// package. Constructors and operations return these sentinels (wrapped with
// method context via %w) and tests check them with errors.Is. No operation
// panics on user-triggered error conditions.

package sparse

import (
	"errors"
	"fmt"
)

// NOTE ON NAMING & PREFIXING
// --------------------------
// Every message is prefixed with "sparse: ..." for consistency and easy
// grepping across logs. Sentinels are never built with formatted strings;
// context is attached at the call site with sparseErrorf.

var (
	// ErrInvalidDimensions is returned when a requested dimension is non-positive.
	ErrInvalidDimensions = errors.New("sparse: dimensions must be > 0")

	// ErrOutOfRange indicates that a row or column index is outside [0, n).
	ErrOutOfRange = errors.New("sparse: index out of range")

	// ErrDimensionMismatch indicates that two operands of Add have different n.
	ErrDimensionMismatch = errors.New("sparse: dimension mismatch")

	// ErrMalformed indicates that compressed-column arrays violate the CSC
	// layout (pointer length, monotonicity, or index/value length agreement).
	ErrMalformed = errors.New("sparse: malformed compressed column arrays")

	// ErrNaNInf signals a NaN or ±Inf value offered as an entry.
	ErrNaNInf = errors.New("sparse: NaN or Inf encountered")

	// ErrNilMatrix indicates that a nil matrix (receiver or argument) was used.
	ErrNilMatrix = errors.New("sparse: nil matrix")
)

// sparseErrorf wraps a sentinel with method context.
// The result has the form "<Method>: <detail>: <sentinel>".
func sparseErrorf(method, format string, args ...any) error {
	return fmt.Errorf("%s: "+format, append([]any{method}, args...)...)
}
