package comm

import "errors"

var (
	// ErrBadRank indicates a source, destination or root outside [0, size).
	ErrBadRank = errors.New("comm: rank out of range")

	// ErrProtocolViolation indicates a frame that does not match what the
	// receiver expects: wrong length, missing payload, or wrong sender.
	ErrProtocolViolation = errors.New("comm: protocol violation")

	// ErrClosed indicates the endpoint or the remote source has been closed.
	ErrClosed = errors.New("comm: closed")
)
