// Package comm defines the message-passing surface shared by every rank of a
// run: a fixed rank/size topology, a gather of size reports to one root, and
// tagged point-to-point transfers of int and float64 arrays.
//
// Transports (comm/local for in-process ranks, comm/wsnet for websocket
// connected processes) implement Communicator on top of Mailbox, which pairs
// each receive with the next frame from a given (source, tag).
//
// Send semantics: a Send call returns once the payload has been copied or
// serialized, so the caller may reuse the buffer immediately. Receive calls
// block until a matching frame arrives, the source closes, or ctx is done.
package comm

import (
	"context"
	"fmt"
)

// Tag distinguishes the message kinds of the aggregation protocol.
type Tag int

const (
	// TagColPtr carries the column-pointer array (length n+1).
	TagColPtr Tag = iota
	// TagRowIdx carries the row-index array (length nzmax).
	TagRowIdx
	// TagValues carries the value array (length nzmax).
	TagValues
	// TagSize carries a SizeReport during the gather phase.
	TagSize
)

// String returns the tag name used in logs and errors.
func (t Tag) String() string {
	switch t {
	case TagColPtr:
		return "colptr"
	case TagRowIdx:
		return "rowidx"
	case TagValues:
		return "values"
	case TagSize:
		return "size"
	default:
		return fmt.Sprintf("tag(%d)", int(t))
	}
}

// SizeReport is what every rank tells the root before any bulk transfer.
type SizeReport struct {
	Rank      int `json:"rank"`
	NumStates int `json:"num_states"`
	Nzmax     int `json:"nzmax"`
}

// Frame is the unit moved between ranks. Exactly one of Ints, Floats or
// Report is meaningful, selected by Tag.
type Frame struct {
	Source int         `json:"src"`
	Dest   int         `json:"dst"`
	Tag    Tag         `json:"tag"`
	Ints   []int       `json:"ints,omitempty"`
	Floats []float64   `json:"floats,omitempty"`
	Report *SizeReport `json:"report,omitempty"`
}

// Communicator is the per-rank endpoint of a run.
type Communicator interface {
	// Rank returns this process's rank, 0 <= Rank() < Size().
	Rank() int
	// Size returns the number of ranks in the run.
	Size() int
	// Gather collects one SizeReport per rank on root. On root the result is
	// indexed by rank; on every other rank it is nil.
	Gather(ctx context.Context, root int, report SizeReport) ([]SizeReport, error)
	// SendInts transmits data to dest under tag.
	SendInts(ctx context.Context, dest int, tag Tag, data []int) error
	// SendFloats transmits data to dest under tag.
	SendFloats(ctx context.Context, dest int, tag Tag, data []float64) error
	// RecvInts fills dst with the next int frame from src under tag. The frame
	// length must equal len(dst) exactly.
	RecvInts(ctx context.Context, src int, tag Tag, dst []int) error
	// RecvFloats fills dst with the next float frame from src under tag. The
	// frame length must equal len(dst) exactly.
	RecvFloats(ctx context.Context, src int, tag Tag, dst []float64) error
	// Close releases the endpoint. Frames already sent remain deliverable.
	Close() error
}

// CheckRank validates that r addresses a rank in a run of the given size.
func CheckRank(r, size int) error {
	if r < 0 || r >= size {
		return fmt.Errorf("rank %d with size %d: %w", r, size, ErrBadRank)
	}

	return nil
}
