package aggregate

import "fmt"

// Phase is the protocol state of one rank.
//
//	LocalReady ──► ExchangeSize ──► Transmit (non-coordinator) ──► Done
//	                              └► Reduce   (coordinator)     ──► Done
//
// Any step may end in Failed.
type Phase int32

const (
	PhaseLocalReady Phase = iota
	PhaseExchangeSize
	PhaseTransmit
	PhaseReduce
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseLocalReady:   "local_ready",
	PhaseExchangeSize: "exchange_size",
	PhaseTransmit:     "transmit",
	PhaseReduce:       "reduce",
	PhaseDone:         "done",
	PhaseFailed:       "failed",
}

// String returns the snake_case phase name used in logs and metric labels.
func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}

	return fmt.Sprintf("phase(%d)", int32(p))
}
