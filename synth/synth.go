// SPDX-License-Identifier: MIT
// Package: msmcount/synth
//
// synth.go: deterministic synthetic state-label sequences.
//
// Generators:
//   • Constant   one state repeated; n-1 self-transitions.
//   • Cycle      0,1,...,numStates-1,0,...; one transition per edge of a ring.
//   • RandomWalk lazy walk on a ring: stay with probability p, else step ±1.
//   • Split      cut one sequence into per-rank chunks.
//
// Determinism:
//   • Stochastic output depends only on the RNG passed via WithSeed/WithRand.
//
// Complexity: O(length) time and space for every generator.

package synth

import "math/rand"

const (
	methodConstant   = "Constant"
	methodCycle      = "Cycle"
	methodRandomWalk = "RandomWalk"
	methodSplit      = "Split"
)

func checkSize(method string, numStates, length int) error {
	if numStates < 1 {
		return synthErrorf(method, "numStates=%d: %w", numStates, ErrTooFewStates)
	}
	if length < 0 {
		return synthErrorf(method, "length=%d: %w", length, ErrBadSize)
	}

	return nil
}

// Constant returns length copies of the start state.
func Constant(numStates, length int, opts ...Option) ([]int, error) {
	if err := checkSize(methodConstant, numStates, length); err != nil {
		return nil, err
	}
	cfg := newConfig(opts...)
	s := cfg.start % numStates
	out := make([]int, length)
	for k := range out {
		out[k] = s
	}

	return out, nil
}

// Cycle walks the ring 0 → 1 → ... → numStates-1 → 0 from the start state.
func Cycle(numStates, length int, opts ...Option) ([]int, error) {
	if err := checkSize(methodCycle, numStates, length); err != nil {
		return nil, err
	}
	cfg := newConfig(opts...)
	out := make([]int, length)
	for k := range out {
		out[k] = (cfg.start + k) % numStates
	}

	return out, nil
}

// RandomWalk draws a lazy nearest-neighbour walk on the ring of numStates
// states. Requires WithSeed or WithRand.
func RandomWalk(numStates, length int, opts ...Option) ([]int, error) {
	if err := checkSize(methodRandomWalk, numStates, length); err != nil {
		return nil, err
	}
	cfg := newConfig(opts...)
	if cfg.rng == nil {
		return nil, synthErrorf(methodRandomWalk, "%w", ErrNeedRandSource)
	}

	out := make([]int, length)
	s := cfg.start % numStates
	for k := range out {
		out[k] = s
		s = step(cfg.rng, s, numStates, cfg.stay)
	}

	return out, nil
}

func step(rng *rand.Rand, s, numStates int, stay float64) int {
	if numStates == 1 || rng.Float64() < stay {
		return s
	}
	if rng.Intn(2) == 0 {
		return (s + 1) % numStates
	}

	return (s - 1 + numStates) % numStates
}

// Split cuts seq into ranks contiguous chunks of near-equal length, the
// first len(seq)%ranks chunks one longer. Chunks share no storage with seq.
// Pairs spanning a cut are not observed by any rank.
func Split(seq []int, ranks int) ([][]int, error) {
	if ranks < 1 {
		return nil, synthErrorf(methodSplit, "ranks=%d: %w", ranks, ErrBadSize)
	}
	out := make([][]int, ranks)
	base, extra := len(seq)/ranks, len(seq)%ranks
	pos := 0
	for r := range out {
		n := base
		if r < extra {
			n++
		}
		out[r] = make([]int, n)
		copy(out[r], seq[pos:pos+n])
		pos += n
	}

	return out, nil
}
