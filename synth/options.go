// SPDX-License-Identifier: MIT
// Package: msmcount/synth
//
// options.go: functional options for label generators.
//
// Defaults:
//   • rng  = nil (stochastic generators fail with ErrNeedRandSource)
//   • stay = DefaultStayProbability
//   • start = 0

package synth

import "math/rand"

// DefaultStayProbability is the chance that a random walk repeats its state.
const DefaultStayProbability = 0.5

// Option customizes a generator.
type Option func(*config)

type config struct {
	rng   *rand.Rand
	stay  float64
	start int
}

// WithRand supplies the RNG for stochastic generators. Panics on nil.
func WithRand(r *rand.Rand) Option {
	if r == nil {
		panic("synth: WithRand(nil)")
	}

	return func(c *config) { c.rng = r }
}

// WithSeed creates a deterministic RNG from seed.
func WithSeed(seed int64) Option {
	return func(c *config) { c.rng = rand.New(rand.NewSource(seed)) }
}

// WithStayProbability sets the self-transition probability of RandomWalk.
// Panics unless 0 <= p <= 1.
func WithStayProbability(p float64) Option {
	if p < 0 || p > 1 {
		panic("synth: WithStayProbability(p outside [0,1])")
	}

	return func(c *config) { c.stay = p }
}

// WithStart sets the initial state. Panics if s < 0; a start beyond
// numStates is reduced modulo numStates.
func WithStart(s int) Option {
	if s < 0 {
		panic("synth: WithStart(s<0)")
	}

	return func(c *config) { c.start = s }
}

func newConfig(opts ...Option) config {
	c := config{stay: DefaultStayProbability}
	for _, opt := range opts {
		opt(&c)
	}

	return c
}
