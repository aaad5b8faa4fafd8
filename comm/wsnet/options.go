package wsnet

import (
	"io"
	"log/slog"
	"time"
)

// Defaults.
const (
	// DefaultHandshakeTimeout bounds the websocket upgrade plus hello exchange.
	DefaultHandshakeTimeout = 30 * time.Second

	// DefaultReadLimit caps a single frame. JSON-encoded arrays of a few
	// hundred million entries fit comfortably.
	DefaultReadLimit int64 = 1 << 32

	// DefaultBufferSize is the websocket read/write buffer size.
	DefaultBufferSize = 1 << 16
)

const (
	panicNilLogger        = "wsnet: WithLogger: logger must not be nil"
	panicHandshakeTimeout = "wsnet: WithHandshakeTimeout: timeout must be > 0"
	panicReadLimit        = "wsnet: WithReadLimit: limit must be > 0"
)

// Option configures an Endpoint.
type Option func(*options)

type options struct {
	logger           *slog.Logger
	handshakeTimeout time.Duration
	readLimit        int64
}

// WithLogger sets the structured logger. Panics on nil.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic(panicNilLogger)
	}

	return func(o *options) { o.logger = l }
}

// WithHandshakeTimeout bounds the join handshake. Panics if d <= 0.
func WithHandshakeTimeout(d time.Duration) Option {
	if d <= 0 {
		panic(panicHandshakeTimeout)
	}

	return func(o *options) { o.handshakeTimeout = d }
}

// WithReadLimit caps the size in bytes of one incoming frame. Panics if n <= 0.
func WithReadLimit(n int64) Option {
	if n <= 0 {
		panic(panicReadLimit)
	}

	return func(o *options) { o.readLimit = n }
}

func gatherOptions(opts ...Option) options {
	o := options{
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		handshakeTimeout: DefaultHandshakeTimeout,
		readLimit:        DefaultReadLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
