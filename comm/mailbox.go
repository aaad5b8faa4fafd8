package comm

import (
	"context"
	"fmt"
	"sync"
)

type mailKey struct {
	src int
	tag Tag
}

// Mailbox is the receive side of one rank. Frames are queued per
// (source, tag) in arrival order; Take pops the oldest one.
//
// A closed source still yields its queued frames before reporting the close
// error, so a sender may exit right after its last Send.
type Mailbox struct {
	mu      sync.Mutex
	queues  map[mailKey][]Frame
	waiters map[mailKey]chan struct{}
	srcErr  map[int]error
	err     error // whole mailbox closed
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		queues:  make(map[mailKey][]Frame),
		waiters: make(map[mailKey]chan struct{}),
		srcErr:  make(map[int]error),
	}
}

// Deliver enqueues f under (f.Source, f.Tag) and wakes a waiting Take.
func (b *Mailbox) Deliver(f Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	k := mailKey{src: f.Source, tag: f.Tag}
	b.queues[k] = append(b.queues[k], f)
	b.wakeLocked(k)

	return nil
}

// CloseSource marks src as gone. Takes on src fail with err once its queues
// are drained.
func (b *Mailbox) CloseSource(src int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.srcErr[src]; ok {
		return
	}
	b.srcErr[src] = err
	for k := range b.waiters {
		if k.src == src {
			b.wakeLocked(k)
		}
	}
}

// Close fails every pending and future Take with err.
func (b *Mailbox) Close(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return
	}
	b.err = err
	for k := range b.waiters {
		b.wakeLocked(k)
	}
}

func (b *Mailbox) wakeLocked(k mailKey) {
	if ch, ok := b.waiters[k]; ok {
		close(ch)
		delete(b.waiters, k)
	}
}

// Take blocks until a frame from src under tag is available.
func (b *Mailbox) Take(ctx context.Context, src int, tag Tag) (Frame, error) {
	k := mailKey{src: src, tag: tag}
	for {
		b.mu.Lock()
		if q := b.queues[k]; len(q) > 0 {
			f := q[0]
			q[0] = Frame{}
			b.queues[k] = q[1:]
			b.mu.Unlock()
			return f, nil
		}
		if b.err != nil {
			err := b.err
			b.mu.Unlock()
			return Frame{}, err
		}
		if err, ok := b.srcErr[src]; ok {
			b.mu.Unlock()
			return Frame{}, fmt.Errorf("source %d (%s): %w", src, tag, err)
		}
		ch, ok := b.waiters[k]
		if !ok {
			ch = make(chan struct{})
			b.waiters[k] = ch
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-ch:
		}
	}
}

// TakeInts receives an int frame and copies it into dst, enforcing the
// exact expected length.
func (b *Mailbox) TakeInts(ctx context.Context, src int, tag Tag, dst []int) error {
	f, err := b.Take(ctx, src, tag)
	if err != nil {
		return err
	}
	if f.Floats != nil || f.Report != nil {
		return fmt.Errorf("%s frame from %d carries non-int payload: %w", tag, src, ErrProtocolViolation)
	}
	if len(f.Ints) != len(dst) {
		return fmt.Errorf("%s frame from %d: got %d ints, want %d: %w",
			tag, src, len(f.Ints), len(dst), ErrProtocolViolation)
	}
	copy(dst, f.Ints)

	return nil
}

// TakeFloats receives a float frame and copies it into dst, enforcing the
// exact expected length.
func (b *Mailbox) TakeFloats(ctx context.Context, src int, tag Tag, dst []float64) error {
	f, err := b.Take(ctx, src, tag)
	if err != nil {
		return err
	}
	if f.Ints != nil || f.Report != nil {
		return fmt.Errorf("%s frame from %d carries non-float payload: %w", tag, src, ErrProtocolViolation)
	}
	if len(f.Floats) != len(dst) {
		return fmt.Errorf("%s frame from %d: got %d floats, want %d: %w",
			tag, src, len(f.Floats), len(dst), ErrProtocolViolation)
	}
	copy(dst, f.Floats)

	return nil
}

// CollectReports is the root side of Gather: it places own at index root and
// takes one TagSize frame from every other rank in ascending order.
func (b *Mailbox) CollectReports(ctx context.Context, root, size int, own SizeReport) ([]SizeReport, error) {
	out := make([]SizeReport, size)
	out[root] = own
	for r := 0; r < size; r++ {
		if r == root {
			continue
		}
		f, err := b.Take(ctx, r, TagSize)
		if err != nil {
			return nil, err
		}
		if f.Report == nil {
			return nil, fmt.Errorf("size frame from %d has no report: %w", r, ErrProtocolViolation)
		}
		if f.Report.Rank != r {
			return nil, fmt.Errorf("size frame from %d claims rank %d: %w", r, f.Report.Rank, ErrProtocolViolation)
		}
		out[r] = *f.Report
	}

	return out, nil
}
