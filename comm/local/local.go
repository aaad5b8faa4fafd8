// Package local runs every rank of a job inside one process. Each rank gets
// its own comm.Communicator backed by a Mailbox; sends copy the payload into
// the destination mailbox, so no buffer is shared between ranks.
//
// Run drives one goroutine per rank under an errgroup: the first rank to fail
// cancels the shared context, which unblocks every rank waiting in a receive.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/katalvlaran/msmcount/comm"
	"golang.org/x/sync/errgroup"
)

// Group is a set of in-process ranks that can message one another.
type Group struct {
	size  int
	boxes []*comm.Mailbox
}

// NewGroup creates a group of size ranks.
func NewGroup(size int) (*Group, error) {
	if size <= 0 {
		return nil, fmt.Errorf("local.NewGroup: size=%d: %w", size, comm.ErrBadRank)
	}
	boxes := make([]*comm.Mailbox, size)
	for i := range boxes {
		boxes[i] = comm.NewMailbox()
	}

	return &Group{size: size, boxes: boxes}, nil
}

// Size returns the number of ranks.
func (g *Group) Size() int { return g.size }

// Comm returns the endpoint of rank.
func (g *Group) Comm(rank int) (*Comm, error) {
	if err := comm.CheckRank(rank, g.size); err != nil {
		return nil, fmt.Errorf("local.Group.Comm: %w", err)
	}

	return &Comm{rank: rank, group: g}, nil
}

// Comm is one rank's endpoint within a Group.
type Comm struct {
	rank      int
	group     *Group
	closeOnce sync.Once
}

var _ comm.Communicator = (*Comm)(nil)

// Rank returns the rank of this endpoint.
func (c *Comm) Rank() int { return c.rank }

// Size returns the group size.
func (c *Comm) Size() int { return c.group.size }

func (c *Comm) deliver(ctx context.Context, dest int, f comm.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := comm.CheckRank(dest, c.group.size); err != nil {
		return err
	}
	f.Source, f.Dest = c.rank, dest

	return c.group.boxes[dest].Deliver(f)
}

// Gather sends report to root; on root it collects all reports.
func (c *Comm) Gather(ctx context.Context, root int, report comm.SizeReport) ([]comm.SizeReport, error) {
	if err := comm.CheckRank(root, c.group.size); err != nil {
		return nil, err
	}
	if c.rank == root {
		return c.group.boxes[root].CollectReports(ctx, root, c.group.size, report)
	}
	r := report

	return nil, c.deliver(ctx, root, comm.Frame{Tag: comm.TagSize, Report: &r})
}

// SendInts copies data into dest's mailbox.
func (c *Comm) SendInts(ctx context.Context, dest int, tag comm.Tag, data []int) error {
	return c.deliver(ctx, dest, comm.Frame{Tag: tag, Ints: append([]int(nil), data...)})
}

// SendFloats copies data into dest's mailbox.
func (c *Comm) SendFloats(ctx context.Context, dest int, tag comm.Tag, data []float64) error {
	return c.deliver(ctx, dest, comm.Frame{Tag: tag, Floats: append([]float64(nil), data...)})
}

// RecvInts receives an int array of exactly len(dst) from src.
func (c *Comm) RecvInts(ctx context.Context, src int, tag comm.Tag, dst []int) error {
	if err := comm.CheckRank(src, c.group.size); err != nil {
		return err
	}

	return c.group.boxes[c.rank].TakeInts(ctx, src, tag, dst)
}

// RecvFloats receives a float array of exactly len(dst) from src.
func (c *Comm) RecvFloats(ctx context.Context, src int, tag comm.Tag, dst []float64) error {
	if err := comm.CheckRank(src, c.group.size); err != nil {
		return err
	}

	return c.group.boxes[c.rank].TakeFloats(ctx, src, tag, dst)
}

// Close marks this rank as gone in every other mailbox. Frames it already
// sent stay deliverable.
func (c *Comm) Close() error {
	c.closeOnce.Do(func() {
		for r, b := range c.group.boxes {
			if r != c.rank {
				b.CloseSource(c.rank, comm.ErrClosed)
			}
		}
	})

	return nil
}

// Run executes fn once per rank, each in its own goroutine, and waits for all
// of them. A Comm is closed when its fn returns successfully. The first error
// cancels ctx for the remaining ranks and is returned.
func Run(ctx context.Context, size int, fn func(ctx context.Context, c comm.Communicator) error) error {
	g, err := NewGroup(size)
	if err != nil {
		return err
	}
	eg, egCtx := errgroup.WithContext(ctx)
	for r := 0; r < size; r++ {
		c, err := g.Comm(r)
		if err != nil {
			return err
		}
		eg.Go(func() error {
			// a failed rank is not closed here; the errgroup cancellation
			// unblocks its peers after the error has been recorded
			if err := fn(egCtx, c); err != nil {
				return fmt.Errorf("rank %d: %w", c.Rank(), err)
			}
			return c.Close()
		})
	}

	return eg.Wait()
}
