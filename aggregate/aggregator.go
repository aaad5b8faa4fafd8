// SPDX-License-Identifier: MIT
// Package: msmcount/aggregate
//
// aggregator.go: master-collects reduction of per-rank count matrices.
//
// Protocol (star topology, coordinator C):
//  1. EXCHANGE_SIZE: every rank, C included, gathers SizeReport{rank,
//     numStates, nzmax} on C. C validates all reports before any bulk data
//     moves: numStates must agree, nzmax must be allocatable.
//  2. TRANSMIT (rank != C): send ColPtr, RowIdx, Values under their own tags,
//     concurrently; return once all three sends have completed. No ack.
//  3. REDUCE (rank == C): for j ascending, j != C, allocate buffers sized by
//     report j, receive the three arrays, rebuild a CSC view, and replace the
//     accumulator with accumulator + view.
//
// Determinism:
//   - Folds run in ascending rank order. Addition is commutative and
//     associative over counts, so the order only fixes buffer sizing and log
//     order, never the result.
//
// Complexity (coordinator):
//   - O(size) sequential folds, each O(n + nnz(acc) + nnz(view)).

package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/katalvlaran/msmcount/comm"
	"github.com/katalvlaran/msmcount/sparse"
	"golang.org/x/sync/errgroup"
)

// Aggregator runs the reduction protocol for one rank.
type Aggregator struct {
	comm  comm.Communicator
	opts  options
	log   *slog.Logger
	phase atomic.Int32
}

// New binds an Aggregator to a communicator.
func New(c comm.Communicator, opts ...Option) (*Aggregator, error) {
	if c == nil {
		return nil, fmt.Errorf("aggregate.New: nil communicator: %w", ErrInvalidArgument)
	}
	o := gatherOptions(opts...)
	if err := comm.CheckRank(o.coordinator, c.Size()); err != nil {
		return nil, fmt.Errorf("aggregate.New: coordinator: %w: %w", ErrInvalidArgument, err)
	}

	return &Aggregator{
		comm: c,
		opts: o,
		log:  o.logger.With("rank", c.Rank(), "size", c.Size()),
	}, nil
}

// Phase returns the current protocol phase.
func (a *Aggregator) Phase() Phase { return Phase(a.phase.Load()) }

// IsCoordinator reports whether this rank collects the global total.
func (a *Aggregator) IsCoordinator() bool { return a.comm.Rank() == a.opts.coordinator }

// Coordinator returns the collecting rank.
func (a *Aggregator) Coordinator() int { return a.opts.coordinator }

func (a *Aggregator) enter(p Phase) {
	a.phase.Store(int32(p))
	a.log.Debug("phase", "phase", p.String())
}

func (a *Aggregator) fail(p Phase, err error) error {
	a.phase.Store(int32(PhaseFailed))
	recordFailure(p)
	a.log.Debug("reduction aborted", "phase", p.String(), "error", err)

	return &RankError{Rank: a.comm.Rank(), Phase: p, Err: err}
}

// Reduce folds every rank's local matrix into one total. On the coordinator
// it returns the entrywise sum of all ranks' matrices; on every other rank it
// returns (nil, nil) once its matrix has been handed to the transport.
// Any failure aborts the reduction and is returned as *RankError.
func (a *Aggregator) Reduce(ctx context.Context, local *sparse.CSC) (*sparse.CSC, error) {
	a.enter(PhaseLocalReady)
	if local == nil {
		return nil, a.fail(PhaseLocalReady, fmt.Errorf("nil local matrix: %w", ErrInvalidArgument))
	}
	// consolidation is required before combination and is idempotent
	local = local.Dedup()

	a.enter(PhaseExchangeSize)
	start := time.Now()
	own := comm.SizeReport{Rank: a.comm.Rank(), NumStates: local.N(), Nzmax: local.Nzmax()}
	reports, err := a.comm.Gather(ctx, a.opts.coordinator, own)
	if err != nil {
		return nil, a.fail(PhaseExchangeSize, fmt.Errorf("gather sizes: %w", err))
	}
	recordPhase(PhaseExchangeSize, time.Since(start).Seconds())

	if !a.IsCoordinator() {
		if err = a.transmit(ctx, local); err != nil {
			return nil, err
		}
		a.enter(PhaseDone)
		return nil, nil
	}

	if err = checkReports(reports, local.N()); err != nil {
		return nil, a.fail(PhaseExchangeSize, err)
	}
	total, err := a.reduce(ctx, local, reports)
	if err != nil {
		return nil, err
	}
	a.enter(PhaseDone)
	a.log.Info("reduction complete", "nnz", total.NNZ(), "mass", total.Sum())

	return total, nil
}

// transmit sends the three CSC arrays to the coordinator concurrently and
// waits for every send to complete. The arrays are private copies, so they
// stay valid for the whole transfer.
func (a *Aggregator) transmit(ctx context.Context, local *sparse.CSC) error {
	a.enter(PhaseTransmit)
	start := time.Now()
	root := a.opts.coordinator
	colPtr, rowIdx, values := local.ColPtr(), local.RowIdx(), local.Values()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.comm.SendInts(gctx, root, comm.TagColPtr, colPtr) })
	g.Go(func() error { return a.comm.SendInts(gctx, root, comm.TagRowIdx, rowIdx) })
	g.Go(func() error { return a.comm.SendFloats(gctx, root, comm.TagValues, values) })
	if err := g.Wait(); err != nil {
		return a.fail(PhaseTransmit, fmt.Errorf("send to coordinator %d: %w", root, err))
	}
	recordPhase(PhaseTransmit, time.Since(start).Seconds())
	a.log.Debug("local matrix sent", "coordinator", root, "nzmax", len(rowIdx))

	return nil
}

// reduce receives every other rank's matrix in ascending rank order and folds
// it into the accumulator.
func (a *Aggregator) reduce(ctx context.Context, local *sparse.CSC, reports []comm.SizeReport) (*sparse.CSC, error) {
	a.enter(PhaseReduce)
	start := time.Now()
	n := local.N()
	acc := local

	for j := range reports {
		if j == a.opts.coordinator {
			continue
		}
		view, err := a.receive(ctx, j, n, reports[j].Nzmax)
		if err != nil {
			return nil, a.fail(PhaseReduce, err)
		}
		sum, err := sparse.Add(acc, view, 1, 1)
		if err != nil {
			return nil, a.fail(PhaseReduce, fmt.Errorf("fold rank %d: %w", j, err))
		}
		// the previous accumulator and the view are dropped here; sum owns
		// its storage
		acc = sum
		recordFold(view.NNZ())
		a.log.Debug("folded contribution", "from", j, "nnz", view.NNZ(), "acc_nnz", acc.NNZ())
	}
	recordPhase(PhaseReduce, time.Since(start).Seconds())

	return acc, nil
}

// receive pulls the three arrays of rank src and rebuilds them as a CSC.
func (a *Aggregator) receive(ctx context.Context, src, n, nzmax int) (*sparse.CSC, error) {
	colPtr, rowIdx, values, err := a.allocate(src, n, nzmax)
	if err != nil {
		return nil, err
	}
	if err = a.comm.RecvInts(ctx, src, comm.TagColPtr, colPtr); err != nil {
		return nil, fmt.Errorf("receive %s from %d: %w", comm.TagColPtr, src, err)
	}
	if err = a.comm.RecvInts(ctx, src, comm.TagRowIdx, rowIdx); err != nil {
		return nil, fmt.Errorf("receive %s from %d: %w", comm.TagRowIdx, src, err)
	}
	if err = a.comm.RecvFloats(ctx, src, comm.TagValues, values); err != nil {
		return nil, fmt.Errorf("receive %s from %d: %w", comm.TagValues, src, err)
	}

	view, err := sparse.FromArrays(n, colPtr, rowIdx, values)
	if err != nil {
		return nil, fmt.Errorf("arrays from %d: %w: %w", src, ErrProtocolViolation, err)
	}

	return view, nil
}

// allocate sizes the receive buffers for one source. A consolidated n×n
// matrix never stores more than n² entries, so larger reports are rejected
// before allocating.
func (a *Aggregator) allocate(src, n, nzmax int) (colPtr, rowIdx []int, values []float64, err error) {
	if int64(nzmax) > int64(n)*int64(n) {
		return nil, nil, nil, fmt.Errorf("rank %d nzmax=%d exceeds %d² entries: %w", src, nzmax, n, ErrAllocationFailure)
	}
	if need := int64(nzmax) * bytesPerEntry; need > a.opts.maxReceiveBytes {
		return nil, nil, nil, fmt.Errorf("rank %d needs %d bytes, limit %d: %w",
			src, need, a.opts.maxReceiveBytes, ErrAllocationFailure)
	}
	defer func() {
		if r := recover(); r != nil {
			colPtr, rowIdx, values = nil, nil, nil
			err = fmt.Errorf("rank %d nzmax=%d: %v: %w", src, nzmax, r, ErrAllocationFailure)
		}
	}()

	return make([]int, n+1), make([]int, nzmax), make([]float64, nzmax), nil
}

// checkReports validates the size exchange before any bulk transfer.
func checkReports(reports []comm.SizeReport, n int) error {
	for r, rep := range reports {
		if rep.Rank != r {
			return fmt.Errorf("report %d claims rank %d: %w", r, rep.Rank, ErrProtocolViolation)
		}
		if rep.NumStates != n {
			return fmt.Errorf("rank %d has numStates=%d, coordinator has %d: %w",
				r, rep.NumStates, n, ErrInvalidArgument)
		}
		if rep.Nzmax < 0 {
			return fmt.Errorf("rank %d reports nzmax=%d: %w", r, rep.Nzmax, ErrInvalidArgument)
		}
	}

	return nil
}
