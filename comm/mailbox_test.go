package comm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/katalvlaran/msmcount/comm"
	"github.com/stretchr/testify/require"
)

func TestMailboxFIFOPerSourceAndTag(t *testing.T) {
	b := comm.NewMailbox()
	ctx := context.Background()

	require.NoError(t, b.Deliver(comm.Frame{Source: 1, Tag: comm.TagRowIdx, Ints: []int{1}}))
	require.NoError(t, b.Deliver(comm.Frame{Source: 2, Tag: comm.TagRowIdx, Ints: []int{2}}))
	require.NoError(t, b.Deliver(comm.Frame{Source: 1, Tag: comm.TagRowIdx, Ints: []int{3}}))

	f, err := b.Take(ctx, 2, comm.TagRowIdx)
	require.NoError(t, err)
	require.Equal(t, []int{2}, f.Ints)

	f, err = b.Take(ctx, 1, comm.TagRowIdx)
	require.NoError(t, err)
	require.Equal(t, []int{1}, f.Ints)

	f, err = b.Take(ctx, 1, comm.TagRowIdx)
	require.NoError(t, err)
	require.Equal(t, []int{3}, f.Ints)
}

func TestMailboxTakeBlocksUntilDelivery(t *testing.T) {
	b := comm.NewMailbox()
	done := make(chan []float64, 1)
	go func() {
		dst := make([]float64, 2)
		if err := b.TakeFloats(context.Background(), 3, comm.TagValues, dst); err == nil {
			done <- dst
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, b.Deliver(comm.Frame{Source: 3, Tag: comm.TagValues, Floats: []float64{1, 2}}))

	select {
	case got := <-done:
		require.Equal(t, []float64{1, 2}, got)
	case <-time.After(time.Second):
		t.Fatal("TakeFloats did not return after delivery")
	}
}

func TestMailboxTakeHonorsContext(t *testing.T) {
	b := comm.NewMailbox()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Take(ctx, 0, comm.TagColPtr)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailboxLengthMismatch(t *testing.T) {
	b := comm.NewMailbox()
	ctx := context.Background()
	require.NoError(t, b.Deliver(comm.Frame{Source: 1, Tag: comm.TagColPtr, Ints: []int{0, 1}}))
	require.NoError(t, b.Deliver(comm.Frame{Source: 1, Tag: comm.TagValues, Ints: []int{7}}))

	err := b.TakeInts(ctx, 1, comm.TagColPtr, make([]int, 3))
	require.ErrorIs(t, err, comm.ErrProtocolViolation)

	err = b.TakeFloats(ctx, 1, comm.TagValues, make([]float64, 1))
	require.ErrorIs(t, err, comm.ErrProtocolViolation)
}

// TestMailboxClosedSourceDrainsFirst checks queued frames survive a source close.
func TestMailboxClosedSourceDrainsFirst(t *testing.T) {
	b := comm.NewMailbox()
	ctx := context.Background()
	require.NoError(t, b.Deliver(comm.Frame{Source: 1, Tag: comm.TagRowIdx, Ints: []int{4}}))
	b.CloseSource(1, comm.ErrClosed)

	dst := make([]int, 1)
	require.NoError(t, b.TakeInts(ctx, 1, comm.TagRowIdx, dst))
	require.Equal(t, []int{4}, dst)

	_, err := b.Take(ctx, 1, comm.TagRowIdx)
	require.ErrorIs(t, err, comm.ErrClosed)
}

func TestMailboxCloseWakesWaiters(t *testing.T) {
	b := comm.NewMailbox()
	errc := make(chan error, 1)
	go func() {
		_, err := b.Take(context.Background(), 0, comm.TagSize)
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	boom := errors.New("shutdown")
	b.Close(boom)

	select {
	case err := <-errc:
		require.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("Take did not wake on Close")
	}
	require.ErrorIs(t, b.Deliver(comm.Frame{}), boom)
}

func TestCollectReports(t *testing.T) {
	b := comm.NewMailbox()
	ctx := context.Background()
	require.NoError(t, b.Deliver(comm.Frame{Source: 2, Tag: comm.TagSize, Report: &comm.SizeReport{Rank: 2, NumStates: 4, Nzmax: 9}}))
	require.NoError(t, b.Deliver(comm.Frame{Source: 1, Tag: comm.TagSize, Report: &comm.SizeReport{Rank: 1, NumStates: 4, Nzmax: 3}}))

	got, err := b.CollectReports(ctx, 0, 3, comm.SizeReport{Rank: 0, NumStates: 4, Nzmax: 1})
	require.NoError(t, err)
	require.Equal(t, []comm.SizeReport{
		{Rank: 0, NumStates: 4, Nzmax: 1},
		{Rank: 1, NumStates: 4, Nzmax: 3},
		{Rank: 2, NumStates: 4, Nzmax: 9},
	}, got)
}

func TestCollectReportsRejectsImpostor(t *testing.T) {
	b := comm.NewMailbox()
	require.NoError(t, b.Deliver(comm.Frame{Source: 1, Tag: comm.TagSize, Report: &comm.SizeReport{Rank: 5}}))

	_, err := b.CollectReports(context.Background(), 0, 2, comm.SizeReport{})
	require.ErrorIs(t, err, comm.ErrProtocolViolation)
}

func TestCheckRankAndTagString(t *testing.T) {
	require.NoError(t, comm.CheckRank(0, 1))
	require.ErrorIs(t, comm.CheckRank(1, 1), comm.ErrBadRank)
	require.ErrorIs(t, comm.CheckRank(-1, 4), comm.ErrBadRank)

	require.Equal(t, "colptr", comm.TagColPtr.String())
	require.Equal(t, "rowidx", comm.TagRowIdx.String())
	require.Equal(t, "values", comm.TagValues.String())
	require.Equal(t, "size", comm.TagSize.String())
	require.Equal(t, "tag(9)", comm.Tag(9).String())
}
