package wsnet_test

import (
	"context"
	"testing"
	"time"

	"github.com/katalvlaran/msmcount/comm"
	"github.com/katalvlaran/msmcount/comm/wsnet"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func startHub(t *testing.T, size int) *wsnet.Endpoint {
	t.Helper()
	hub, err := wsnet.Listen("127.0.0.1:0", 0, size, wsnet.WithHandshakeTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = hub.Close() })

	return hub
}

func TestGatherAndTransferOverWebsocket(t *testing.T) {
	const size = 3
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub := startHub(t, size)

	eg, egCtx := errgroup.WithContext(ctx)
	for r := 1; r < size; r++ {
		r := r
		eg.Go(func() error {
			ep, err := wsnet.Dial(egCtx, hub.URL(), r, size)
			if err != nil {
				return err
			}
			defer ep.Close()
			if _, err = ep.Gather(egCtx, 0, comm.SizeReport{Rank: r, NumStates: 4, Nzmax: r}); err != nil {
				return err
			}
			if err = ep.SendInts(egCtx, 0, comm.TagRowIdx, make([]int, r)); err != nil {
				return err
			}
			vals := make([]float64, r)
			for i := range vals {
				vals[i] = float64(10 * r)
			}
			return ep.SendFloats(egCtx, 0, comm.TagValues, vals)
		})
	}

	reports, err := hub.Gather(ctx, 0, comm.SizeReport{Rank: 0, NumStates: 4, Nzmax: 0})
	require.NoError(t, err)
	require.Len(t, reports, size)
	for r := 1; r < size; r++ {
		require.Equal(t, comm.SizeReport{Rank: r, NumStates: 4, Nzmax: r}, reports[r])

		idx := make([]int, reports[r].Nzmax)
		require.NoError(t, hub.RecvInts(ctx, r, comm.TagRowIdx, idx))
		vals := make([]float64, reports[r].Nzmax)
		require.NoError(t, hub.RecvFloats(ctx, r, comm.TagValues, vals))
		for _, v := range vals {
			require.Equal(t, float64(10*r), v)
		}
	}
	require.NoError(t, eg.Wait())
}

// TestLengthMismatchIsProtocolViolation sends more entries than announced.
func TestLengthMismatchIsProtocolViolation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub := startHub(t, 2)

	ep, err := wsnet.Dial(ctx, hub.URL(), 1, 2)
	require.NoError(t, err)
	defer ep.Close()
	require.NoError(t, ep.SendInts(ctx, 0, comm.TagColPtr, []int{0, 1, 2}))

	err = hub.RecvInts(ctx, 1, comm.TagColPtr, make([]int, 2))
	require.ErrorIs(t, err, comm.ErrProtocolViolation)
}

func TestDialRejectsSizeMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub := startHub(t, 2)

	_, err := wsnet.Dial(ctx, hub.URL(), 1, 3)
	require.Error(t, err)
}

func TestDialRejectsDuplicateRank(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub := startHub(t, 3)

	first, err := wsnet.Dial(ctx, hub.URL(), 1, 3)
	require.NoError(t, err)
	defer first.Close()

	_, err = wsnet.Dial(ctx, hub.URL(), 1, 3)
	require.Error(t, err)
}

func TestPeerCloseDrainsThenFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub := startHub(t, 2)

	ep, err := wsnet.Dial(ctx, hub.URL(), 1, 2)
	require.NoError(t, err)
	require.NoError(t, ep.SendFloats(ctx, 0, comm.TagValues, []float64{1.5}))
	require.NoError(t, ep.Close())

	dst := make([]float64, 1)
	require.NoError(t, hub.RecvFloats(ctx, 1, comm.TagValues, dst))
	require.Equal(t, []float64{1.5}, dst)

	err = hub.RecvFloats(ctx, 1, comm.TagValues, dst)
	require.ErrorIs(t, err, comm.ErrClosed)
}

func TestNoRouteBetweenPeers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub := startHub(t, 3)

	ep, err := wsnet.Dial(ctx, hub.URL(), 1, 3)
	require.NoError(t, err)
	defer ep.Close()

	err = ep.SendInts(ctx, 2, comm.TagRowIdx, []int{1})
	require.ErrorIs(t, err, comm.ErrBadRank)
	require.Empty(t, ep.Addr())
}

func TestOptionPanics(t *testing.T) {
	require.Panics(t, func() { wsnet.WithLogger(nil) })
	require.Panics(t, func() { wsnet.WithHandshakeTimeout(0) })
	require.Panics(t, func() { wsnet.WithReadLimit(0) })
}
