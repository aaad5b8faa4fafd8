package aggregate_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/katalvlaran/msmcount/aggregate"
	"github.com/katalvlaran/msmcount/comm"
	"github.com/katalvlaran/msmcount/comm/local"
	"github.com/katalvlaran/msmcount/counter"
	"github.com/katalvlaran/msmcount/sparse"
)

// ExampleAggregator_Reduce sums two trajectories held by two in-process ranks.
func ExampleAggregator_Reduce() {
	trajectories := [][]int{{0, 1, 1, 2}, {2, 1, 0}}
	var (
		mu    sync.Mutex
		total *sparse.CSC
	)

	err := local.Run(context.Background(), len(trajectories), func(ctx context.Context, c comm.Communicator) error {
		m, err := counter.Count(trajectories[c.Rank()], 3)
		if err != nil {
			return err
		}
		agg, err := aggregate.New(c)
		if err != nil {
			return err
		}
		out, err := agg.Reduce(ctx, m)
		if out != nil {
			mu.Lock()
			total = out
			mu.Unlock()
		}
		return err
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	for _, e := range total.Sort().Entries() {
		fmt.Printf("(%d,%d) %g\n", e.Row, e.Col, e.Value)
	}
	// Output:
	// (1,0) 1
	// (0,1) 1
	// (1,1) 1
	// (2,1) 1
	// (1,2) 1
}
