package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/msmcount/aggregate"
	"github.com/katalvlaran/msmcount/comm"
	"github.com/katalvlaran/msmcount/comm/local"
	"github.com/katalvlaran/msmcount/sparse"
	"github.com/katalvlaran/msmcount/synth"
)

type simulateFlags struct {
	ranks     int
	numStates int
	length    int
	lag       int
	seed      int64
	stay      float64
	dense     bool
	storePath string
}

func newSimulateCmd(a *app) *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a full reduction in-process over synthetic random walks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("store") {
				a.cfg.Store.Path = f.storePath
			}
			a.cfg.Lag = f.lag
			return a.simulate(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.ranks, "ranks", 4, "number of in-process ranks")
	fl.IntVar(&f.numStates, "num-states", 10, "number of discrete states")
	fl.IntVar(&f.length, "length", 1000, "labels per rank")
	fl.IntVar(&f.lag, "lag", 1, "lag time in frames")
	fl.Int64Var(&f.seed, "seed", 1, "base RNG seed; rank r uses seed+r")
	fl.Float64Var(&f.stay, "stay", synth.DefaultStayProbability, "self-transition probability of the walk")
	fl.BoolVar(&f.dense, "dense", false, "print the total as a dense matrix")
	fl.StringVar(&f.storePath, "store", "", "BadgerDB directory for the result")

	return cmd
}

func (a *app) simulate(cmd *cobra.Command, f simulateFlags) error {
	if f.stay < 0 || f.stay > 1 {
		return fmt.Errorf("simulate: --stay %g outside [0,1]", f.stay)
	}
	var (
		mu    sync.Mutex
		total *sparse.CSC
	)

	err := local.Run(cmd.Context(), f.ranks, func(ctx context.Context, c comm.Communicator) error {
		walk, err := synth.RandomWalk(f.numStates, f.length,
			synth.WithSeed(f.seed+int64(c.Rank())),
			synth.WithStayProbability(f.stay),
			synth.WithStart(c.Rank()))
		if err != nil {
			return err
		}
		counts, err := countAll([][]int{walk}, f.numStates, f.lag)
		if err != nil {
			return err
		}
		agg, err := aggregate.New(c, aggregate.WithLogger(a.log))
		if err != nil {
			return err
		}
		out, err := agg.Reduce(ctx, counts)
		if err != nil {
			return err
		}
		if out != nil {
			mu.Lock()
			total = out
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return err
	}

	printMatrix(cmd, total, f.dense)

	return a.persist(cmd.Context(), cmd, total, f.ranks)
}

func printMatrix(cmd *cobra.Command, m *sparse.CSC, dense bool) {
	out := cmd.OutOrStdout()
	if dense {
		fmt.Fprintf(out, "%v\n", mat.Formatted(m.ToDense(), mat.Squeeze()))
		return
	}
	fmt.Fprint(out, m.String())
}
