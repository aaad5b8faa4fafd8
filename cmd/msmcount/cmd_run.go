package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/msmcount/aggregate"
	"github.com/katalvlaran/msmcount/comm"
	"github.com/katalvlaran/msmcount/comm/local"
	"github.com/katalvlaran/msmcount/comm/wsnet"
	"github.com/katalvlaran/msmcount/sparse"
	"github.com/katalvlaran/msmcount/store"
)

type runFlags struct {
	numStates   int
	lag         int
	rank        int
	size        int
	coordinator int
	listen      string
	url         string
	labels      string
	stride      int
	storePath   string
	metricsAddr string
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Count this rank's trajectories and join the reduction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.apply(cmd, a)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if a.cfg.Labels.Path == "" {
				return errors.New("run: labels.path (--labels) is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.run(ctx, cmd)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.numStates, "num-states", 0, "number of discrete states")
	fl.IntVar(&f.lag, "lag", 1, "lag time in frames")
	fl.IntVar(&f.rank, "rank", 0, "rank of this process")
	fl.IntVar(&f.size, "size", 1, "number of ranks")
	fl.IntVar(&f.coordinator, "coordinator", 0, "collecting rank")
	fl.StringVar(&f.listen, "listen", "", "coordinator listen address")
	fl.StringVar(&f.url, "coordinator-url", "", "coordinator websocket URL (ws://host:port/join)")
	fl.StringVar(&f.labels, "labels", "", "trajectory label file")
	fl.IntVar(&f.stride, "stride", 1, "keep every stride-th frame")
	fl.StringVar(&f.storePath, "store", "", "BadgerDB directory for the result")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (f *runFlags) apply(cmd *cobra.Command, a *app) {
	fl := cmd.Flags()
	set := func(name string, fn func()) {
		if fl.Changed(name) {
			fn()
		}
	}
	set("num-states", func() { a.cfg.NumStates = f.numStates })
	set("lag", func() { a.cfg.Lag = f.lag })
	set("rank", func() { a.cfg.Rank = f.rank })
	set("size", func() { a.cfg.Size = f.size })
	set("coordinator", func() { a.cfg.Coordinator.Rank = f.coordinator })
	set("listen", func() { a.cfg.Coordinator.Listen = f.listen })
	set("coordinator-url", func() { a.cfg.Coordinator.URL = f.url })
	set("labels", func() { a.cfg.Labels.Path = f.labels })
	set("stride", func() { a.cfg.Labels.Stride = f.stride })
	set("store", func() { a.cfg.Store.Path = f.storePath })
	set("metrics-addr", func() { a.cfg.MetricsAddr = f.metricsAddr })
}

func (a *app) run(ctx context.Context, cmd *cobra.Command) error {
	cfg := a.cfg
	log := a.log.With("rank", cfg.Rank)

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, a)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	trajectories, err := a.trajectorySource().Trajectories(ctx)
	if err != nil {
		return err
	}
	counts, err := countAll(trajectories, cfg.NumStates, cfg.Lag)
	if err != nil {
		return err
	}
	log.Info("local counts ready", "trajectories", len(trajectories), "nnz", counts.NNZ())

	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	opts := []aggregate.Option{
		aggregate.WithCoordinator(cfg.Coordinator.Rank),
		aggregate.WithLogger(a.log),
	}
	if cfg.MaxReceiveBytes > 0 {
		opts = append(opts, aggregate.WithMaxReceiveBytes(cfg.MaxReceiveBytes))
	}
	agg, err := aggregate.New(c, opts...)
	if err != nil {
		return err
	}
	total, err := agg.Reduce(ctx, counts)
	if err != nil {
		return err
	}
	if total == nil {
		log.Info("contribution delivered", "coordinator", cfg.Coordinator.Rank)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), total.String())

	return a.persist(ctx, cmd, total, cfg.Size)
}

// connect builds the communicator for this rank. A single-rank run needs no
// network.
func (a *app) connect(ctx context.Context) (comm.Communicator, error) {
	cfg := a.cfg
	if cfg.Size == 1 {
		g, err := local.NewGroup(1)
		if err != nil {
			return nil, err
		}
		return g.Comm(0)
	}

	opts := []wsnet.Option{
		wsnet.WithLogger(a.log),
		wsnet.WithHandshakeTimeout(cfg.Coordinator.HandshakeTimeout),
	}
	if cfg.IsCoordinator() {
		return wsnet.Listen(cfg.Coordinator.Listen, cfg.Rank, cfg.Size, opts...)
	}

	return wsnet.Dial(ctx, cfg.Coordinator.URL, cfg.Rank, cfg.Size, opts...)
}

func serveMetrics(addr string, a *app) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", "error", err)
		}
	}()

	return srv
}

// persist saves total when a store is configured and prints the run id.
func (a *app) persist(ctx context.Context, cmd *cobra.Command, total *sparse.CSC, ranks int) error {
	st, err := a.openStore()
	if err != nil || st == nil {
		return err
	}
	defer st.Close()

	rec, err := store.NewRecord(total, ranks, a.cfg.Lag)
	if err != nil {
		return err
	}
	id, err := st.Save(ctx, rec)
	if err != nil {
		return err
	}
	a.log.Info("result stored", "run_id", id)
	fmt.Fprintf(cmd.OutOrStdout(), "run id: %s\n", id)

	return nil
}
