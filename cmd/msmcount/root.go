package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/msmcount/config"
	"github.com/katalvlaran/msmcount/counter"
	"github.com/katalvlaran/msmcount/labels"
	"github.com/katalvlaran/msmcount/sparse"
	"github.com/katalvlaran/msmcount/store"
)

// app carries state shared by every subcommand.
type app struct {
	cfgPath   string
	logLevel  string
	logFormat string

	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "msmcount",
		Short:         "Distributed transition counting for Markov state models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	pf.StringVar(&a.logFormat, "log-format", "", "text or json (overrides config)")

	root.AddCommand(newRunCmd(a), newSimulateCmd(a), newShowCmd(a))

	return root
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	a.cfg = config.Default()
	if a.cfgPath != "" {
		cfg, err := config.Load(a.cfgPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}
	a.log = newLogger(cmd.ErrOrStderr(), a.cfg.Log)

	return nil
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// countAll folds every trajectory into one local matrix.
func countAll(trajectories [][]int, numStates, lag int) (*sparse.CSC, error) {
	c, err := counter.New(numStates, counter.WithLag(lag))
	if err != nil {
		return nil, err
	}
	for _, t := range trajectories {
		if err = c.Add(t); err != nil {
			return nil, err
		}
	}

	return c.Result(), nil
}

// openStore opens the configured store, or returns nil when persistence is
// disabled.
func (a *app) openStore() (*store.Store, error) {
	sc := a.cfg.Store
	if !sc.Enabled() {
		return nil, nil
	}
	cfg := store.DefaultConfig(sc.Path)
	if sc.InMemory {
		cfg = store.InMemoryConfig()
	}
	cfg.Logger = a.log.With("component", "store")

	return store.Open(cfg)
}

// trajectorySource picks the configured label file.
func (a *app) trajectorySource() labels.Source {
	return labels.FileSource{Path: a.cfg.Labels.Path, Stride: a.cfg.Labels.Stride}
}
