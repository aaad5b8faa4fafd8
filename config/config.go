// SPDX-License-Identifier: MIT

// Package config loads the YAML run configuration of msmcount.
//
// A file is decoded over Default(), so every key but num_states is optional.
// Callers apply their overrides (command-line flags) and then call Validate,
// which checks go-playground/validator tags plus the rules spanning fields.
//
//	num_states: 100
//	lag: 1
//	rank: 0
//	size: 4
//	coordinator:
//	  rank: 0
//	  listen: ":7077"
//	  url: "ws://head:7077/join"
//	  handshake_timeout: 30s
//	labels:
//	  path: traj/rank0.txt
//	  stride: 1
//	store:
//	  path: /var/lib/msmcount
//	log:
//	  level: info
//	  format: text
//	metrics_addr: ":9102"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the full configuration of one rank.
type Config struct {
	NumStates       int               `yaml:"num_states" validate:"required,gt=0"`
	Lag             int               `yaml:"lag" validate:"gte=1"`
	Rank            int               `yaml:"rank" validate:"gte=0,ltfield=Size"`
	Size            int               `yaml:"size" validate:"gte=1"`
	MaxReceiveBytes int64             `yaml:"max_receive_bytes" validate:"gte=0"`
	Coordinator     CoordinatorConfig `yaml:"coordinator"`
	Labels          LabelsConfig      `yaml:"labels"`
	Store           StoreConfig       `yaml:"store"`
	Log             LogConfig         `yaml:"log"`
	MetricsAddr     string            `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

// CoordinatorConfig locates the collecting rank. The coordinator listens on
// Listen; every other rank dials URL.
type CoordinatorConfig struct {
	Rank             int           `yaml:"rank" validate:"gte=0"`
	Listen           string        `yaml:"listen" validate:"omitempty,hostname_port"`
	URL              string        `yaml:"url" validate:"omitempty,url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"gt=0"`
}

// LabelsConfig points at this rank's trajectory file.
type LabelsConfig struct {
	Path   string `yaml:"path"`
	Stride int    `yaml:"stride" validate:"gte=1"`
}

// StoreConfig enables persistence of the reduced matrix. An empty Path with
// InMemory false disables it.
type StoreConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// Enabled reports whether results should be persisted.
func (s StoreConfig) Enabled() bool { return s.InMemory || s.Path != "" }

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// SlogLevel maps Level onto slog. Unknown values fall back to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns a single-rank configuration with every optional value set.
// NumStates has no default.
func Default() Config {
	return Config{
		Lag:  1,
		Size: 1,
		Coordinator: CoordinatorConfig{
			Listen:           ":7077",
			HandshakeTimeout: 30 * time.Second,
		},
		Labels: LabelsConfig{Stride: 1},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML over Default. An empty document yields Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	return cfg, nil
}

// Validate checks field tags and the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Coordinator.Rank >= c.Size {
		return fmt.Errorf("%w: coordinator.rank %d outside size %d", ErrInvalid, c.Coordinator.Rank, c.Size)
	}
	if c.Size > 1 && c.IsCoordinator() && c.Coordinator.Listen == "" {
		return fmt.Errorf("%w: coordinator.listen is required on the coordinator", ErrInvalid)
	}
	if c.Size > 1 && !c.IsCoordinator() && c.Coordinator.URL == "" {
		return fmt.Errorf("%w: coordinator.url is required on rank %d", ErrInvalid, c.Rank)
	}

	return nil
}

// IsCoordinator reports whether this rank collects the total.
func (c *Config) IsCoordinator() bool { return c.Rank == c.Coordinator.Rank }

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
