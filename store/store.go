// SPDX-License-Identifier: MIT

// Package store persists reduced count matrices in an embedded BadgerDB.
//
// Every completed reduction on the coordinator can be saved as one Record
// under the key "counts/<run id>". Records hold the consolidated CSC arrays
// plus the run metadata needed to rebuild and describe the matrix later.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/katalvlaran/msmcount/sparse"
)

const keyPrefix = "counts/"

var (
	// ErrNotFound is returned when no record exists for a run id.
	ErrNotFound = errors.New("store: record not found")

	// ErrInvalidConfig is returned by Open for unusable configurations.
	ErrInvalidConfig = errors.New("store: invalid config")
)

// Config holds configuration for a Store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for tests and simulations.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives BadgerDB's internal messages. Nil disables them.
	Logger *slog.Logger
}

// DefaultConfig returns a durable on-disk configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Record is one persisted reduction result.
type Record struct {
	RunID     string    `json:"run_id"`
	NumStates int       `json:"num_states"`
	Ranks     int       `json:"ranks"`
	Lag       int       `json:"lag"`
	CreatedAt time.Time `json:"created_at"`
	ColPtr    []int     `json:"col_ptr"`
	RowIdx    []int     `json:"row_idx"`
	Values    []float64 `json:"values"`
}

// NewRecord snapshots m. The arrays are copies of m's storage.
func NewRecord(m *sparse.CSC, ranks, lag int) (Record, error) {
	if m == nil {
		return Record{}, fmt.Errorf("store.NewRecord: %w", sparse.ErrNilMatrix)
	}

	return Record{
		NumStates: m.N(),
		Ranks:     ranks,
		Lag:       lag,
		ColPtr:    m.ColPtr(),
		RowIdx:    m.RowIdx(),
		Values:    m.Values(),
	}, nil
}

// Matrix rebuilds the stored matrix, validating the arrays.
func (r Record) Matrix() (*sparse.CSC, error) {
	m, err := sparse.FromArrays(r.NumStates, r.ColPtr, r.RowIdx, r.Values)
	if err != nil {
		return nil, fmt.Errorf("store: record %s: %w", r.RunID, err)
	}

	return m, nil
}

// Summary describes a record without its arrays.
type Summary struct {
	RunID     string
	NumStates int
	Ranks     int
	NNZ       int
	CreatedAt time.Time
}

// Store is a handle to the count database. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens or creates the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("%w: path is required for a persistent store", ErrInvalidConfig)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(runID string) []byte {
	return []byte(keyPrefix + runID)
}

// Save writes rec and returns its run id. An empty RunID is replaced by a
// fresh UUID and a zero CreatedAt by the current time.
func (s *Store) Save(ctx context.Context, rec Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := rec.Matrix(); err != nil {
		return "", err
	}
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("store: encode %s: %w", rec.RunID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.RunID), data)
	})
	if err != nil {
		return "", fmt.Errorf("store: save %s: %w", rec.RunID, err)
	}

	return rec.RunID, nil
}

// Load returns the record saved under runID, or ErrNotFound.
func (s *Store) Load(ctx context.Context, runID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(runID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return Record{}, fmt.Errorf("store: load %s: %w", runID, err)
	}

	return rec, nil
}

// Delete removes the record for runID. Deleting a missing record is not an
// error.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(runID))
	})
}

// List summarizes every stored record, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	var out []Summary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			nnz := 0
			if len(rec.ColPtr) > 0 {
				nnz = rec.ColPtr[len(rec.ColPtr)-1]
			}
			out = append(out, Summary{
				RunID:     rec.RunID,
				NumStates: rec.NumStates,
				Ranks:     rec.Ranks,
				NNZ:       nnz,
				CreatedAt: rec.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}
