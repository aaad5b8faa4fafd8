// Package labels supplies discretized trajectories, one ordered label
// sequence per trajectory, to the local counter.
//
// The text format holds one trajectory per line as whitespace-separated
// non-negative integers. Blank lines and lines starting with '#' are skipped.
// A stride k keeps frames 0, k, 2k, ... of every trajectory.
package labels

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrBadLabel reports a token that is not a non-negative integer.
	ErrBadLabel = errors.New("labels: bad label")

	// ErrBadStride reports a stride below 1.
	ErrBadStride = errors.New("labels: stride must be >= 1")
)

// maxLineBytes bounds one trajectory line.
const maxLineBytes = 256 << 20

// Source yields the trajectories of one rank.
type Source interface {
	Trajectories(ctx context.Context) ([][]int, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([][]int, error)

// Trajectories calls f.
func (f SourceFunc) Trajectories(ctx context.Context) ([][]int, error) { return f(ctx) }

// Static is a fixed in-memory set of trajectories.
type Static [][]int

// Trajectories returns a deep copy of s.
func (s Static) Trajectories(context.Context) ([][]int, error) {
	out := make([][]int, len(s))
	for i, t := range s {
		out[i] = append([]int(nil), t...)
	}

	return out, nil
}

// FileSource reads the text format from Path.
type FileSource struct {
	Path   string
	Stride int
}

// Trajectories opens Path and parses it.
func (f FileSource) Trajectories(ctx context.Context) ([][]int, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("labels: open %s: %w", f.Path, err)
	}
	defer fh.Close()

	out, err := Parse(ctx, fh, f.Stride)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}

	return out, nil
}

// Parse reads trajectories from r, keeping every stride-th frame.
func Parse(ctx context.Context, r io.Reader, stride int) ([][]int, error) {
	if stride < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadStride, stride)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	var out [][]int
	for line := 1; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		traj := make([]int, 0, (len(fields)+stride-1)/stride)
		for k := 0; k < len(fields); k += stride {
			v, err := strconv.Atoi(fields[k])
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%w: line %d field %d: %q", ErrBadLabel, line, k+1, fields[k])
			}
			traj = append(traj, v)
		}
		out = append(out, traj)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("labels: read: %w", err)
	}

	return out, nil
}

// Write renders trajectories in the text format Parse reads.
func Write(w io.Writer, trajectories [][]int) error {
	bw := bufio.NewWriter(w)
	for _, t := range trajectories {
		for k, v := range t {
			if k > 0 {
				_ = bw.WriteByte(' ')
			}
			_, _ = bw.WriteString(strconv.Itoa(v))
		}
		_ = bw.WriteByte('\n')
	}

	return bw.Flush()
}
