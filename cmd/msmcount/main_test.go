package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()

	return out.String(), err
}

func TestSimulatePrintsTotal(t *testing.T) {
	out, err := execute(t, "simulate", "--ranks", "3", "--num-states", "4", "--length", "50", "--seed", "9")
	require.NoError(t, err)
	// three walks of 50 labels give 3*49 transitions
	assert.Contains(t, out, "4-by-4")
	assert.Contains(t, out, "mass: 147")
}

func TestSimulateDense(t *testing.T) {
	out, err := execute(t, "simulate", "--ranks", "2", "--num-states", "3", "--length", "10", "--stay", "1", "--dense")
	require.NoError(t, err)
	// rank r stays on state r for 9 steps
	assert.Contains(t, out, "⎡9")
	assert.Contains(t, out, "⎣0")
}

func TestSimulateStoreThenShow(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "simulate", "--ranks", "2", "--num-states", "3", "--length", "20", "--store", dir)
	require.NoError(t, err)
	m := regexp.MustCompile(`run id: (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)

	list, err := execute(t, "show", "--store", dir)
	require.NoError(t, err)
	assert.Contains(t, list, m[1])

	one, err := execute(t, "show", "--store", dir, m[1])
	require.NoError(t, err)
	assert.Contains(t, one, "run "+m[1]+": 2 ranks")
	assert.Contains(t, one, "3-by-3")

	_, err = execute(t, "show", "--store", dir, "missing")
	require.Error(t, err)
}

func TestRunSingleRank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traj.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 1 1 2\n2 1 0\n"), 0o600))

	out, err := execute(t, "run", "--num-states", "3", "--labels", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3-by-3")
	assert.Contains(t, out, "mass: 5")
}

func TestRunFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	traj := filepath.Join(dir, "traj.txt")
	require.NoError(t, os.WriteFile(traj, []byte("3 3 3\n"), 0o600))
	cfg := filepath.Join(dir, "msm.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("num_states: 4\nlabels:\n  path: "+traj+"\n"), 0o600))

	out, err := execute(t, "--config", cfg, "--log-format", "json", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "mass: 2")
}

func TestRunValidation(t *testing.T) {
	_, err := execute(t, "run", "--labels", "x")
	require.Error(t, err, "num_states is required")

	_, err = execute(t, "run", "--num-states", "3")
	require.ErrorContains(t, err, "labels")

	_, err = execute(t, "run", "--num-states", "3", "--labels", "x", "--size", "2", "--rank", "1")
	require.ErrorContains(t, err, "coordinator.url")
}

func TestShowWithoutStore(t *testing.T) {
	_, err := execute(t, "show")
	require.ErrorContains(t, err, "no store")
}
