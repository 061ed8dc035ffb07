package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const smallConfig = `
seed: 11
augment: 250
draws: 100
simulate:
  nsuper: 150
  phi: [0.8, 0.8, 0.8, 0.8]
  p: [0.6, 0.6, 0.6, 0.6, 0.6]
  entry: [0.4, 0.15, 0.15, 0.15, 0.15]
`

func TestLoadConfig(t *testing.T) {

	dir := t.TempDir()

	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)

	cfg, err = loadConfig(writeFile(t, dir, "small.yaml", smallConfig))
	require.NoError(t, err)
	require.Equal(t, uint64(11), cfg.Seed)
	require.Equal(t, 250, cfg.Augment)
	require.Equal(t, 150, cfg.Simulate.NSuper)
	require.Len(t, cfg.Simulate.P, 5)
	require.Equal(t, defaultConfig().Sigma, cfg.Sigma)

	cfg, err = loadConfig(writeFile(t, dir, "empty.yaml", ""))
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)

	_, err = loadConfig(writeFile(t, dir, "typo.yaml", "augmnet: 3\n"))
	require.Error(t, err)

	_, err = loadConfig(writeFile(t, dir, "bad.yaml", "sigma: 7\n"))
	require.Error(t, err)

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestSimulateFitSummary(t *testing.T) {

	dir := t.TempDir()
	config := writeFile(t, dir, "small.yaml", smallConfig)
	csv := filepath.Join(dir, "hist.csv")
	db := filepath.Join(dir, "draws.db")
	metrics := filepath.Join(dir, "jsfit.prom")

	_, stderr, err := execute(t, "simulate", "--config", config, "-o", csv)
	require.NoError(t, err)
	require.Contains(t, stderr, "Nsuper=150")

	data, err := os.ReadFile(csv)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "y1,y2,y3,y4,y5"))

	stdout, _, err := execute(t, "fit", csv, "--config", config, "--db", db, "--run", "first",
		"--metrics", metrics)
	require.NoError(t, err)
	for _, s := range []string{"Jolly-Seber", "mean_phi", "Nsuper", "N[5]", "Stored 100 draws as run first"} {
		require.Contains(t, stdout, s)
	}

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	require.Contains(t, string(prom), "jsfit_draws_total 100")
	require.Contains(t, string(prom), `jsfit_rows{kind="augmented"} 250`)

	stdout, _, err = execute(t, "summary", "--db", db)
	require.NoError(t, err)
	require.Equal(t, "first\n", stdout)

	stdout, _, err = execute(t, "summary", "--db", db, "--run", "first")
	require.NoError(t, err)
	require.Contains(t, stdout, "Run first")
	require.Contains(t, stdout, "Draws: 100")
	require.Contains(t, stdout, "B[3]")
}

func TestSeedFlag(t *testing.T) {

	dir := t.TempDir()
	config := writeFile(t, dir, "small.yaml", smallConfig)

	out1, _, err := execute(t, "simulate", "--config", config, "--seed", "5")
	require.NoError(t, err)
	out2, _, err := execute(t, "simulate", "--config", config, "--seed", "5")
	require.NoError(t, err)
	out3, _, err := execute(t, "simulate", "--config", config, "--seed", "6")
	require.NoError(t, err)

	require.Equal(t, out1, out2)
	require.NotEqual(t, out1, out3)
}

func TestCommandErrors(t *testing.T) {

	dir := t.TempDir()

	_, _, err := execute(t, "fit", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)

	_, _, err = execute(t, "fit")
	require.Error(t, err)

	csv := writeFile(t, dir, "bad.csv", "y1,y2\n1,2\n")
	_, _, err = execute(t, "fit", csv)
	require.Error(t, err)

	_, _, err = execute(t, "fit", csv, "--draws", "0")
	require.Error(t, err)

	_, _, err = execute(t, "summary")
	require.Error(t, err)

	_, _, err = execute(t, "summary", "--db", filepath.Join(dir, "draws.db"), "--run", "none")
	require.Error(t, err)
}

func TestFitMetrics(t *testing.T) {

	fm := newFitMetrics()
	fm.draws.Add(3)
	fm.rows.WithLabelValues("detected").Set(12)

	require.Equal(t, 3.0, testutil.ToFloat64(fm.draws))
	require.Equal(t, 12.0, testutil.ToFloat64(fm.rows.WithLabelValues("detected")))

	path := filepath.Join(t.TempDir(), "m.prom")
	require.NoError(t, fm.write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "jsfit_draws_total 3")
}
