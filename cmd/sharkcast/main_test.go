package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixtures writes a tracking CSV with one well-tracked shark (159826)
// and one with too few fixes (777), plus a config with small forests.
func writeFixtures(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	var b strings.Builder
	b.WriteString("id,lat,lon,sst_asignado,clorofila_asignada,datetime\n")
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 13; i++ {
		ts := start.Add(time.Duration(i) * 6 * time.Hour).Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b, "159826.0,%.3f,%.3f,%.2f,%.3f,%s\n", 20+0.05*float64(i), -110+0.03*float64(i), 24+0.1*float64(i%4), 0.3+0.01*float64(i%3), ts)
	}
	for i := 0; i < 3; i++ {
		ts := start.Add(time.Duration(i) * 6 * time.Hour).Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b, "777,%d,%d,20,0.2,%s\n", 10+i, -100-i, ts)
	}
	dataPath := filepath.Join(dir, "tracks.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(b.String()), 0o644))

	cfgPath = filepath.Join(dir, "sharkcast.yaml")
	cfg := fmt.Sprintf(`data:
  path: %q
training:
  movement:
    trees: 20
  environment:
    trees: 20
logging:
  level: warn
`, dataPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return dir, cfgPath
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPredictWithFlags(t *testing.T) {
	_, cfg := writeFixtures(t)
	out, err := execute(t, "", "predict", "-c", cfg,
		"--id", "159826", "--lat", "20.3", "--lon", "-109.8", "--hour", "12", "--month", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "lowest error: 159826")
	assert.Contains(t, out, "Shark: 159826")
	assert.Contains(t, out, "Next latitude:")
	assert.Contains(t, out, "Position error:")
}

func TestPredictPrompts(t *testing.T) {
	_, cfg := writeFixtures(t)
	out, err := execute(t, "159826\n20.1\n-109.9\n6\n3\n", "predict", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Shark ID: ")
	assert.Contains(t, out, "Current month (1-12): ")
	assert.Contains(t, out, "Forecast is 6 hours ahead.")
}

func TestPredictUnknownID(t *testing.T) {
	_, cfg := writeFixtures(t)
	for _, id := range []string{"999999", "777"} {
		out, err := execute(t, "", "predict", "-c", cfg, "--id", id)
		require.NoError(t, err)
		assert.Contains(t, out, fmt.Sprintf("No trained model exists for ID '%s'.", id))
		assert.NotContains(t, out, "Next latitude")
	}
}

func TestPredictInvalidInput(t *testing.T) {
	_, cfg := writeFixtures(t)
	_, err := execute(t, "", "predict", "-c", cfg,
		"--id", "159826", "--lat", "20", "--lon", "-110", "--hour", "24", "--month", "3")
	assert.Error(t, err)

	_, err = execute(t, "159826\nnorth\n", "predict", "-c", cfg)
	assert.Error(t, err)
}

func TestEvaluateWritesOutputs(t *testing.T) {
	dir, cfg := writeFixtures(t)
	csvPath := filepath.Join(dir, "out", "errors.csv")
	dbPath := filepath.Join(dir, "errors.db")
	plotDir := filepath.Join(dir, "plots")

	out, err := execute(t, "", "evaluate", "-c", cfg,
		"--out-csv", csvPath, "--sqlite", dbPath, "--plot-dir", plotDir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 sharks: 1 trained, 1 skipped, 0 failed")

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "159826,9,3,"))

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(plotDir, "holdout_159826.png"))
	assert.NoError(t, err)
}

func TestTracksJSON(t *testing.T) {
	dir, cfg := writeFixtures(t)
	out, err := execute(t, "", "tracks", "-c", cfg)
	require.NoError(t, err)

	var points []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	assert.Len(t, points, 13+3)
	assert.Equal(t, float64(159826), points[0]["ID"])
	assert.Equal(t, "2021-03-01 00:00:00", points[0]["datetime"])

	path := filepath.Join(dir, "tracks.json")
	_, err = execute(t, "", "tracks", "-c", cfg, "-o", path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestDataDirectory(t *testing.T) {
	dir, cfg := writeFixtures(t)
	out, err := execute(t, "", "tracks", "-c", cfg, "--data", dir)
	require.NoError(t, err)
	var points []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	assert.Len(t, points, 13+3)
}

func TestMissingData(t *testing.T) {
	_, err := execute(t, "", "tracks", "-c", filepath.Join(t.TempDir(), "none.yaml"),
		"--data", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
