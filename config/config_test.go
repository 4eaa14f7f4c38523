package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/sharkcast/tracker"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sharkcast.yaml")
	data := `data:
  path: "tracks.csv"
  columns:
    sst: "temp"
training:
  min_examples: 12
  workers: 4
  model: mlp
  movement:
    trees: 50
  mlp:
    steps: 100
logging:
  level: debug
metrics:
  listen: ":9100"
output:
  csv: "out/errors.csv"
  plot_dir: "out/plots"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"data.path", cfg.Data.Path, "tracks.csv"},
		{"data.columns.sst", cfg.Data.Columns.SST, "temp"},
		{"data.columns.id", cfg.Data.Columns.ID, ""},
		{"training.min_examples", cfg.Training.MinExamples, 12},
		{"training.workers", cfg.Training.Workers, 4},
		{"training.train_fraction", cfg.Training.TrainFraction, 0.8},
		{"training.movement.trees", cfg.Training.Movement.Trees, 50},
		// untouched movement fields keep their defaults
		{"training.movement.max_depth", cfg.Training.Movement.MaxDepth, 25},
		{"training.movement.min_samples_leaf", cfg.Training.Movement.MinSamplesLeaf, 2},
		{"training.environment.trees", cfg.Training.Environment.Trees, 300},
		{"training.model", cfg.Training.Model, tracker.ModelMLP},
		{"training.mlp.steps", cfg.Training.MLP.Steps, 100},
		{"training.mlp.learning_rate", cfg.Training.MLP.LearningRate, 0.01},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"metrics.listen", cfg.Metrics.Listen, ":9100"},
		{"output.csv", cfg.Output.CSV, "out/errors.csv"},
		{"output.plot_dir", cfg.Output.PlotDir, "out/plots"},
		{"output.sqlite", cfg.Output.SQLite, ""},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDataPath, cfg.Data.Path)
	assert.Equal(t, tracker.DefaultConfig(), cfg.Training)
	assert.Equal(t, "info", cfg.Logging.Level)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sharkcast.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data": {"path": "from-file.csv"}, "training": {"min_examples": 11}}`), 0o644))

	t.Setenv("SHARK_DATA__PATH", "from-env.csv")
	t.Setenv("SHARK_TRAINING__ENVIRONMENT__SEED", "7")
	t.Setenv("SHARK_LOGGING__LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.csv", cfg.Data.Path)
	assert.Equal(t, 11, cfg.Training.MinExamples)
	assert.Equal(t, int64(7), cfg.Training.Environment.Seed)
	assert.Equal(t, 300, cfg.Training.Environment.Trees)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("training:\n  train_fraction: 1.5\n"), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	level := filepath.Join(dir, "level.yaml")
	require.NoError(t, os.WriteFile(level, []byte("logging:\n  level: loud\n"), 0o644))
	_, err = Load(level)
	assert.Error(t, err)

	toml := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(toml, []byte("x = 1\n"), 0o644))
	_, err = Load(toml)
	assert.Error(t, err)
}
