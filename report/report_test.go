package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/Noofbiz/sharkcast/telemetry"
	"github.com/Noofbiz/sharkcast/tracker"
)

var sampleErrors = []tracker.ErrorRecord{
	{ID: "120880", PositionKm: 4.5, TempC: 0.31, Chl: 0.012, TrainSize: 40, TestSize: 10},
	{ID: "159826", PositionKm: 2.25, TempC: 0.2, Chl: 0.004, TrainSize: 9, TestSize: 3},
}

func TestWriteForecastWithErrors(t *testing.T) {
	rec := sampleErrors[1]
	fc := &tracker.Forecast{ID: "159826", LatNext: 20.123456, LonNext: -110.98766, SSTNext: 24.456, ChlNext: 0.31234, Errors: &rec}

	var buf bytes.Buffer
	require.NoError(t, WriteForecast(&buf, fc))
	out := buf.String()

	assert.Contains(t, out, "Shark: 159826")
	assert.Contains(t, out, "Next latitude: 20.1235")
	assert.Contains(t, out, "Next longitude: -110.9877")
	assert.Contains(t, out, "Expected temperature (SST): 24.46 °C")
	assert.Contains(t, out, "Expected chlorophyll (CHL): 0.312 mg/m³")
	assert.Contains(t, out, "6 hours ahead")
	assert.Contains(t, out, "Position error: 2.25 km")
	assert.Contains(t, out, "Temperature error: 0.20 °C")
	assert.Contains(t, out, "Chlorophyll error: 0.004 mg/m³")
	assert.NotContains(t, out, NoErrorInfo)
}

func TestWriteForecastWithoutErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteForecast(&buf, &tracker.Forecast{ID: "x"}))
	assert.Contains(t, buf.String(), NoErrorInfo)
	assert.NotContains(t, buf.String(), "Position error")
}

func TestWriteNoModelAndBest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNoModel(&buf, "999999"))
	assert.Equal(t, "No trained model exists for ID '999999'.\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteBest(&buf, sampleErrors))
	assert.Contains(t, buf.String(), "120880  159826")

	buf.Reset()
	require.NoError(t, WriteBest(&buf, nil))
	assert.Contains(t, buf.String(), "No individual")

	buf.Reset()
	require.NoError(t, WriteSummary(&buf, sampleErrors))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "159826"))
}

func TestSaveErrorsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "errors.csv")
	require.NoError(t, SaveErrorsCSV(path, sampleErrors))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, ErrorHeader, rows[0])
	assert.Equal(t, []string{"159826", "9", "3", "2.250000", "0.200000", "0.004000"}, rows[2])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	assert.Error(t, SaveErrorsCSV("", sampleErrors))
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "errors.db"))
	require.NoError(t, err)
	defer store.Close()

	empty, err := store.Query(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := store.SaveErrors(ctx, sampleErrors[:1])
	require.NoError(t, err)
	second, err := store.SaveErrors(ctx, sampleErrors)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := store.Query(ctx, first)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sampleErrors[0], got[0].ErrorRecord)

	latest, err := store.Query(ctx, "")
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, second, latest[0].RunID)
	recs := []tracker.ErrorRecord{latest[0].ErrorRecord, latest[1].ErrorRecord}
	if diff := cmp.Diff(sampleErrors, recs); diff != "" {
		t.Fatalf("stored records mismatch (-want +got):\n%s", diff)
	}
	assert.WithinDuration(t, time.Now(), latest[0].CreatedAt, time.Minute)
}

func TestWriteTracksJSON(t *testing.T) {
	t0 := time.Date(2021, 3, 1, 6, 0, 0, 0, time.UTC)
	series := []telemetry.Series{
		{ID: "159826", Points: []telemetry.Record{
			{Time: t0, Lat: 20, Lon: -110},
			{Time: t0.Add(telemetry.Step), Lat: 20.5, Lon: -110.5},
		}},
		{ID: "tag-7", Points: []telemetry.Record{{Time: t0, Lat: 1, Lon: 2}}},
		{ID: "007", Points: []telemetry.Record{{Time: t0, Lat: 3, Lon: 4}}},
		{ID: "+5", Points: []telemetry.Record{{Time: t0, Lat: 5, Lon: 6}}},
		{ID: "-3", Points: []telemetry.Record{{Time: t0, Lat: 7, Lon: 8}}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTracksJSON(&buf, series))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Len(t, raw, 6)
	assert.Equal(t, float64(159826), raw[0]["ID"])
	assert.Equal(t, "2021-03-01 12:00:00", raw[1]["datetime"])
	assert.Equal(t, 20.5, raw[1]["lat"])
	assert.Equal(t, "tag-7", raw[2]["ID"])
	// non-canonical integers keep their spelling as strings
	assert.Equal(t, "007", raw[3]["ID"])
	assert.Equal(t, "+5", raw[4]["ID"])
	assert.Equal(t, float64(-3), raw[5]["ID"])

	buf.Reset()
	require.NoError(t, WriteTracksJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestPlotHoldout(t *testing.T) {
	dir := t.TempDir()
	h := tracker.Holdout{ID: "159826", Points: []tracker.HoldoutPoint{
		{Lat: 20, Lon: -110, PredLat: 20.1, PredLon: -110.05},
		{Lat: 20.2, Lon: -110.1, PredLat: 20.25, PredLon: -110.1},
	}}
	rec := sampleErrors[1]
	path, err := PlotHoldout(dir, h, &rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "holdout_159826.png"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	_, err = PlotHoldout(dir, tracker.Holdout{ID: "empty"}, nil)
	assert.Error(t, err)
}

func TestAutoRangeAndSafeName(t *testing.T) {
	xmin, xmax, ymin, ymax := autoRange(nil)
	assert.Equal(t, []float64{-1, 1, -1, 1}, []float64{xmin, xmax, ymin, ymax})

	xmin, xmax, ymin, ymax = autoRange(plotter.XYs{{X: 5, Y: 5}})
	assert.Less(t, xmin, 5.0)
	assert.Greater(t, xmax, 5.0)
	assert.Less(t, ymin, 5.0)
	assert.Greater(t, ymax, 5.0)

	assert.Equal(t, "a_b_c.1", safeName("a/b c.1"))
}
