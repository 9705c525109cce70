package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sailsitl/sailsim/internal/config"
	"github.com/sailsitl/sailsim/internal/database"
	gormstorage "github.com/sailsitl/sailsim/internal/storage/gorm"
	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
  "logLevel": "debug",
  "logsDir": %q,
  "environment": {
    "wind": {"speed": 5, "direction": 90}
  },
  "run": {"name": "cli-reach"},
  "upload": {"enabled": %t, "url": %q, "apiKey": "k"},
  "storage": {
    "type": "memory",
    "memory": {"outputDir": %q, "compressOutput": false}
  }
}`

const testSchedule = `[{"t": 0, "servos": {"3": 1500}}]`

// recordRun runs one simulated second and returns the JSON export it wrote.
func recordRun(t *testing.T) (core.RunSummary, string) {
	return recordRunUploading(t, "")
}

// recordRunUploading is recordRun with uploads sent to archiveURL when it is
// not empty.
func recordRunUploading(t *testing.T, archiveURL string) (core.RunSummary, string) {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	outDir := filepath.Join(dir, "runs")
	cfg := []byte(fmt.Sprintf(testConfig, filepath.Join(dir, "logs"), archiveURL != "", archiveURL, outDir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), cfg, 0644))
	schedPath := filepath.Join(dir, "schedule.json")
	require.NoError(t, os.WriteFile(schedPath, []byte(testSchedule), 0644))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"run", "-config", dir, "-schedule", schedPath, "-duration", "1s"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var summary core.RunSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))

	exports, err := filepath.Glob(filepath.Join(outDir, "*.json"))
	require.NoError(t, err)
	require.Len(t, exports, 1)
	return summary, exports[0]
}

func TestRunCommand(t *testing.T) {
	summary, export := recordRun(t)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, uint64(400), summary.Steps)
	assert.InDelta(t, 1.0, summary.SimTime, 1e-9)
	assert.Greater(t, summary.Distance, 0.0)
	assert.False(t, summary.Cancelled)
	assert.Contains(t, filepath.Base(export), "cli-reach_"+summary.RunID[:8])
}

func TestRunCommand_UploadsExport(t *testing.T) {
	uploaded := make(chan string, 1)
	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/runs/add" {
			if err := r.ParseMultipartForm(10 << 20); err == nil {
				uploaded <- r.FormValue("runId")
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer archive.Close()

	summary, _ := recordRunUploading(t, archive.URL)
	select {
	case id := <-uploaded:
		assert.Equal(t, summary.RunID, id)
	default:
		t.Fatal("export was not uploaded")
	}
}

func TestExportCommand(t *testing.T) {
	summary, export := recordRun(t)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"export", "-db", export}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), `"type":"LineString"`)

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"export", "-db", export, "-run", summary.RunID, "-format", "wkt"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "LINESTRING")

	err := run(context.Background(), []string{"export", "-db", export, "-run", "00000000-0000-0000-0000-000000000000"}, &stdout, &stderr)
	assert.Error(t, err)

	err = run(context.Background(), []string{"export", "-db", export, "-format", "kml"}, &stdout, &stderr)
	assert.ErrorContains(t, err, "unknown format")
}

func TestPlotCommand(t *testing.T) {
	_, export := recordRun(t)
	out := filepath.Join(t.TempDir(), "track.png")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"plot", "-db", export, "-out", out, "-route", "[[0,0],[0,20]]"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

// writeDump stores a short run heading north into a SQLite file.
func writeDump(t *testing.T, path string) string {
	t.Helper()
	db, err := database.OpenSQLite(path)
	require.NoError(t, err)

	b := gormstorage.New(gormstorage.Dependencies{DB: db})
	require.NoError(t, b.Init())

	run := &core.Run{Name: "dumped", Frame: "sailboat", TimeStep: 0.0025}
	require.NoError(t, b.StartRun(run))
	for i := uint64(0); i < 10; i++ {
		north := float64(i)
		require.NoError(t, b.RecordStep(&core.StepSample{
			Step:    i,
			SimTime: float64(i) * 0.0025,
			Input:   core.NeutralInput(),
			State: core.VehicleState{
				Position: core.Vector3{X: north},
				Location: core.Geodetic{Latitude: -35 + north/111000, Longitude: 149},
			},
		}))
	}
	require.NoError(t, b.EndRun(&core.RunSummary{RunID: run.UUID, Steps: 10, Distance: 9}))
	require.NoError(t, b.Close())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return run.UUID
}

func TestExportCommand_SQLiteDump(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sailsim.db")
	runID := writeDump(t, path)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"export", "-db", path}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), runID+"\tdumped\t10 steps")

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"export", "-db", dir}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "# "+path)
	assert.Contains(t, stdout.String(), runID)

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"export", "-db", path, "-run", runID, "-format", "wkt"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "LINESTRING")
	assert.Contains(t, stdout.String(), "149 -35")

	out := filepath.Join(dir, "dump.svg")
	require.NoError(t, run(context.Background(), []string{"plot", "-db", path, "-run", runID, "-out", out}, &stdout, &stderr))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestMissingSource(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.ErrorContains(t, run(context.Background(), []string{"export"}, &stdout, &stderr), "-db is required")
	assert.ErrorContains(t, run(context.Background(), []string{"plot"}, &stdout, &stderr), "-db is required")
}

func TestVersionAndUnknown(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "sailsim "+Version)

	assert.ErrorContains(t, run(context.Background(), []string{"sail"}, &stdout, &stderr), `unknown command "sail"`)
	assert.Error(t, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage:")
}
