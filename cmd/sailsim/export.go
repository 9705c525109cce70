package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sailsitl/sailsim/internal/database"
	"github.com/sailsitl/sailsim/internal/geo"
	"github.com/sailsitl/sailsim/internal/model/convert"
	gormstorage "github.com/sailsitl/sailsim/internal/storage/gorm"
	"github.com/sailsitl/sailsim/internal/storage/memory"
)

// recordedRun is a run read back from a SQLite dump or a JSON export.
type recordedRun struct {
	UUID  string
	Name  string
	Track geom.LineString // lon/lat
	Local [][2]float64    // east, north in metres
}

func isJSONExport(path string) bool {
	return strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.gz")
}

// loadRecordedRun reads runID from src. JSON exports hold one run, so runID
// may be empty for them.
func loadRecordedRun(src, runID string) (recordedRun, error) {
	if isJSONExport(src) {
		return loadJSONRun(src, runID)
	}
	return loadDBRun(src, runID)
}

func loadJSONRun(path, runID string) (recordedRun, error) {
	export, err := memory.ReadExport(path)
	if err != nil {
		return recordedRun{}, err
	}
	if runID != "" && runID != export.Run.UUID {
		return recordedRun{}, fmt.Errorf("%s holds run %s, not %s", path, export.Run.UUID, runID)
	}

	rr := recordedRun{UUID: export.Run.UUID, Name: export.Run.Name}
	if err := json.Unmarshal(export.Track, &rr.Track); err != nil {
		return recordedRun{}, fmt.Errorf("decode track: %w", err)
	}
	for _, s := range export.Samples {
		rr.Local = append(rr.Local, [2]float64{s.State.Position.Y, s.State.Position.X})
	}
	return rr, nil
}

func loadDBRun(path, runID string) (recordedRun, error) {
	if runID == "" {
		return recordedRun{}, fmt.Errorf("-run is required for database sources")
	}
	db, err := database.OpenSQLite(path)
	if err != nil {
		return recordedRun{}, fmt.Errorf("open %s: %w", path, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	run, err := gormstorage.LoadRun(db, runID)
	if err != nil {
		return recordedRun{}, err
	}
	samples, err := gormstorage.LoadSamples(db, run.ID)
	if err != nil {
		return recordedRun{}, err
	}

	rr := recordedRun{UUID: run.UUID.String(), Name: run.Name, Track: run.Track}
	if rr.Track.IsEmpty() {
		// the run never ended; rebuild from the samples
		rr.Track = convert.TrackFromSamples(samples)
	}
	for _, s := range samples {
		rr.Local = append(rr.Local, [2]float64{s.Local.Y, s.Local.X})
	}
	return rr, nil
}

// listRuns prints one line per run stored in a database dump.
func listRuns(path string, w io.Writer) error {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	runs, err := gormstorage.ListRuns(db)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d steps\t%.1f m\n", r.UUID, r.Name, r.Summary.Steps, r.Summary.Distance)
	}
	return nil
}

// listDumps lists the runs of every dump in dir.
func listDumps(dir string, w io.Writer) error {
	paths, err := database.ListDumps(dir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Fprintf(w, "# %s\n", path)
		if err := listRuns(path, w); err != nil {
			return err
		}
	}
	return nil
}

func exportCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	src := fs.String("db", "", "SQLite dump or JSON export to read")
	runID := fs.String("run", "", "run uuid")
	format := fs.String("format", "geojson", "wkt or geojson")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *src == "" {
		return fmt.Errorf("-db is required")
	}
	if info, err := os.Stat(*src); err == nil && info.IsDir() {
		return listDumps(*src, stdout)
	}
	if *runID == "" && !isJSONExport(*src) {
		return listRuns(*src, stdout)
	}

	rr, err := loadRecordedRun(*src, *runID)
	if err != nil {
		return err
	}

	switch strings.ToLower(*format) {
	case "wkt":
		_, err = fmt.Fprintln(stdout, geo.TrackWKT(rr.Track))
	case "geojson":
		var data []byte
		data, err = geo.TrackGeoJSON(rr.Track)
		if err == nil {
			_, err = fmt.Fprintln(stdout, string(data))
		}
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	return err
}
