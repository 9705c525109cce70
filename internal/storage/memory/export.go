package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sailsitl/sailsim/internal/geo"
	"github.com/sailsitl/sailsim/pkg/core"
)

// RunExport is the root JSON structure of an exported run
type RunExport struct {
	Run     core.Run          `json:"run"`
	Summary *core.RunSummary  `json:"summary,omitempty"`
	Track   json.RawMessage   `json:"track"` // GeoJSON LineString, lon/lat
	Samples []core.StepSample `json:"samples"`
}

// fileName is "<name>_<uuid prefix>_<start>.json", with ".gz" when compressed.
func fileName(run *core.Run, compressed bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(run.Name)
	if name == "" {
		name = "run"
	}
	id := run.UUID
	if len(id) > 8 {
		id = id[:8]
	}
	ext := ".json"
	if compressed {
		ext += ".gz"
	}
	return fmt.Sprintf("%s_%s_%s%s", name, id, run.StartTime.UTC().Format("20060102_150405"), ext)
}

// exportJSON writes the run to the output directory. Callers hold b.mu.
func (b *Backend) exportJSON(summary *core.RunSummary) error {
	track, err := geo.TrackGeoJSON(b.track.LineString())
	if err != nil {
		return fmt.Errorf("failed to encode track: %w", err)
	}

	export := RunExport{
		Run:     *b.run,
		Summary: summary,
		Track:   track,
		Samples: b.samples,
	}
	if export.Samples == nil {
		export.Samples = []core.StepSample{}
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, fileName(b.run, b.cfg.CompressOutput))

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func writeExport(path string, data RunExport, compressed bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compressed {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// ReadExport loads an exported run. Files ending in .gz are decompressed.
func ReadExport(path string) (RunExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunExport{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return RunExport{}, fmt.Errorf("failed to open gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export RunExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return RunExport{}, fmt.Errorf("failed to decode export: %w", err)
	}
	return export, nil
}
