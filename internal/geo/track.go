package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sailsitl/sailsim/pkg/core"
)

// Track accumulates the positions of a run.
type Track struct {
	lonLat []float64
	local  []float64
}

// Add appends one position, both as a local NED offset and as lon/lat.
func (t *Track) Add(ned core.Vector3, g core.Geodetic) {
	t.local = append(t.local, ned.Y, ned.X)
	t.lonLat = append(t.lonLat, g.Longitude, g.Latitude)
}

// Len returns the number of positions.
func (t *Track) Len() int {
	return len(t.local) / 2
}

// LineString returns the track in lon/lat. Fewer than two positions give an
// empty line string.
func (t *Track) LineString() geom.LineString {
	return lineString(t.lonLat)
}

// LocalLineString returns the track as east/north metres from home.
func (t *Track) LocalLineString() geom.LineString {
	return lineString(t.local)
}

// Length is the distance sailed over ground in metres.
func (t *Track) Length() float64 {
	return t.LocalLineString().Length()
}

func lineString(flat []float64) geom.LineString {
	if len(flat) < 4 {
		return geom.LineString{}
	}
	coords := make([]float64, len(flat))
	copy(coords, flat)
	return geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
}

// ParseTrack parses a JSON array of coordinates into a geom.LineString.
// Input format: "[[x1,y1],[x2,y2],...]"
func ParseTrack(input string) (geom.LineString, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return geom.LineString{}, fmt.Errorf("failed to parse track JSON: %w", err)
	}

	if len(coords) < 2 {
		return geom.LineString{}, fmt.Errorf("track must have at least 2 points, got %d", len(coords))
	}

	flatCoords := make([]float64, 0, len(coords)*2)
	for i, coord := range coords {
		if len(coord) < 2 {
			return geom.LineString{}, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		flatCoords = append(flatCoords, coord[0], coord[1])
	}

	return geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXY)), nil
}

// TrackWKT renders a line string as WKT.
func TrackWKT(ls geom.LineString) string {
	return ls.AsText()
}

// TrackGeoJSON renders a line string as a GeoJSON geometry.
func TrackGeoJSON(ls geom.LineString) ([]byte, error) {
	return json.Marshal(ls)
}
