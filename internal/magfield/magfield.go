// Package magfield provides the earth magnetic field at the simulated
// position from the World Magnetic Model.
package magfield

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sailsitl/sailsim/internal/attitude"
	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// refreshDeg is how far the position must move before the model is
// evaluated again.
const refreshDeg = 0.001

// nanoTeslaToMilliGauss converts WMM output to the units compasses report.
const nanoTeslaToMilliGauss = 0.01

// LocationSource reports the current geodetic position.
type LocationSource interface {
	Location() core.Geodetic
}

// Field evaluates the magnetic field for one vehicle. It caches the
// earth-frame field until the vehicle moves by refreshDeg.
type Field struct {
	loc    LocationSource
	date   time.Time
	logger *slog.Logger

	compute func(core.Geodetic, time.Time) (core.Vector3, error)

	valid  bool
	failed bool
	at     core.Geodetic
	earth  core.Vector3
}

// New returns a Field for positions from loc at the given model date.
func New(loc LocationSource, date time.Time, logger *slog.Logger) *Field {
	if logger == nil {
		logger = slog.Default()
	}
	return &Field{loc: loc, date: date, logger: logger, compute: EarthField}
}

// EarthField returns the field in NED milligauss at g.
func EarthField(g core.Geodetic, date time.Time) (core.Vector3, error) {
	loc := egm96.NewLocationGeodetic(g.Latitude, g.Longitude, g.Altitude)
	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return core.Vector3{}, fmt.Errorf("calculate magnetic field: %w", err)
	}

	total := mag.F() * nanoTeslaToMilliGauss
	inc := mag.I() * math.Pi / 180
	dec := mag.D() * math.Pi / 180

	horizontal := total * math.Cos(inc)
	return core.Vector3{
		X: horizontal * math.Cos(dec),
		Y: horizontal * math.Sin(dec),
		Z: total * math.Sin(inc),
	}, nil
}

// Earth returns the cached earth-frame field, refreshing it if the vehicle
// has moved.
func (f *Field) Earth() core.Vector3 {
	g := f.loc.Location()
	if f.valid && !moved(f.at, g) {
		return f.earth
	}
	earth, err := f.compute(g, f.date)
	if err != nil {
		// keep the last good field, warn once per outage
		if !f.failed {
			f.logger.Warn("Magnetic field unavailable", "error", err, "lat", g.Latitude, "lon", g.Longitude)
			f.failed = true
		}
		return f.earth
	}
	if f.failed {
		f.logger.Info("Magnetic field available again", "lat", g.Latitude, "lon", g.Longitude)
		f.failed = false
	}
	f.earth, f.at, f.valid = earth, g, true
	return f.earth
}

// UpdateMagFieldBF returns the field in body frame for the attitude dcm.
func (f *Field) UpdateMagFieldBF(dcm attitude.Matrix3) core.Vector3 {
	return dcm.Transposed().MulVec(f.Earth())
}

func moved(a, b core.Geodetic) bool {
	return math.Abs(a.Latitude-b.Latitude) > refreshDeg || math.Abs(a.Longitude-b.Longitude) > refreshDeg
}
