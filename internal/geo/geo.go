package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/wroge/wgs84"
)

// Positions are carried as WGS84 lon/lat (EPSG:4326). Local offsets are
// applied in Web Mercator (EPSG:3857) metres, corrected by the Mercator
// scale factor at the home latitude.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// GeodeticFromString parses "long,lat" or "long,lat,alt" into a core.Geodetic.
func GeodeticFromString(coords string) (core.Geodetic, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Geodetic{}, ErrInvalidCoordinates
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Geodetic{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Geodetic{}, ErrInvalidCoordinates
	}
	var alt float64
	if len(coordsSplit) > 2 {
		alt, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.Geodetic{}, ErrInvalidCoordinates
		}
	}
	if lat < -90 || lat > 90 || long < -180 || long > 180 {
		return core.Geodetic{}, ErrInvalidCoordinates
	}
	return core.Geodetic{Latitude: lat, Longitude: long, Altitude: alt}, nil
}

// Coords3857From4326 projects a longitude and latitude into a Web Mercator point
func Coords3857From4326(longitude, latitude float64) geom.Point {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Type: geom.DimXY,
		},
	)
}

// PointFromGeodetic builds a lon/lat/alt point for storage.
func PointFromGeodetic(g core.Geodetic) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: g.Longitude, Y: g.Latitude},
			Z:    g.Altitude,
			Type: geom.DimXYZ,
		},
	)
}

// Locator converts NED offsets from a fixed home into geodetic positions.
type Locator struct {
	home     core.Geodetic
	homeX    float64
	homeY    float64
	scale    float64
	toLonLat func(x, y, z float64) (float64, float64, float64)
	location core.Geodetic
}

// NewLocator returns a Locator anchored at home.
func NewLocator(home core.Geodetic) *Locator {
	epsg := wgs84.EPSG()
	x, y, _ := epsg.Transform(4326, 3857)(home.Longitude, home.Latitude, 0)
	return &Locator{
		home:     home,
		homeX:    x,
		homeY:    y,
		scale:    1 / math.Cos(home.Latitude*math.Pi/180),
		toLonLat: epsg.Transform(3857, 4326),
		location: home,
	}
}

// Home returns the anchor position.
func (l *Locator) Home() core.Geodetic {
	return l.home
}

// UpdatePosition moves the current location to the NED offset position.
func (l *Locator) UpdatePosition(position core.Vector3) {
	l.location = l.Offset(position)
}

// Offset returns the geodetic position of a NED offset from home without
// changing the current location.
func (l *Locator) Offset(position core.Vector3) core.Geodetic {
	x := l.homeX + position.Y*l.scale
	y := l.homeY + position.X*l.scale
	lon, lat, _ := l.toLonLat(x, y, 0)
	return core.Geodetic{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  l.home.Altitude - position.Z,
	}
}

// Location returns the position set by the last UpdatePosition.
func (l *Locator) Location() core.Geodetic {
	return l.location
}
