// Package crs tags geometries with a coordinate reference system and
// reprojects between the geographic and web-mercator systems used by the
// map outputs. Tagging is an annotation only; Transform is the one place
// coordinate values change.
package crs

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// EPSG codes handled by this package.
const (
	WGS84       = 4326 // geographic longitude/latitude, degrees
	WebMercator = 3857 // spherical mercator, metres
)

// earthRadius is the WGS84 semi-major axis used by the spherical mercator.
const earthRadius = 6378137.0

// webMercatorMaxLat bounds the latitude range representable in EPSG:3857.
const webMercatorMaxLat = 85.05112878

// Tag assigns srid to the geometry when its CRS is unset. Tagging an
// already-tagged geometry is a no-op; coordinates are never modified.
func Tag(mp *geom.MultiPolygon, srid int) *geom.MultiPolygon {
	if mp == nil {
		return nil
	}
	if mp.SRID() == 0 {
		mp.SetSRID(srid)
	}
	return mp
}

// Transform reprojects a multipolygon from its tagged CRS to the target CRS,
// returning a new geometry and leaving the input untouched. Only the
// 4326 ↔ 3857 pair (and the identity case) is supported; anything else is
// delegated to an external projection service before the pipeline runs.
func Transform(mp *geom.MultiPolygon, targetSRID int) (*geom.MultiPolygon, error) {
	if mp == nil {
		return nil, eris.New("crs: nil geometry")
	}

	srcSRID := mp.SRID()
	if srcSRID == targetSRID {
		return cloneWith(mp, nil, targetSRID), nil
	}

	var project func(x, y float64) (float64, float64)
	switch {
	case srcSRID == WGS84 && targetSRID == WebMercator:
		project = forward
	case srcSRID == WebMercator && targetSRID == WGS84:
		project = inverse
	default:
		return nil, eris.Errorf("crs: unsupported transform %d -> %d", srcSRID, targetSRID)
	}

	return cloneWith(mp, project, targetSRID), nil
}

// forward projects lon/lat degrees to web-mercator metres.
func forward(lon, lat float64) (float64, float64) {
	if lat > webMercatorMaxLat {
		lat = webMercatorMaxLat
	}
	if lat < -webMercatorMaxLat {
		lat = -webMercatorMaxLat
	}
	x := earthRadius * lon * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// inverse projects web-mercator metres back to lon/lat degrees.
func inverse(x, y float64) (float64, float64) {
	lon := x / earthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// cloneWith copies the multipolygon, optionally mapping each coordinate pair.
func cloneWith(mp *geom.MultiPolygon, project func(x, y float64) (float64, float64), srid int) *geom.MultiPolygon {
	flat := mp.FlatCoords()
	out := make([]float64, len(flat))
	copy(out, flat)

	if project != nil {
		stride := mp.Stride()
		for i := 0; i+1 < len(out); i += stride {
			out[i], out[i+1] = project(out[i], out[i+1])
		}
	}

	endss := make([][]int, len(mp.Endss()))
	for i, ends := range mp.Endss() {
		endss[i] = append([]int(nil), ends...)
	}

	cloned := geom.NewMultiPolygonFlat(mp.Layout(), out, endss)
	cloned.SetSRID(srid)
	return cloned
}
