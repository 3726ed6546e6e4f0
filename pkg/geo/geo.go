// Package geo provides geographic utility functions for the facility
// location engine.
//
// All great-circle distances are computed in miles via the Haversine
// formula on WGS-84 coordinates; this matches the unit convention of the
// analysis the engine was built to replace. Projection helpers convert
// WGS-84 to Web Mercator (EPSG:3857) for map rendering.
package geo

import (
	"math"

	"github.com/gsudice/nsf-cosea/internal/model"
)

// ─── Constants ──────────────────────────────────────────────

const (
	// EarthRadiusMiles is the mean radius of Earth in miles, matching the
	// constant used throughout the original analysis pipeline.
	EarthRadiusMiles = 3958.7613

	// MilesToMeters converts a mile quantity to meters.
	MilesToMeters = 1609.344

	// MinBBoxSpanDegrees is the minimum span enforced on each axis of a
	// bounding box before it is used to request a road network.
	MinBBoxSpanDegrees = 1e-4
)

// ─── Distance ───────────────────────────────────────────────

// HaversineMiles returns the great-circle distance between two points in
// miles.
//
// Complexity: O(1)
func HaversineMiles(a, b model.Location) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon

	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(h))
}

// ─── Bounding Box ───────────────────────────────────────────

// BoundingBox is an axis-aligned lat/lon rectangle.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// NewBoundingBox returns the smallest box containing every point, with
// MinBBoxSpanDegrees enforced on each axis (expanded symmetrically around
// the midpoint of that axis when the natural span is smaller).
func NewBoundingBox(points []model.Location) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	bb := BoundingBox{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		bb.MinLat = math.Min(bb.MinLat, p.Lat)
		bb.MaxLat = math.Max(bb.MaxLat, p.Lat)
		bb.MinLon = math.Min(bb.MinLon, p.Lon)
		bb.MaxLon = math.Max(bb.MaxLon, p.Lon)
	}
	bb.enforceMinSpan(MinBBoxSpanDegrees)
	return bb
}

func (bb *BoundingBox) enforceMinSpan(minSpan float64) {
	if span := bb.MaxLat - bb.MinLat; span < minSpan {
		pad := (minSpan - span) / 2
		bb.MinLat -= pad
		bb.MaxLat += pad
	}
	if span := bb.MaxLon - bb.MinLon; span < minSpan {
		pad := (minSpan - span) / 2
		bb.MinLon -= pad
		bb.MaxLon += pad
	}
}

// Center returns the midpoint of the box.
func (bb BoundingBox) Center() model.Location {
	return model.Location{
		Lat: (bb.MinLat + bb.MaxLat) / 2,
		Lon: (bb.MinLon + bb.MaxLon) / 2,
	}
}

// SpanMiles returns the box's diagonal span in miles, corner to corner —
// the quantity the network back-end uses to size its download radius.
func (bb BoundingBox) SpanMiles() float64 {
	corner1 := model.Location{Lat: bb.MinLat, Lon: bb.MinLon}
	corner2 := model.Location{Lat: bb.MaxLat, Lon: bb.MaxLon}
	return HaversineMiles(corner1, corner2)
}

// ─── Web Mercator projection (EPSG:3857) ───────────────────

const webMercatorMaxLat = 85.05112878

// WebMercatorProject converts a WGS-84 point to EPSG:3857 meters, clamping
// latitude to the projection's valid range.
func WebMercatorProject(loc model.Location) (x, y float64) {
	lat := math.Max(-webMercatorMaxLat, math.Min(webMercatorMaxLat, loc.Lat))
	x = loc.Lon * math.Pi / 180.0 * EarthRadiusMetersWGS84
	y = math.Log(math.Tan(math.Pi/4+degToRad(lat)/2)) * EarthRadiusMetersWGS84
	return x, y
}

// EarthRadiusMetersWGS84 is the equatorial radius used by the Web Mercator
// (EPSG:3857) projection, distinct from the mean radius used for Haversine.
const EarthRadiusMetersWGS84 = 6378137.0

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
