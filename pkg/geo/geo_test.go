package geo

import (
	"math"
	"testing"

	"github.com/gsudice/nsf-cosea/internal/model"
)

func TestHaversineMiles_SamePoint(t *testing.T) {
	loc := model.Location{Lat: 33.749, Lon: -84.388}
	got := HaversineMiles(loc, loc)
	if got != 0 {
		t.Errorf("HaversineMiles(same point) = %v, want 0", got)
	}
}

func TestHaversineMiles_Symmetric(t *testing.T) {
	a := model.Location{Lat: 33.749, Lon: -84.388}
	b := model.Location{Lat: 33.76, Lon: -84.41}
	if got, want := HaversineMiles(a, b), HaversineMiles(b, a); math.Abs(got-want) > 1e-9 {
		t.Errorf("HaversineMiles not symmetric: %v vs %v", got, want)
	}
}

func TestHaversineMiles_KnownDistance(t *testing.T) {
	// Two points roughly 10 miles apart along a meridian (~1/69 deg per mile).
	a := model.Location{Lat: 33.0, Lon: -84.0}
	b := model.Location{Lat: 33.0 + 10.0/69.0, Lon: -84.0}
	got := HaversineMiles(a, b)
	if got < 9.5 || got > 10.5 {
		t.Errorf("HaversineMiles = %.2f mi, want ~10 mi", got)
	}
}

func TestNewBoundingBox_EnforcesMinSpan(t *testing.T) {
	points := []model.Location{{Lat: 33.0, Lon: -84.0}, {Lat: 33.0, Lon: -84.0}}
	bb := NewBoundingBox(points)
	if bb.MaxLat-bb.MinLat < MinBBoxSpanDegrees {
		t.Errorf("lat span %v below minimum %v", bb.MaxLat-bb.MinLat, MinBBoxSpanDegrees)
	}
	if bb.MaxLon-bb.MinLon < MinBBoxSpanDegrees {
		t.Errorf("lon span %v below minimum %v", bb.MaxLon-bb.MinLon, MinBBoxSpanDegrees)
	}
}

func TestNewBoundingBox_Center(t *testing.T) {
	points := []model.Location{{Lat: 33.0, Lon: -84.0}, {Lat: 34.0, Lon: -83.0}}
	bb := NewBoundingBox(points)
	c := bb.Center()
	if math.Abs(c.Lat-33.5) > 1e-9 || math.Abs(c.Lon-(-83.5)) > 1e-9 {
		t.Errorf("Center() = %+v, want {33.5 -83.5}", c)
	}
}

func TestWebMercatorProject_OriginMapsToZero(t *testing.T) {
	x, y := WebMercatorProject(model.Location{Lat: 0, Lon: 0})
	if math.Abs(x) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Errorf("WebMercatorProject(0,0) = (%v, %v), want (0, 0)", x, y)
	}
}

func TestWebMercatorProject_Monotonic(t *testing.T) {
	x1, _ := WebMercatorProject(model.Location{Lat: 0, Lon: 10})
	x2, _ := WebMercatorProject(model.Location{Lat: 0, Lon: 20})
	if x2 <= x1 {
		t.Errorf("expected x to increase with longitude, got x1=%v x2=%v", x1, x2)
	}
}
