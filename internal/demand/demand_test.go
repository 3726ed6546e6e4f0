package demand

import (
	"math"
	"testing"

	"github.com/gsudice/nsf-cosea/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestNormalize01_NonConstantSeries(t *testing.T) {
	got := Normalize01([]float64{1, 2, 3, 4})
	if got[0] != 0 {
		t.Errorf("min should normalize to 0, got %v", got[0])
	}
	if got[3] != 1 {
		t.Errorf("max should normalize to 1, got %v", got[3])
	}
	for _, v := range got {
		if v < 0 || v > 1 {
			t.Errorf("value %v outside [0,1]", v)
		}
	}
}

func TestNormalize01_DegenerateSeries(t *testing.T) {
	got := Normalize01([]float64{5, 5, 5})
	for _, v := range got {
		if v != 0 {
			t.Errorf("degenerate series should normalize to all zeros, got %v", v)
		}
	}
}

func TestNormalize01_AllNaN(t *testing.T) {
	got := Normalize01([]float64{math.NaN(), math.NaN()})
	for _, v := range got {
		if v != 0 {
			t.Errorf("all-NaN series should normalize to all zeros, got %v", v)
		}
	}
}

func TestBuilder_Build_CapacityFloor(t *testing.T) {
	b := NewBuilder(15)
	records := []model.SchoolRecord{
		{ID: "a", Lat: 33, Lon: -84, CSEnrollment: 100, CertifiedTeachers: 1},
		{ID: "b", Lat: 34, Lon: -85, CSEnrollment: 200, CertifiedTeachers: 20},
	}
	_, facilities, err := b.Build(records, model.MetricCSEnrollment)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	for _, f := range facilities {
		if f.Capacity < MinCapacity {
			t.Errorf("facility %s capacity %v below floor %v", f.ID, f.Capacity, MinCapacity)
		}
	}
	if facilities[1].Capacity != 20*15 {
		t.Errorf("expected facility b capacity = 300, got %v", facilities[1].Capacity)
	}
}

func TestBuilder_Build_UnknownMetric(t *testing.T) {
	b := NewBuilder(15)
	_, _, err := b.Build(nil, model.DemandMetric("foo"))
	if err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestBuilder_Build_SFRZeroTeachersFallback(t *testing.T) {
	b := NewBuilder(15)
	records := []model.SchoolRecord{
		{ID: "a", Lat: 33, Lon: -84, CSEnrollment: 50, CertifiedTeachers: 0},
		{ID: "b", Lat: 34, Lon: -85, CSEnrollment: 100, CertifiedTeachers: 10},
	}
	points, _, err := b.Build(records, model.MetricSFR)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	// a's raw sfr falls back to enrollment (50), b's raw sfr is 10 — a
	// should end up with the higher normalized demand.
	if points[0].Demand <= points[1].Demand {
		t.Errorf("expected fallback-to-enrollment school to have higher demand: got %v vs %v",
			points[0].Demand, points[1].Demand)
	}
}

func TestBuilder_Build_RIMetricMissingMapsToZero(t *testing.T) {
	b := NewBuilder(15)
	records := []model.SchoolRecord{
		{ID: "a", Lat: 33, Lon: -84, RIAsian: ptr(0.5)},
		{ID: "b", Lat: 34, Lon: -85, RIAsian: nil},
	}
	points, _, err := b.Build(records, model.MetricRIAsian)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if points[1].Demand != 0 {
		t.Errorf("missing RI value should normalize via 0, got demand %v", points[1].Demand)
	}
}

func TestAggregateBlockGroups_EnrollmentWeightedCentroid(t *testing.T) {
	bg := "bg1"
	records := []model.SchoolRecord{
		{ID: "a", Lat: 10, Lon: 10, CSEnrollment: 100, BlockGroupID: &bg},
		{ID: "b", Lat: 20, Lon: 20, CSEnrollment: 300, BlockGroupID: &bg},
	}
	points := []model.DemandPoint{
		{ID: "a", Lat: 10, Lon: 10, Demand: 0.2},
		{ID: "b", Lat: 20, Lon: 20, Demand: 0.8},
	}
	facilities := []model.FacilityCandidate{
		{ID: "a", Lat: 10, Lon: 10, Capacity: 50},
		{ID: "b", Lat: 20, Lon: 20, Capacity: 50},
	}
	outPoints, outFacilities := AggregateBlockGroups(records, points, facilities)
	if len(outPoints) != 1 || len(outFacilities) != 1 {
		t.Fatalf("expected single aggregated group, got %d points, %d facilities", len(outPoints), len(outFacilities))
	}
	wantLat := (10*100 + 20*300) / 400.0
	if math.Abs(outPoints[0].Lat-wantLat) > 1e-9 {
		t.Errorf("centroid lat = %v, want %v", outPoints[0].Lat, wantLat)
	}
	if outFacilities[0].Capacity != 100 {
		t.Errorf("aggregated capacity = %v, want 100 (sum of members, above floor)", outFacilities[0].Capacity)
	}
}
