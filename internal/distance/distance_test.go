package distance

import (
	"context"
	"testing"

	"github.com/gsudice/nsf-cosea/internal/model"
)

func sampleMatrix(t *testing.T) *Matrix {
	t.Helper()
	demand := []model.DemandPoint{
		{ID: "d0", Lat: 33.0, Lon: -84.0},
		{ID: "d1", Lat: 33.1, Lon: -84.1},
	}
	facilities := []model.FacilityCandidate{
		{ID: "f0", Lat: 33.0, Lon: -84.0, Capacity: 100},
		{ID: "f1", Lat: 34.0, Lon: -85.0, Capacity: 100},
		{ID: "f2", Lat: 33.05, Lon: -84.05, Capacity: 100},
	}
	m, err := HaversineOracle{}.Build(context.Background(), demand, facilities)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return m
}

func TestHaversineOracle_Build_DenseAndZeroForCoLocatedPair(t *testing.T) {
	m := sampleMatrix(t)
	if len(m.N[0]) != 3 || len(m.N[1]) != 3 {
		t.Fatalf("expected every demand point connected to every facility, got %v, %v", m.N[0], m.N[1])
	}
	d, ok := m.Distance(0, 0)
	if !ok || d != 0 {
		t.Errorf("distance to co-located facility should be 0, got %v (ok=%v)", d, ok)
	}
}

func TestMatrix_NeighborsWithin(t *testing.T) {
	m := sampleMatrix(t)
	near := m.NeighborsWithin(0, 1.0)
	for _, j := range near {
		d, _ := m.Distance(0, j)
		if d > 1.0 {
			t.Errorf("neighbor %d at distance %v exceeds radius", j, d)
		}
	}
	if len(near) == 0 {
		t.Fatal("expected at least the co-located facility within 1 mile")
	}
}

func TestMatrix_Prune_RetainsKClosest(t *testing.T) {
	m := sampleMatrix(t)
	m.Prune(2)
	for i, neighbors := range m.N {
		if len(neighbors) > 2 {
			t.Errorf("demand %d retained %d neighbors after pruning to 2", i, len(neighbors))
		}
	}
	// f1 (the far facility) should have been dropped for both demand points.
	if _, ok := m.Distance(0, 1); ok {
		t.Error("expected farthest facility pruned from demand 0")
	}
}

func TestMatrix_Prune_NoopWhenKNonPositive(t *testing.T) {
	m := sampleMatrix(t)
	before := len(m.N[0])
	m.Prune(0)
	if len(m.N[0]) != before {
		t.Errorf("Prune(0) should be a no-op, neighbor count changed from %d to %d", before, len(m.N[0]))
	}
}

func TestMatrix_CheckCoverage_CountsUncoveredDemand(t *testing.T) {
	m := &Matrix{N: [][]int{{0}, {}, {1, 2}}}
	if got := m.CheckCoverage(); got != 1 {
		t.Errorf("expected 1 uncovered demand point, got %d", got)
	}
}

func TestNewOracle_HaversineDefault(t *testing.T) {
	o, err := NewOracle("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := o.(HaversineOracle); !ok {
		t.Errorf("expected HaversineOracle for empty backend, got %T", o)
	}
}

func TestNewOracle_NetworkRequiresConfiguration(t *testing.T) {
	if _, err := NewOracle("network", nil); err == nil {
		t.Fatal("expected error when network backend requested without a NetworkOracle")
	}
}

func TestNewOracle_UnknownBackend(t *testing.T) {
	if _, err := NewOracle("bogus", nil); err == nil {
		t.Fatal("expected error for unrecognized backend name")
	}
}
