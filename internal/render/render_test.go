package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gsudice/nsf-cosea/internal/distance"
	"github.com/gsudice/nsf-cosea/internal/model"
	"github.com/gsudice/nsf-cosea/internal/solver"
)

func TestClampMarkerRadius_Bounds(t *testing.T) {
	if got := clampMarkerRadius(0); got != demandMarkerMin {
		t.Errorf("demand 0 should clamp to min %d, got %d", demandMarkerMin, got)
	}
	if got := clampMarkerRadius(1); got != demandMarkerMax {
		t.Errorf("demand 1 should clamp to max %d, got %d", demandMarkerMax, got)
	}
}

func sampleContext() *solver.FormulationContext {
	demand := []model.DemandPoint{
		{ID: "d0", Lat: 33.0, Lon: -84.0, Demand: 0.2},
		{ID: "d1", Lat: 33.1, Lon: -84.1, Demand: 0.9},
	}
	facilities := []model.FacilityCandidate{
		{ID: "f0", Lat: 33.0, Lon: -84.0, Capacity: 100},
		{ID: "f1", Lat: 33.1, Lon: -84.1, Capacity: 100},
	}
	m := &distance.Matrix{
		Demand:     demand,
		Facilities: facilities,
		D:          map[[2]int]float64{{0, 0}: 0, {0, 1}: 8, {1, 0}: 8, {1, 1}: 0},
		N:          [][]int{{0, 1}, {0, 1}},
	}
	return solver.NewFormulationContext(m, 5.0)
}

func TestPMedian_WritesPNG(t *testing.T) {
	ctx := sampleContext()
	result := &solver.PMedianResult{
		Status:         solver.StatusOptimal,
		OpenFacilities: []string{"f0"},
		Assignment:     map[string]string{"d0": "f0", "d1": "f0"},
		Objective:      8,
	}
	path := filepath.Join(t.TempDir(), "pmedian.png")
	if err := PMedian(ctx, result, path); err != nil {
		t.Fatalf("PMedian render returned error: %v", err)
	}
	assertNonEmptyFile(t, path)
}

func TestLSCP_WritesPNG(t *testing.T) {
	ctx := sampleContext()
	result := &solver.LSCPResult{Status: solver.StatusOptimal, OpenFacilities: []string{"f0", "f1"}}
	path := filepath.Join(t.TempDir(), "lscp.png")
	if err := LSCP(ctx, result, 5.0, path); err != nil {
		t.Fatalf("LSCP render returned error: %v", err)
	}
	assertNonEmptyFile(t, path)
}

func TestMCLP_WritesPNG(t *testing.T) {
	ctx := sampleContext()
	result := &solver.MCLPResult{Status: solver.StatusOptimal, OpenFacilities: []string{"f0"}, CoveredDemand: 0.2, CoveredPercent: 18.2}
	path := filepath.Join(t.TempDir(), "mclp.png")
	if err := MCLP(ctx, result, 5.0, path); err != nil {
		t.Fatalf("MCLP render returned error: %v", err)
	}
	assertNonEmptyFile(t, path)
}

func assertNonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected output file at %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Errorf("output file %s is empty", path)
	}
}
