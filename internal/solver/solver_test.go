package solver

import (
	"math"
	"testing"

	"github.com/gsudice/nsf-cosea/internal/distance"
	"github.com/gsudice/nsf-cosea/internal/model"
)

// buildMatrix assembles a dense Matrix from a symmetric distance table,
// letting solver-level tests exercise exact geometric scenarios without
// going through the Distance Oracle or demand builder.
func buildMatrix(ids []string, table [][]float64, demand, capacity []float64) *distance.Matrix {
	n := len(ids)
	d := make([]model.DemandPoint, n)
	f := make([]model.FacilityCandidate, n)
	for i, id := range ids {
		d[i] = model.DemandPoint{ID: id, Demand: demand[i]}
		f[i] = model.FacilityCandidate{ID: id, Capacity: capacity[i]}
	}
	m := &distance.Matrix{
		Demand:     d,
		Facilities: f,
		D:          make(map[[2]int]float64),
		N:          make([][]int, n),
	}
	for i := 0; i < n; i++ {
		neighbors := make([]int, n)
		for j := 0; j < n; j++ {
			m.D[[2]int{i, j}] = table[i][j]
			neighbors[j] = j
		}
		m.N[i] = neighbors
	}
	return m
}

// TestPMedian_S1_SquareOfFourSchools reproduces the square scenario: 4
// corners 10 miles apart on adjacent sides, p=3 — exactly one corner
// stays closed and its demand is reassigned to an adjacent open corner
// at distance 10.
func TestPMedian_S1_SquareOfFourSchools(t *testing.T) {
	ids := []string{"A", "B", "C", "D"}
	const side, diag = 10.0, 14.142135623730951
	table := [][]float64{
		{0, side, side, diag},
		{side, 0, diag, side},
		{side, diag, 0, side},
		{diag, side, side, 0},
	}
	demand := []float64{1, 1, 1, 1}
	capacity := []float64{100, 100, 100, 100}
	m := buildMatrix(ids, table, demand, capacity)
	ctx := NewFormulationContext(m, 5.0)

	result, err := PMedian(ctx, 3, 12)
	if err != nil {
		t.Fatalf("PMedian returned error: %v", err)
	}
	if result.Status != StatusOptimal {
		t.Fatalf("expected Optimal status, got %v", result.Status)
	}
	if len(result.OpenFacilities) != 3 {
		t.Fatalf("expected 3 open facilities, got %d: %v", len(result.OpenFacilities), result.OpenFacilities)
	}
	if math.Abs(result.Objective-side) > 1e-9 {
		t.Errorf("expected objective %v (the single reassigned corner's side distance), got %v", side, result.Objective)
	}
}

// TestMCLP_S2_ThreeColinearSchools reproduces the colinear scenario: one
// facility covers two of the three demand points at R=10mi. The tied
// facility identity is left to the solver's own tie-break, per the
// formulation's documented tie-break rule.
func TestMCLP_S2_ThreeColinearSchools(t *testing.T) {
	ids := []string{"mile0", "mile5", "mile20"}
	table := [][]float64{
		{0, 5, 20},
		{5, 0, 15},
		{20, 15, 0},
	}
	demand := []float64{1, 1, 1}
	capacity := []float64{100, 100, 100}
	m := buildMatrix(ids, table, demand, capacity)
	ctx := NewFormulationContext(m, 10.0)

	result, err := MCLP(ctx, 1, 12)
	if err != nil {
		t.Fatalf("MCLP returned error: %v", err)
	}
	if result.Status != StatusOptimal {
		t.Fatalf("expected Optimal status, got %v", result.Status)
	}
	if len(result.OpenFacilities) != 1 {
		t.Fatalf("expected exactly 1 open facility, got %d", len(result.OpenFacilities))
	}
	if math.Abs(result.CoveredDemand-2) > 1e-9 {
		t.Errorf("expected covered demand 2, got %v", result.CoveredDemand)
	}
	if math.Abs(result.CoveredPercent-200.0/3) > 1e-6 {
		t.Errorf("expected covered percent ~66.67, got %v", result.CoveredPercent)
	}
}

// TestLSCP_S3_ThreeSchools reproduces the three-school scenario: the
// farthest school is only coverable by itself, so the minimum cover
// needs exactly 2 facilities.
func TestLSCP_S3_ThreeSchools(t *testing.T) {
	ids := []string{"mile0", "mile10", "mile30"}
	table := [][]float64{
		{0, 10, 30},
		{10, 0, 20},
		{30, 20, 0},
	}
	demand := []float64{1, 1, 1}
	capacity := []float64{100, 100, 100}
	m := buildMatrix(ids, table, demand, capacity)
	ctx := NewFormulationContext(m, 10.0)

	result, err := LSCP(ctx, 12)
	if err != nil {
		t.Fatalf("LSCP returned error: %v", err)
	}
	if result.Status != StatusOptimal {
		t.Fatalf("expected Optimal status, got %v", result.Status)
	}
	if len(result.OpenFacilities) != 2 {
		t.Errorf("expected minimum cover of 2 facilities, got %d: %v", len(result.OpenFacilities), result.OpenFacilities)
	}
}

// TestLSCP_InfeasibleAtRadius pre-checks a demand point whose nearest
// facility candidate sits beyond R — no facility count can fix that, so
// LSCP must refuse up front.
func TestLSCP_InfeasibleAtRadius(t *testing.T) {
	m := &distance.Matrix{
		Demand: []model.DemandPoint{
			{ID: "near", Demand: 1},
			{ID: "remote", Demand: 1},
		},
		Facilities: []model.FacilityCandidate{
			{ID: "f0", Capacity: 100},
		},
		D: map[[2]int]float64{
			{0, 0}: 2,
			{1, 0}: 40,
		},
		N: [][]int{{0}, {0}},
	}
	ctx := NewFormulationContext(m, 5.0)

	result, err := LSCP(ctx, 12)
	if err != nil {
		t.Fatalf("LSCP returned error: %v", err)
	}
	if result.Status != StatusInfeasible {
		t.Fatalf("expected Infeasible at R=5 for the remote demand point, got %v", result.Status)
	}
	if result.Reason == "" {
		t.Error("expected an infeasibility reason naming the uncovered condition")
	}
}

func TestPMedian_InvariantsHoldAcrossOpenAssignment(t *testing.T) {
	ids := []string{"A", "B", "C", "D"}
	table := [][]float64{
		{0, 10, 10, 14},
		{10, 0, 14, 10},
		{10, 14, 0, 10},
		{14, 10, 10, 0},
	}
	demand := []float64{0.4, 0.6, 0.2, 0.8}
	capacity := []float64{50, 50, 50, 50}
	m := buildMatrix(ids, table, demand, capacity)
	ctx := NewFormulationContext(m, 5.0)

	result, err := PMedian(ctx, 2, 12)
	if err != nil {
		t.Fatalf("PMedian returned error: %v", err)
	}
	if result.Status != StatusOptimal {
		t.Fatalf("expected Optimal status, got %v", result.Status)
	}
	if len(result.OpenFacilities) != 2 {
		t.Fatalf("expected exactly 2 open facilities, got %d", len(result.OpenFacilities))
	}
	if len(result.Assignment) != len(ids) {
		t.Fatalf("expected every demand point assigned exactly once, got %d assignments", len(result.Assignment))
	}
	openSet := make(map[string]bool, len(result.OpenFacilities))
	for _, id := range result.OpenFacilities {
		openSet[id] = true
	}
	for _, facilityID := range result.Assignment {
		if !openSet[facilityID] {
			t.Errorf("demand assigned to closed facility %s", facilityID)
		}
	}
}

func TestMCLP_CoveredNeverExceedsTotalDemand(t *testing.T) {
	ids := []string{"A", "B", "C"}
	table := [][]float64{
		{0, 1, 1},
		{1, 0, 1},
		{1, 1, 0},
	}
	demand := []float64{0.5, 0.5, 0.5}
	capacity := []float64{50, 50, 50}
	m := buildMatrix(ids, table, demand, capacity)
	ctx := NewFormulationContext(m, 2.0)

	result, err := MCLP(ctx, 2, 12)
	if err != nil {
		t.Fatalf("MCLP returned error: %v", err)
	}
	if result.CoveredDemand > 1.5+1e-9 {
		t.Errorf("covered demand %v exceeds total demand 1.5", result.CoveredDemand)
	}
}
