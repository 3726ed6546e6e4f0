// Package solver implements the Optimization Core: capacitated p-median,
// LSCP, and MCLP over a shared formulation context built from a Distance
// Oracle matrix.
package solver

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/flow"

	"github.com/gsudice/nsf-cosea/internal/distance"
	"github.com/gsudice/nsf-cosea/internal/model"
)

// Status reports how a formulation was solved.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusHeuristic  Status = "heuristic"
	StatusInfeasible Status = "infeasible"
	StatusNonOptimal Status = "non_optimal"
)

// flowScale converts the continuous demand/capacity units into integers
// for lvlath/flow's integer-weighted graph, without materially affecting
// the feasibility decision.
const flowScale = 1_000_000

// FormulationContext is the shared (D, N, N_cov, demand, capacity) state
// extended, not duplicated, by each of the three problem types.
type FormulationContext struct {
	Demand        []model.DemandPoint
	Facilities    []model.FacilityCandidate
	Matrix        *distance.Matrix
	CoverageMiles float64

	// Ncov[i] lists facility indices within CoverageMiles of demand i —
	// the LSCP/MCLP coverage set, distinct from Matrix.N[i] (every
	// reachable facility regardless of radius).
	Ncov [][]int
}

// NewFormulationContext derives the coverage sets from matrix at radius
// coverageMiles.
func NewFormulationContext(matrix *distance.Matrix, coverageMiles float64) *FormulationContext {
	ncov := make([][]int, len(matrix.Demand))
	for i := range matrix.Demand {
		ncov[i] = matrix.NeighborsWithin(i, coverageMiles)
	}
	return &FormulationContext{
		Demand:        matrix.Demand,
		Facilities:    matrix.Facilities,
		Matrix:        matrix,
		CoverageMiles: coverageMiles,
		Ncov:          ncov,
	}
}

// combinations returns every size-p subset of {0,...,n-1}, as sorted
// index slices.
func combinations(n, p int) [][]int {
	if p <= 0 || p > n {
		return nil
	}
	var out [][]int
	current := make([]int, 0, p)
	var rec func(start int)
	rec = func(start int) {
		if len(current) == p {
			combo := make([]int, p)
			copy(combo, current)
			out = append(out, combo)
			return
		}
		remaining := p - len(current)
		for i := start; i <= n-remaining; i++ {
			current = append(current, i)
			rec(i + 1)
			current = current[:len(current)-1]
		}
	}
	rec(0)
	return out
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// capacityFeasible checks, via max-flow on a bipartite supply/capacity
// graph, whether every demand point can be assigned to some open
// facility within its reachable set without exceeding that facility's
// capacity. This is a necessary (LP-relaxation) condition, not a
// sufficient one — it ignores the one-facility-per-demand integrality
// constraint — so a false result always rules a combination out
// correctly, while a true result still leaves the exact assignment
// search to decide.
func capacityFeasible(ctx *FormulationContext, open []int) (bool, error) {
	g := core.NewGraph(core.WithWeighted(), core.WithDirected(true))
	const source, sink = "source", "sink"
	if err := g.AddVertex(source); err != nil {
		return false, err
	}
	if err := g.AddVertex(sink); err != nil {
		return false, err
	}

	var totalWeight int64
	for i, d := range ctx.Demand {
		demandNode := fmt.Sprintf("d%d", i)
		if err := g.AddVertex(demandNode); err != nil {
			return false, err
		}
		weight := int64(d.Demand * flowScale)
		if weight <= 0 {
			continue
		}
		if _, err := g.AddEdge(source, demandNode, weight); err != nil {
			return false, err
		}
		totalWeight += weight

		for _, j := range open {
			if !containsInt(ctx.Matrix.N[i], j) {
				continue
			}
			facNode := fmt.Sprintf("f%d", j)
			if !g.HasVertex(facNode) {
				if err := g.AddVertex(facNode); err != nil {
					return false, err
				}
				capWeight := int64(ctx.Facilities[j].Capacity * flowScale)
				if _, err := g.AddEdge(facNode, sink, capWeight); err != nil {
					return false, err
				}
			}
			if _, err := g.AddEdge(demandNode, facNode, int64(math.MaxInt32)); err != nil {
				return false, err
			}
		}
	}

	maxFlow, _, err := flow.Dinic(g, source, sink, flow.FlowOptions{})
	if err != nil {
		return false, fmt.Errorf("solver: capacity feasibility flow: %w", err)
	}
	// All demand is routable exactly when the max flow saturates every
	// source edge; both sides are sums of the same integer weights, so the
	// half-unit slack only absorbs float accumulation inside Dinic.
	return maxFlow >= float64(totalWeight)-0.5, nil
}
