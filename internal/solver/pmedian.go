package solver

import (
	"container/heap"
	"math"
	"sort"
)

// PMedianResult is the capacitated p-median solution: which facilities
// opened, how demand was assigned, and the objective achieved.
type PMedianResult struct {
	Status         Status
	OpenFacilities []string
	Assignment     map[string]string // demand ID -> facility ID
	Objective      float64
}

// comboItem is one branch-and-bound frontier entry: a candidate set of
// open facilities and the LP-relaxation lower bound on its assignment
// cost (ignoring capacity).
type comboItem struct {
	facilities []int
	bound      float64
}

type comboFrontier []comboItem

func (f comboFrontier) Len() int            { return len(f) }
func (f comboFrontier) Less(i, j int) bool  { return f[i].bound < f[j].bound }
func (f comboFrontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *comboFrontier) Push(x interface{}) { *f = append(*f, x.(comboItem)) }
func (f *comboFrontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// relaxedBound returns the LP-relaxation lower bound for open (sum over
// demand of its cheapest reachable facility in open, ignoring capacity),
// or +Inf if some demand point has no reachable facility in open at all.
func relaxedBound(ctx *FormulationContext, open []int) float64 {
	var total float64
	for i, d := range ctx.Demand {
		best := math.Inf(1)
		for _, j := range open {
			if !containsInt(ctx.Matrix.N[i], j) {
				continue
			}
			dist, ok := ctx.Matrix.Distance(i, j)
			if !ok {
				continue
			}
			if cost := d.Demand * dist; cost < best {
				best = cost
			}
		}
		if math.IsInf(best, 1) {
			return math.Inf(1)
		}
		total += best
	}
	return total
}

// PMedian solves the capacitated p-median formulation: minimize
// Σ d_i·D_ij·x_ij, with exactly p facilities open, every demand point
// assigned within its reachable set, and no facility over capacity.
//
// Below exactCutoff facility candidates it runs exact branch-and-bound
// over every p-sized subset of facilities, using the LP-relaxation bound
// (relaxedBound) as the frontier priority and a capacity-feasibility
// max-flow pre-check (capacityFeasible) to skip infeasible subsets
// before the expensive exact assignment search. Above the cutoff it
// falls back to greedy construction with local-search improvement,
// reported as Heuristic.
func PMedian(ctx *FormulationContext, p int, exactCutoff int) (*PMedianResult, error) {
	n := len(ctx.Facilities)
	if p <= 0 || p > n {
		return &PMedianResult{Status: StatusInfeasible}, nil
	}

	if n <= exactCutoff {
		return pMedianExact(ctx, p)
	}
	return pMedianHeuristic(ctx, p)
}

func pMedianExact(ctx *FormulationContext, p int) (*PMedianResult, error) {
	combos := combinations(len(ctx.Facilities), p)
	frontier := make(comboFrontier, 0, len(combos))
	for _, combo := range combos {
		bound := relaxedBound(ctx, combo)
		if math.IsInf(bound, 1) {
			continue
		}
		frontier = append(frontier, comboItem{facilities: combo, bound: bound})
	}
	heap.Init(&frontier)

	bestObjective := math.Inf(1)
	var bestOpen []int
	var bestAssign map[int]int

	for frontier.Len() > 0 {
		top := heap.Pop(&frontier).(comboItem)
		if top.bound >= bestObjective {
			break // nothing left in the frontier can beat the incumbent
		}
		feasible, err := capacityFeasible(ctx, top.facilities)
		if err != nil {
			return nil, err
		}
		if !feasible {
			continue
		}
		assign, cost, ok := exactAssignment(ctx, top.facilities, bestObjective)
		if !ok {
			continue
		}
		if cost < bestObjective {
			bestObjective = cost
			bestOpen = top.facilities
			bestAssign = assign
		}
	}

	if bestOpen == nil {
		return &PMedianResult{Status: StatusInfeasible}, nil
	}
	return &PMedianResult{
		Status:         StatusOptimal,
		OpenFacilities: facilityIDs(ctx, bestOpen),
		Assignment:     assignmentIDs(ctx, bestAssign),
		Objective:      bestObjective,
	}, nil
}

// exactAssignment searches every assignment of demand points to open
// facilities (within each demand's reachable set, respecting capacity),
// pruning a branch once its partial cost already meets or exceeds
// incumbent. Small demand/facility counts (enforced by the exact-cutoff
// gate) keep this tractable.
func exactAssignment(ctx *FormulationContext, open []int, incumbent float64) (map[int]int, float64, bool) {
	capRemaining := make(map[int]float64, len(open))
	for _, j := range open {
		capRemaining[j] = ctx.Facilities[j].Capacity
	}

	best := incumbent
	var bestAssign map[int]int
	assign := make(map[int]int, len(ctx.Demand))

	var rec func(i int, cost float64)
	rec = func(i int, cost float64) {
		if cost >= best {
			return
		}
		if i == len(ctx.Demand) {
			best = cost
			bestAssign = make(map[int]int, len(assign))
			for k, v := range assign {
				bestAssign[k] = v
			}
			return
		}
		d := ctx.Demand[i]
		for _, j := range open {
			if !containsInt(ctx.Matrix.N[i], j) {
				continue
			}
			if capRemaining[j] < d.Demand {
				continue
			}
			dist, ok := ctx.Matrix.Distance(i, j)
			if !ok {
				continue
			}
			capRemaining[j] -= d.Demand
			assign[i] = j
			rec(i+1, cost+d.Demand*dist)
			delete(assign, i)
			capRemaining[j] += d.Demand
		}
	}
	rec(0, 0)

	if bestAssign == nil {
		return nil, 0, false
	}
	return bestAssign, best, true
}

// pMedianHeuristic greedily opens the p facilities with the lowest total
// assignment cost (recomputing nearest-reachable-with-capacity for the
// remaining demand after each pick), then runs single-swap local search.
// Reported as Heuristic: it is not certified optimal.
func pMedianHeuristic(ctx *FormulationContext, p int) (*PMedianResult, error) {
	n := len(ctx.Facilities)
	open := make([]int, 0, p)
	remaining := make(map[int]bool, n)
	for j := 0; j < n; j++ {
		remaining[j] = true
	}

	for len(open) < p {
		bestJ, bestCost := -1, math.Inf(1)
		for j := range remaining {
			candidate := append(append([]int{}, open...), j)
			_, cost, ok := greedyAssignment(ctx, candidate)
			if ok && cost < bestCost {
				bestCost, bestJ = cost, j
			}
		}
		if bestJ == -1 {
			break
		}
		open = append(open, bestJ)
		delete(remaining, bestJ)
	}
	if len(open) < p {
		return &PMedianResult{Status: StatusInfeasible}, nil
	}

	assign, cost, ok := greedyAssignment(ctx, open)
	if !ok {
		return &PMedianResult{Status: StatusInfeasible}, nil
	}

	improved := true
	for improved {
		improved = false
		for oi, openIdx := range open {
			for candidate := range remaining {
				trial := append(append([]int{}, open...), candidate)
				trial = append(trial[:oi], trial[oi+1:]...)
				if len(trial) != p {
					continue
				}
				trialAssign, trialCost, ok := greedyAssignment(ctx, trial)
				if ok && trialCost < cost {
					cost = trialCost
					assign = trialAssign
					delete(remaining, candidate)
					remaining[openIdx] = true
					open = trial
					improved = true
				}
			}
			if improved {
				break
			}
		}
	}

	return &PMedianResult{
		Status:         StatusHeuristic,
		OpenFacilities: facilityIDs(ctx, open),
		Assignment:     assignmentIDs(ctx, assign),
		Objective:      cost,
	}, nil
}

// greedyAssignment assigns demand points in descending-demand order to
// the nearest open facility with remaining capacity. Not guaranteed
// optimal; used only by the heuristic path.
func greedyAssignment(ctx *FormulationContext, open []int) (map[int]int, float64, bool) {
	capRemaining := make(map[int]float64, len(open))
	for _, j := range open {
		capRemaining[j] = ctx.Facilities[j].Capacity
	}
	order := make([]int, len(ctx.Demand))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ctx.Demand[order[a]].Demand > ctx.Demand[order[b]].Demand
	})
	assign := make(map[int]int, len(ctx.Demand))
	var total float64
	for _, i := range order {
		d := ctx.Demand[i]
		bestJ, bestDist := -1, math.Inf(1)
		for _, j := range open {
			if !containsInt(ctx.Matrix.N[i], j) || capRemaining[j] < d.Demand {
				continue
			}
			dist, ok := ctx.Matrix.Distance(i, j)
			if ok && dist < bestDist {
				bestDist, bestJ = dist, j
			}
		}
		if bestJ == -1 {
			return nil, 0, false
		}
		assign[i] = bestJ
		capRemaining[bestJ] -= d.Demand
		total += d.Demand * bestDist
	}
	return assign, total, true
}

func facilityIDs(ctx *FormulationContext, idx []int) []string {
	ids := make([]string, len(idx))
	for k, j := range idx {
		ids[k] = ctx.Facilities[j].ID
	}
	return ids
}

func assignmentIDs(ctx *FormulationContext, assign map[int]int) map[string]string {
	out := make(map[string]string, len(assign))
	for i, j := range assign {
		out[ctx.Demand[i].ID] = ctx.Facilities[j].ID
	}
	return out
}
