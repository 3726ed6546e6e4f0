package solver

// LSCPResult is the Location Set Covering Problem solution: the smallest
// set of open facilities covering every demand point at radius R, or an
// explicit infeasibility reason when no such set exists.
type LSCPResult struct {
	Status         Status
	OpenFacilities []string
	Reason         string
}

// LSCP solves: minimize Σ y_j subject to Σ_{j∈N_cov(i)} y_j ≥ 1 for every
// demand point i. Pre-checks that every demand point has a non-empty
// coverage set at R before searching; an empty set makes the instance
// infeasible at R regardless of how many facilities open.
//
// Below exactCutoff facility candidates, searches increasing facility
// counts k = 1, 2, ... and returns the first k with a covering
// combination — this is necessarily the minimum, so the result is always
// Optimal when one is found. Above the cutoff, falls back to a greedy
// set-cover heuristic (repeatedly open the facility covering the most
// still-uncovered demand), reported as Heuristic.
func LSCP(ctx *FormulationContext, exactCutoff int) (*LSCPResult, error) {
	for i := range ctx.Demand {
		if len(ctx.Ncov[i]) == 0 {
			return &LSCPResult{Status: StatusInfeasible, Reason: "demand point unreachable within coverage radius"}, nil
		}
	}

	n := len(ctx.Facilities)
	if n <= exactCutoff {
		for k := 1; k <= n; k++ {
			for _, combo := range combinations(n, k) {
				if coversAll(ctx, combo) {
					return &LSCPResult{Status: StatusOptimal, OpenFacilities: facilityIDs(ctx, combo)}, nil
				}
			}
		}
		return &LSCPResult{Status: StatusInfeasible, Reason: "no facility combination covers every demand point"}, nil
	}

	open := greedySetCover(ctx)
	if open == nil {
		return &LSCPResult{Status: StatusInfeasible, Reason: "no facility combination covers every demand point"}, nil
	}
	return &LSCPResult{Status: StatusHeuristic, OpenFacilities: facilityIDs(ctx, open)}, nil
}

func coversAll(ctx *FormulationContext, open []int) bool {
	for i := range ctx.Demand {
		covered := false
		for _, j := range open {
			if containsInt(ctx.Ncov[i], j) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// greedySetCover repeatedly opens the facility covering the most
// still-uncovered demand points until every demand point is covered, or
// returns nil if some demand point can never be covered.
func greedySetCover(ctx *FormulationContext) []int {
	uncovered := make(map[int]bool, len(ctx.Demand))
	for i := range ctx.Demand {
		uncovered[i] = true
	}

	var open []int
	for len(uncovered) > 0 {
		bestJ, bestGain := -1, -1
		for j := range ctx.Facilities {
			gain := 0
			for i := range uncovered {
				if containsInt(ctx.Ncov[i], j) {
					gain++
				}
			}
			if gain > bestGain {
				bestGain, bestJ = gain, j
			}
		}
		if bestJ == -1 || bestGain == 0 {
			return nil
		}
		open = append(open, bestJ)
		for i := range uncovered {
			if containsInt(ctx.Ncov[i], bestJ) {
				delete(uncovered, i)
			}
		}
	}
	return open
}
