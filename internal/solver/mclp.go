package solver

// MCLPResult is the Maximal Covering Location Problem solution: which p
// facilities to open to maximize covered demand.
type MCLPResult struct {
	Status         Status
	OpenFacilities []string
	CoveredDemand  float64
	CoveredPercent float64
}

// MCLP solves: maximize Σ d_i·z_i, exactly p facilities open, where z_i
// is 1 when demand point i's coverage set (Ncov) intersects the open
// set. Below exactCutoff, enumerates every p-sized facility combination
// exactly (no assignment subproblem — coverage is a simple set
// intersection — so this is cheap even well past the p-median cutoff).
// Above it, falls back to greedy marginal-gain selection, Heuristic.
func MCLP(ctx *FormulationContext, p int, exactCutoff int) (*MCLPResult, error) {
	n := len(ctx.Facilities)
	if p <= 0 || p > n {
		return &MCLPResult{Status: StatusInfeasible}, nil
	}

	var totalDemand float64
	for _, d := range ctx.Demand {
		totalDemand += d.Demand
	}

	if n <= exactCutoff {
		var bestOpen []int
		bestCovered := -1.0
		for _, combo := range combinations(n, p) {
			covered := coveredDemand(ctx, combo)
			if covered > bestCovered {
				bestCovered = covered
				bestOpen = combo
			}
		}
		if bestOpen == nil {
			return &MCLPResult{Status: StatusInfeasible}, nil
		}
		return &MCLPResult{
			Status:         StatusOptimal,
			OpenFacilities: facilityIDs(ctx, bestOpen),
			CoveredDemand:  bestCovered,
			CoveredPercent: percentOf(bestCovered, totalDemand),
		}, nil
	}

	open := greedyMaxCover(ctx, p)
	covered := coveredDemand(ctx, open)
	return &MCLPResult{
		Status:         StatusHeuristic,
		OpenFacilities: facilityIDs(ctx, open),
		CoveredDemand:  covered,
		CoveredPercent: percentOf(covered, totalDemand),
	}, nil
}

func coveredDemand(ctx *FormulationContext, open []int) float64 {
	var total float64
	for i, d := range ctx.Demand {
		for _, j := range open {
			if containsInt(ctx.Ncov[i], j) {
				total += d.Demand
				break
			}
		}
	}
	return total
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

// greedyMaxCover repeatedly opens the facility with the largest marginal
// covered-demand gain until p facilities are open.
func greedyMaxCover(ctx *FormulationContext, p int) []int {
	n := len(ctx.Facilities)
	chosen := make(map[int]bool, p)
	var open []int
	for len(open) < p {
		bestJ, bestGain := -1, -1.0
		for j := 0; j < n; j++ {
			if chosen[j] {
				continue
			}
			trial := append(append([]int{}, open...), j)
			gain := coveredDemand(ctx, trial) - coveredDemand(ctx, open)
			if gain > bestGain {
				bestGain, bestJ = gain, j
			}
		}
		if bestJ == -1 {
			break
		}
		open = append(open, bestJ)
		chosen[bestJ] = true
	}
	return open
}
