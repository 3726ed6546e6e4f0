package render

import (
	"math/rand"

	"github.com/gsudice/nsf-cosea/internal/solver"
)

// PMedian draws demand points sized by normalized demand (clamped pixel
// radius), the opened facilities as distinct markers, and spider lines
// from each demand point to its assigned facility, subsampled to
// spiderLineSubsample when the assignment is large.
func PMedian(ctx *solver.FormulationContext, result *solver.PMedianResult, path string) error {
	canvas := newCanvas()
	proj, demandXY, facilityXY := projectAll(ctx)

	open := make(map[string]bool, len(result.OpenFacilities))
	for _, id := range result.OpenFacilities {
		open[id] = true
	}
	facilityIndexByID := make(map[string]int, len(ctx.Facilities))
	for j, f := range ctx.Facilities {
		facilityIndexByID[f.ID] = j
	}

	for _, i := range sampleAssignedIndices(ctx, result) {
		j := facilityIndexByID[result.Assignment[ctx.Demand[i].ID]]
		dx, dy := proj.pixel(demandXY[i][0], demandXY[i][1])
		fx, fy := proj.pixel(facilityXY[j][0], facilityXY[j][1])
		drawLine(canvas, dx, dy, fx, fy, colorSpiderLine)
	}

	for i, d := range ctx.Demand {
		dx, dy := proj.pixel(demandXY[i][0], demandXY[i][1])
		drawDisc(canvas, dx, dy, clampMarkerRadius(d.Demand), colorDemand)
	}

	for j, f := range ctx.Facilities {
		fx, fy := proj.pixel(facilityXY[j][0], facilityXY[j][1])
		if open[f.ID] {
			drawDisc(canvas, fx, fy, 14, colorOpenFacility)
		} else {
			drawDisc(canvas, fx, fy, 6, colorClosedFaint)
		}
	}

	return savePNG(canvas, path)
}

// sampleAssignedIndices returns the demand indices whose spider lines get
// drawn: all of them when the assignment is small, otherwise a fixed-seed
// random sample of spiderLineSubsample so a dense map shows a
// representative subset rather than whichever rows happen to come first.
func sampleAssignedIndices(ctx *solver.FormulationContext, result *solver.PMedianResult) []int {
	assigned := make([]int, 0, len(ctx.Demand))
	for i, d := range ctx.Demand {
		if _, ok := result.Assignment[d.ID]; ok {
			assigned = append(assigned, i)
		}
	}
	if len(assigned) <= spiderLineSubsample {
		return assigned
	}
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(assigned), func(a, b int) {
		assigned[a], assigned[b] = assigned[b], assigned[a]
	})
	return assigned[:spiderLineSubsample]
}
