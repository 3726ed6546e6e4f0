package render

import (
	"math"

	"github.com/gsudice/nsf-cosea/internal/model"
	"github.com/gsudice/nsf-cosea/internal/solver"
	"github.com/gsudice/nsf-cosea/pkg/geo"
)

// MCLP draws demand colored by covered/uncovered and open facilities
// emphasized. Coverage is recomputed via haversine distance to the
// nearest open facility at R, independent of whichever back-end the
// solver used for the optimization itself — an intentional divergence
// documented at the formulation level; visualizations never claim
// point-for-point agreement with a network-distance solve.
func MCLP(ctx *solver.FormulationContext, result *solver.MCLPResult, coverageMiles float64, path string) error {
	canvas := newCanvas()
	proj, demandXY, facilityXY := projectAll(ctx)

	open := make([]model.FacilityCandidate, 0, len(result.OpenFacilities))
	openSet := make(map[string]bool, len(result.OpenFacilities))
	for _, id := range result.OpenFacilities {
		openSet[id] = true
	}
	for _, f := range ctx.Facilities {
		if openSet[f.ID] {
			open = append(open, f)
		}
	}

	for i, d := range ctx.Demand {
		covered := nearestOpenWithin(d.Location(), open, coverageMiles)
		dx, dy := proj.pixel(demandXY[i][0], demandXY[i][1])
		if covered {
			drawDisc(canvas, dx, dy, demandMarkerMin, colorCovered)
		} else {
			drawDisc(canvas, dx, dy, demandMarkerMin, colorUncovered)
		}
	}

	for j, f := range ctx.Facilities {
		if !openSet[f.ID] {
			continue
		}
		fx, fy := proj.pixel(facilityXY[j][0], facilityXY[j][1])
		drawDisc(canvas, fx, fy, 14, colorOpenFacility)
	}

	return savePNG(canvas, path)
}

func nearestOpenWithin(loc model.Location, open []model.FacilityCandidate, radiusMiles float64) bool {
	best := math.Inf(1)
	for _, f := range open {
		if d := geo.HaversineMiles(loc, f.Location()); d < best {
			best = d
		}
	}
	return best <= radiusMiles
}
