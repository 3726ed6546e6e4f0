package render

import (
	"github.com/gsudice/nsf-cosea/internal/solver"
	"github.com/gsudice/nsf-cosea/pkg/geo"
)

// LSCP draws a low-opacity coverage buffer of radius R around each open
// facility, demand points overlaid, and open facilities emphasized.
func LSCP(ctx *solver.FormulationContext, result *solver.LSCPResult, coverageMiles float64, path string) error {
	canvas := newCanvas()
	proj, demandXY, facilityXY := projectAll(ctx)

	open := make(map[string]bool, len(result.OpenFacilities))
	for _, id := range result.OpenFacilities {
		open[id] = true
	}

	radiusMeters := coverageMiles * geo.MilesToMeters
	bufferPixels := int(radiusMeters * proj.scale)

	for j, f := range ctx.Facilities {
		if !open[f.ID] {
			continue
		}
		fx, fy := proj.pixel(facilityXY[j][0], facilityXY[j][1])
		drawDisc(canvas, fx, fy, bufferPixels, colorCoverageBuf)
	}

	for i := range ctx.Demand {
		dx, dy := proj.pixel(demandXY[i][0], demandXY[i][1])
		drawDisc(canvas, dx, dy, demandMarkerMin, colorDemand)
	}

	for j, f := range ctx.Facilities {
		if !open[f.ID] {
			continue
		}
		fx, fy := proj.pixel(facilityXY[j][0], facilityXY[j][1])
		drawDisc(canvas, fx, fy, 14, colorOpenFacility)
	}

	return savePNG(canvas, path)
}
