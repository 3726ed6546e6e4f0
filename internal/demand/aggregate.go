package demand

import (
	"math"

	"github.com/gsudice/nsf-cosea/internal/model"
)

// AggregateBlockGroups transforms per-school demand points and facility
// candidates into per-block-group centroids. Schools without a
// BlockGroupID pass through unchanged. This is a transformation between
// two representations of the same schema, not a mode flag on Build.
//
// Centroid coordinates and demand are the enrollment-weighted mean of
// member schools; capacity is the sum of member capacities, with the
// MinCapacity floor re-applied after summing.
func AggregateBlockGroups(records []model.SchoolRecord, points []model.DemandPoint, facilities []model.FacilityCandidate) ([]model.DemandPoint, []model.FacilityCandidate) {
	type group struct {
		weightSum   float64
		latSum      float64
		lonSum      float64
		demandSum   float64
		capacitySum float64
	}
	groups := make(map[string]*group)
	order := make([]string, 0)

	var outPoints []model.DemandPoint
	var outFacilities []model.FacilityCandidate

	for i, rec := range records {
		if rec.BlockGroupID == nil {
			outPoints = append(outPoints, points[i])
			outFacilities = append(outFacilities, facilities[i])
			continue
		}
		id := *rec.BlockGroupID
		g, ok := groups[id]
		if !ok {
			g = &group{}
			groups[id] = g
			order = append(order, id)
		}
		weight := rec.CSEnrollment
		if weight == 0 {
			weight = 1 // a zero-enrollment school still contributes its location.
		}
		g.weightSum += weight
		g.latSum += rec.Lat * weight
		g.lonSum += rec.Lon * weight
		g.demandSum += points[i].Demand * weight
		g.capacitySum += facilities[i].Capacity
	}

	for _, id := range order {
		g := groups[id]
		if g.weightSum == 0 {
			continue
		}
		lat := g.latSum / g.weightSum
		lon := g.lonSum / g.weightSum
		demand := g.demandSum / g.weightSum
		outPoints = append(outPoints, model.DemandPoint{ID: id, Lat: lat, Lon: lon, Demand: demand})
		outFacilities = append(outFacilities, model.FacilityCandidate{
			ID:       id,
			Lat:      lat,
			Lon:      lon,
			Capacity: math.Max(MinCapacity, g.capacitySum),
		})
	}

	return outPoints, outFacilities
}
