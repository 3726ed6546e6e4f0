// Package demand implements the Demand/Capacity Builder: it derives a
// per-point demand value from a chosen metric, normalizes it to [0,1],
// and assigns each point a seat capacity from teacher counts.
package demand

import (
	"fmt"
	"log"
	"math"

	"github.com/gsudice/nsf-cosea/internal/model"
)

// MinCapacity is the floor applied to every facility candidate's capacity
// so that every site is viable regardless of teacher count.
const MinCapacity = 50.0

// ErrUnknownMetric is returned when a metric tag is outside model.ValidMetrics.
type ErrUnknownMetric struct {
	Metric model.DemandMetric
}

func (e ErrUnknownMetric) Error() string {
	return fmt.Sprintf("demand: unrecognized metric %q", e.Metric)
}

// Builder turns a cleaned SchoolRecord table into demand points and
// facility candidates for a chosen metric.
type Builder struct {
	SeatsPerTeacher float64
}

// NewBuilder creates a Builder with the given seats-per-teacher ratio used
// by the capacity rule.
func NewBuilder(seatsPerTeacher float64) *Builder {
	return &Builder{SeatsPerTeacher: seatsPerTeacher}
}

// Build computes demand points and facility candidates for one metric.
//
// Complexity: O(n) in the number of school records.
func (b *Builder) Build(records []model.SchoolRecord, metric model.DemandMetric) ([]model.DemandPoint, []model.FacilityCandidate, error) {
	if !model.ValidMetrics[metric] {
		return nil, nil, ErrUnknownMetric{Metric: metric}
	}

	raw := make([]float64, len(records))
	for i, rec := range records {
		raw[i] = rawMetricValue(rec, metric)
	}
	normalized := Normalize01(raw)
	if allZero(normalized) {
		log.Printf("[demand] metric %q normalized to all-zero demand across %d records; proceeding", metric, len(records))
	}

	demandPoints := make([]model.DemandPoint, len(records))
	facilities := make([]model.FacilityCandidate, len(records))
	for i, rec := range records {
		demandPoints[i] = model.DemandPoint{
			ID:     rec.ID,
			Lat:    rec.Lat,
			Lon:    rec.Lon,
			Demand: normalized[i],
		}
		facilities[i] = model.FacilityCandidate{
			ID:       rec.ID,
			Lat:      rec.Lat,
			Lon:      rec.Lon,
			Capacity: math.Max(MinCapacity, rec.CertifiedTeachers*b.SeatsPerTeacher),
		}
	}
	return demandPoints, facilities, nil
}

// rawMetricValue evaluates the recognized metric against one record,
// returning the raw (un-normalized) scalar.
//
// sfr's zero-teacher fallback to raw enrollment is a deliberate, preserved
// sharp edge: it mixes two scales in the same series before normalization.
func rawMetricValue(rec model.SchoolRecord, metric model.DemandMetric) float64 {
	switch metric {
	case model.MetricSFR:
		if rec.CertifiedTeachers == 0 {
			return rec.CSEnrollment
		}
		return rec.CSEnrollment / rec.CertifiedTeachers
	case model.MetricCSEnrollment:
		return rec.CSEnrollment
	case model.MetricCertifiedTeachers:
		return rec.CertifiedTeachers
	case model.MetricRIAsian:
		return derefOr(rec.RIAsian)
	case model.MetricRIBlack:
		return derefOr(rec.RIBlack)
	case model.MetricRIHispanic:
		return derefOr(rec.RIHispanic)
	case model.MetricRIWhite:
		return derefOr(rec.RIWhite)
	case model.MetricRIFemale:
		return derefOr(rec.RIFemale)
	default:
		return 0
	}
}

// allZero reports whether every value in series is exactly zero, the
// signature of a degenerate (constant or all-missing) metric series after
// normalization.
func allZero(series []float64) bool {
	for _, v := range series {
		if v != 0 {
			return false
		}
	}
	return true
}

func derefOr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Normalize01 min-max normalizes a series to [0,1]. A degenerate series
// (all-NaN, or max <= min) normalizes to all zeros; missing (NaN) values
// map to 0 both before and after normalization.
func Normalize01(series []float64) []float64 {
	out := make([]float64, len(series))
	minV, maxV := math.Inf(1), math.Inf(-1)
	any := false
	for _, v := range series {
		if math.IsNaN(v) {
			continue
		}
		any = true
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if !any || maxV <= minV {
		return out // all zeros
	}
	span := maxV - minV
	for i, v := range series {
		if math.IsNaN(v) {
			out[i] = 0
			continue
		}
		out[i] = (v - minV) / span
	}
	return out
}
