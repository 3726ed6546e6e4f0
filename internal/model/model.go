// Package model contains domain types for the facility location engine.
package model

import "time"

// ─── Location ───────────────────────────────────────────────

// Location is a WGS-84 geographic point (EPSG:4326).
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ─── Domain Models ──────────────────────────────────────────

// SchoolRecord is one point of interest pulled from the Data Source
// Adapter: a school joined against its demographic attributes.
//
// RI* fields are pointers because the demographic join can be absent for a
// given school; a nil pointer means "not present", not zero.
type SchoolRecord struct {
	ID                string   `json:"id"`
	Lat               float64  `json:"lat"`
	Lon               float64  `json:"lon"`
	CSEnrollment      float64  `json:"cs_enrollment"`
	CertifiedTeachers float64  `json:"certified_teachers"`
	RIAsian           *float64 `json:"ri_asian,omitempty"`
	RIBlack           *float64 `json:"ri_black,omitempty"`
	RIHispanic        *float64 `json:"ri_hispanic,omitempty"`
	RIWhite           *float64 `json:"ri_white,omitempty"`
	RIFemale          *float64 `json:"ri_female,omitempty"`
	BlockGroupID      *string  `json:"block_group_id,omitempty"`
}

// Location returns the record's coordinates.
func (s SchoolRecord) Location() Location {
	return Location{Lat: s.Lat, Lon: s.Lon}
}

// DemandPoint is a point that consumes service, with demand normalized
// into [0,1] relative to the rest of the run's population.
type DemandPoint struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Demand float64 `json:"demand"`
}

func (d DemandPoint) Location() Location {
	return Location{Lat: d.Lat, Lon: d.Lon}
}

// FacilityCandidate is a point where a facility may open.
type FacilityCandidate struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Capacity float64 `json:"capacity"`
}

func (f FacilityCandidate) Location() Location {
	return Location{Lat: f.Lat, Lon: f.Lon}
}

// JobStatus enumerates the legal states of a ScenarioJob.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ModelChoice selects which optimization model(s) a scenario runs.
type ModelChoice string

const (
	ModelPMedian ModelChoice = "pmedian"
	ModelLSCP    ModelChoice = "lscp"
	ModelMCLP    ModelChoice = "mclp"
	ModelAll     ModelChoice = "all"
)

// DemandMetric enumerates the recognized demand metrics.
type DemandMetric string

const (
	MetricSFR               DemandMetric = "sfr"
	MetricCSEnrollment      DemandMetric = "cs_enrollment"
	MetricCertifiedTeachers DemandMetric = "certified_teachers"
	MetricRIAsian           DemandMetric = "ri_asian"
	MetricRIBlack           DemandMetric = "ri_black"
	MetricRIHispanic        DemandMetric = "ri_hispanic"
	MetricRIWhite           DemandMetric = "ri_white"
	MetricRIFemale          DemandMetric = "ri_female"
)

// ValidMetrics is the full recognized demand metric set, wider than the
// subset the submission form surfaces.
var ValidMetrics = map[DemandMetric]bool{
	MetricSFR:               true,
	MetricCSEnrollment:      true,
	MetricCertifiedTeachers: true,
	MetricRIAsian:           true,
	MetricRIBlack:           true,
	MetricRIHispanic:        true,
	MetricRIWhite:           true,
	MetricRIFemale:          true,
}

// ScenarioSpec is the validated, coerced submission for a scenario run.
type ScenarioSpec struct {
	ScenarioName   string
	Email          string
	NotifyEmail    bool
	DemandMetric   DemandMetric
	P              int
	CoverageMiles  float64
	Model          ModelChoice
	CandidateSites map[string]interface{}
}

// ScenarioJob is the unit of work tracked by the orchestrator.
type ScenarioJob struct {
	JobID        string       `json:"job_id"`
	ScenarioSlug string       `json:"scenario_slug"`
	Metric       DemandMetric `json:"metric"`
	P            int          `json:"p"`
	CoverageMi   float64      `json:"coverage_miles"`
	Model        ModelChoice  `json:"model"`
	NotifyEmail  bool         `json:"-"`
	UserEmail    string       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	Status       JobStatus    `json:"status"`
	ResultsURL   string       `json:"results_url,omitempty"`
	// Backend holds the per-model manifest (export dir, CSV/PNG/KPI paths)
	// once the job completes; populated only for the models actually run.
	Backend interface{} `json:"backend,omitempty"`
	Error   string      `json:"error,omitempty"`
}
