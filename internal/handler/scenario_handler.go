package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gsudice/nsf-cosea/internal/model"
	"github.com/gsudice/nsf-cosea/internal/orchestrator"
)

// demandMetricMap translates the request body's demand metric label into
// the engine's internal metric tag. It matches model.ValidMetrics exactly,
// wider than the subset the submission form surfaces.
var demandMetricMap = map[string]model.DemandMetric{
	"sfr":                model.MetricSFR,
	"cs_enrollment":      model.MetricCSEnrollment,
	"certified_teachers": model.MetricCertifiedTeachers,
	"ri_asian":           model.MetricRIAsian,
	"ri_black":           model.MetricRIBlack,
	"ri_hispanic":        model.MetricRIHispanic,
	"ri_white":           model.MetricRIWhite,
	"ri_female":          model.MetricRIFemale,
}

// scenarioRunRequest is the POST /api/scenarios/run request body. P and
// CoverageMiles are raw so a non-numeric value ("abc") degrades to the
// documented default instead of rejecting the whole submission.
type scenarioRunRequest struct {
	ScenarioName   string                 `json:"scenarioName"`
	Email          string                 `json:"email"`
	NotifyEmail    *bool                  `json:"notifyEmail"`
	DemandMetric   string                 `json:"demandMetric"`
	P              json.RawMessage        `json:"p"`
	CoverageMiles  json.RawMessage        `json:"coverageMiles"`
	Model          string                 `json:"model"`
	CandidateSites map[string]interface{} `json:"candidateSites"`
}

// coerceFloat interprets raw as a float: a JSON number, or a quoted
// numeric string. Anything else, including absence, yields fallback.
func coerceFloat(raw json.RawMessage, fallback float64) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// coerceInt is coerceFloat's integer counterpart, truncating fractional
// JSON numbers the way a numeric cast would.
func coerceInt(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.Atoi(s); err == nil {
			return parsed
		}
	}
	return fallback
}

// ScenarioHandler handles scenario submission and job status requests.
type ScenarioHandler struct {
	manager *orchestrator.Manager
	store   orchestrator.Store
}

// NewScenarioHandler creates a handler wired to the Job Orchestrator.
func NewScenarioHandler(manager *orchestrator.Manager, store orchestrator.Store) *ScenarioHandler {
	return &ScenarioHandler{manager: manager, store: store}
}

// RunScenario handles POST /api/scenarios/run: validates the submission,
// starts the background pipeline, and returns 202 with the new job's ID
// immediately — the pipeline itself runs asynchronously.
func (h *ScenarioHandler) RunScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid JSON body"})
		return
	}

	metric, ok := demandMetricMap[req.DemandMetric]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "invalid demand metric: " + req.DemandMetric,
		})
		return
	}

	p := coerceInt(req.P, 5)
	coverageMiles := coerceFloat(req.CoverageMiles, 5.0)
	notify := true
	if req.NotifyEmail != nil {
		notify = *req.NotifyEmail
	}

	spec := model.ScenarioSpec{
		ScenarioName:   req.ScenarioName,
		Email:          req.Email,
		NotifyEmail:    notify,
		DemandMetric:   metric,
		P:              p,
		CoverageMiles:  coverageMiles,
		Model:          model.ModelChoice(req.Model),
		CandidateSites: req.CandidateSites,
	}

	job, err := h.manager.Submit(r.Context(), spec)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "ok",
		"job_id":  job.JobID,
		"message": "Analysis started. Check status with /api/jobs/" + job.JobID,
	})
}

// GetJobStatus handles GET /api/jobs/{job_id}.
func (h *ScenarioHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	job, err := h.store.Get(jobID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "Job not found"})
		return
	}

	response := map[string]interface{}{
		"job_id":        job.JobID,
		"status":        job.Status,
		"scenario_slug": job.ScenarioSlug,
	}
	switch job.Status {
	case model.JobCompleted:
		response["results_url"] = job.ResultsURL
		response["backend"] = job.Backend
	case model.JobFailed:
		response["error"] = job.Error
	}

	writeJSON(w, http.StatusOK, response)
}
