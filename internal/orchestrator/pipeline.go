package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gsudice/nsf-cosea/config"
	"github.com/gsudice/nsf-cosea/internal/demand"
	"github.com/gsudice/nsf-cosea/internal/distance"
	"github.com/gsudice/nsf-cosea/internal/model"
	"github.com/gsudice/nsf-cosea/internal/render"
	"github.com/gsudice/nsf-cosea/internal/repository"
	"github.com/gsudice/nsf-cosea/internal/solver"
	"github.com/gsudice/nsf-cosea/pkg/cache"
)

// ErrUnknownMetric is returned by Submit when the submission's demand
// metric is outside model.ValidMetrics.
var ErrUnknownMetric = errors.New("orchestrator: unrecognized demand metric")

// Manager wires the repository, demand builder, distance oracle, and
// solver/render stages into the background pipeline a submitted scenario
// runs through.
type Manager struct {
	store    Store
	schools  *repository.SchoolRepository
	demand   *demand.Builder
	oracle   distance.Oracle
	redis    *redis.Client
	cfg      config.ScenarioConfig
	cacheTTL time.Duration
	smtp     config.SMTPConfig
}

// NewManager builds a Manager from its collaborators. store owns job
// bookkeeping; redis may be nil, in which case the pipeline recomputes
// demand and distance on every run instead of reusing a cached result.
func NewManager(store Store, schools *repository.SchoolRepository, builder *demand.Builder, oracle distance.Oracle, redisClient *redis.Client, cfg config.ScenarioConfig, cacheTTL time.Duration, smtp config.SMTPConfig) *Manager {
	return &Manager{store: store, schools: schools, demand: builder, oracle: oracle, redis: redisClient, cfg: cfg, cacheTTL: cacheTTL, smtp: smtp}
}

// Submit validates spec, allocates a job ID and scenario slug, records the
// job as Pending, launches the background pipeline, and returns
// immediately — Submit never blocks on the run itself.
func (m *Manager) Submit(ctx context.Context, spec model.ScenarioSpec) (*model.ScenarioJob, error) {
	if !model.ValidMetrics[spec.DemandMetric] {
		return nil, ErrUnknownMetric
	}

	slug, err := NewSlug(spec.ScenarioName)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: generate scenario slug: %w", err)
	}

	job := &model.ScenarioJob{
		JobID:        uuid.NewString(),
		ScenarioSlug: slug,
		Metric:       spec.DemandMetric,
		P:            spec.P,
		CoverageMi:   spec.CoverageMiles,
		Model:        spec.Model,
		NotifyEmail:  spec.NotifyEmail,
		UserEmail:    spec.Email,
		CreatedAt:    time.Now(),
		Status:       model.JobPending,
	}
	if err := m.store.Create(job); err != nil {
		return nil, fmt.Errorf("orchestrator: create job: %w", err)
	}

	go m.run(job.JobID)

	jobCopy := *job
	return &jobCopy, nil
}

// run executes the full modeling pipeline for jobID in the background,
// transitioning the job to Completed or Failed on exit. A panic anywhere
// in the pipeline is caught and recorded as a failure rather than taking
// down the server, mirroring middleware.Recoverer's pattern at the
// goroutine boundary instead of the HTTP boundary.
func (m *Manager) run(jobID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[orchestrator] PANIC in job %s: %v", jobID, r)
			m.fail(jobID, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := m.store.Update(jobID, transitionTo(model.JobRunning)); err != nil {
		log.Printf("[orchestrator] job %s: cannot start: %v", jobID, err)
		return
	}

	job, err := m.store.Get(jobID)
	if err != nil {
		log.Printf("[orchestrator] job %s: lost after start: %v", jobID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SolverTimeout)
	defer cancel()

	resultsURL, backend, err := m.solve(ctx, job)
	if err != nil {
		m.fail(jobID, err)
		return
	}

	if err := m.store.Update(jobID, func(j *model.ScenarioJob) error {
		j.Status = model.JobCompleted
		j.ResultsURL = resultsURL
		j.Backend = backend
		return nil
	}); err != nil {
		log.Printf("[orchestrator] job %s: cannot mark completed: %v", jobID, err)
		return
	}

	completed, err := m.store.Get(jobID)
	if err == nil {
		m.notify(completed)
	}
}

func (m *Manager) fail(jobID string, cause error) {
	updateErr := m.store.Update(jobID, func(j *model.ScenarioJob) error {
		j.Status = model.JobFailed
		j.Error = cause.Error()
		return nil
	})
	if updateErr != nil {
		log.Printf("[orchestrator] job %s: cannot mark failed (%v): %v", jobID, cause, updateErr)
	}
}

// solve runs the full pipeline for one job, fetch through render, and
// returns the results URL plus the per-file backend manifest.
func (m *Manager) solve(ctx context.Context, job *model.ScenarioJob) (string, map[string]string, error) {
	records, err := m.schools.FetchSchools(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("fetch schools: %w", err)
	}

	snapshotHash := recordSnapshotHash(records)

	points, facilities, err := m.cachedDemandBuild(ctx, records, job.Metric, snapshotHash)
	if err != nil {
		return "", nil, fmt.Errorf("build demand: %w", err)
	}
	points, facilities = demand.AggregateBlockGroups(records, points, facilities)

	matrix, err := m.cachedMatrixBuild(ctx, points, facilities, job.Metric, snapshotHash)
	if err != nil {
		return "", nil, fmt.Errorf("build distance matrix: %w", err)
	}
	matrix.Prune(m.cfg.KNearest)
	if uncovered := matrix.CheckCoverage(); uncovered > 0 {
		return "", nil, fmt.Errorf("%d demand point(s) unreachable from any facility candidate", uncovered)
	}

	formulation := solver.NewFormulationContext(matrix, job.CoverageMi)
	exportDir := filepath.Join(m.cfg.OutputRoot, job.ScenarioSlug, string(job.Metric))

	models := modelsToRun(job.Model)
	for _, mc := range models {
		if err := ctx.Err(); err != nil {
			return "", nil, fmt.Errorf("solver wall-clock budget exhausted before %s: %w", mc, err)
		}
		if err := m.solveAndRender(formulation, mc, job, exportDir); err != nil {
			return "", nil, err
		}
	}

	backend := map[string]string{
		"status":     "ok",
		"scenario":   job.ScenarioSlug,
		"metric":     string(job.Metric),
		"export_dir": exportDir,
	}
	for _, mc := range models {
		switch mc {
		case model.ModelPMedian:
			backend["pmedian_facilities"] = filepath.Join(exportDir, "pmedian_facilities.csv")
			backend["pmedian_assignments"] = filepath.Join(exportDir, "pmedian_assignments.csv")
			backend["pmedian_map"] = filepath.Join(exportDir, "map_pmedian.png")
			backend["pmedian_kpis"] = filepath.Join(exportDir, "pmedian_kpis.json")
		case model.ModelLSCP:
			backend["lscp_facilities"] = filepath.Join(exportDir, "lscp_facilities.csv")
			backend["lscp_map"] = filepath.Join(exportDir, "map_lscp.png")
			backend["lscp_kpis"] = filepath.Join(exportDir, "lscp_kpis.json")
		case model.ModelMCLP:
			backend["mclp_facilities"] = filepath.Join(exportDir, "mclp_facilities.csv")
			backend["mclp_map"] = filepath.Join(exportDir, "map_mclp.png")
			backend["mclp_kpis"] = filepath.Join(exportDir, "mclp_kpis.json")
		}
	}

	return "/analysis/results/" + job.ScenarioSlug, backend, nil
}

// demandCacheEntry is the JSON-cacheable form of a demand build's output.
type demandCacheEntry struct {
	Points     []model.DemandPoint
	Facilities []model.FacilityCandidate
}

// recordSnapshotHash fingerprints the fetched school table so cache keys
// change whenever the underlying data does: ID, coordinates,
// enrollment/teacher counts, the RI values, and the block group are what
// demand, capacity, aggregation, and distances derive from.
func recordSnapshotHash(records []model.SchoolRecord) string {
	h := sha256.New()
	for _, r := range records {
		fmt.Fprintf(h, "%s|%.6f|%.6f|%.6f|%.6f", r.ID, r.Lat, r.Lon, r.CSEnrollment, r.CertifiedTeachers)
		for _, ri := range []*float64{r.RIAsian, r.RIBlack, r.RIHispanic, r.RIWhite, r.RIFemale} {
			if ri == nil {
				fmt.Fprint(h, "|-")
			} else {
				fmt.Fprintf(h, "|%.6f", *ri)
			}
		}
		if r.BlockGroupID != nil {
			fmt.Fprintf(h, "|bg=%s", *r.BlockGroupID)
		}
		fmt.Fprint(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}

// cachedDemandBuild reuses a prior Build for the same school snapshot and
// metric when Redis holds one, recomputing on a miss or when no Redis
// client is configured.
func (m *Manager) cachedDemandBuild(ctx context.Context, records []model.SchoolRecord, metric model.DemandMetric, snapshotHash string) ([]model.DemandPoint, []model.FacilityCandidate, error) {
	if m.redis == nil {
		return m.demand.Build(records, metric)
	}

	key := fmt.Sprintf("demand:%s:%s", metric, snapshotHash)
	var cached demandCacheEntry
	if err := cache.GetJSON(ctx, m.redis, key, &cached); err == nil {
		return cached.Points, cached.Facilities, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("[orchestrator] demand cache read failed for %s: %v", key, err)
	}

	points, facilities, err := m.demand.Build(records, metric)
	if err != nil {
		return nil, nil, err
	}
	if err := cache.SetJSON(ctx, m.redis, key, demandCacheEntry{Points: points, Facilities: facilities}, m.cacheTTL); err != nil {
		log.Printf("[orchestrator] demand cache write failed for %s: %v", key, err)
	}
	return points, facilities, nil
}

// cachedMatrixBuild mirrors cachedDemandBuild for the Distance Oracle's
// output, keyed additionally by the oracle's back-end identity so a
// haversine-built matrix is never served for a network-backed run.
func (m *Manager) cachedMatrixBuild(ctx context.Context, points []model.DemandPoint, facilities []model.FacilityCandidate, metric model.DemandMetric, snapshotHash string) (*distance.Matrix, error) {
	if m.redis == nil {
		return m.oracle.Build(ctx, points, facilities)
	}

	key := fmt.Sprintf("matrix:%s:%s:%s", m.cfg.DistanceBackend, metric, snapshotHash)
	var dto distance.MatrixDTO
	if err := cache.GetJSON(ctx, m.redis, key, &dto); err == nil {
		return dto.ToMatrix(), nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("[orchestrator] matrix cache read failed for %s: %v", key, err)
	}

	matrix, err := m.oracle.Build(ctx, points, facilities)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, m.redis, key, matrix.ToDTO(), m.cacheTTL); err != nil {
		log.Printf("[orchestrator] matrix cache write failed for %s: %v", key, err)
	}
	return matrix, nil
}

// modelsToRun expands ModelAll (or an unrecognized choice) into every
// formulation, per the scenario submission's "all" / default behavior.
func modelsToRun(choice model.ModelChoice) []model.ModelChoice {
	switch choice {
	case model.ModelPMedian, model.ModelLSCP, model.ModelMCLP:
		return []model.ModelChoice{choice}
	default:
		return []model.ModelChoice{model.ModelPMedian, model.ModelLSCP, model.ModelMCLP}
	}
}

// solveAndRender solves one formulation and, only when it resolves
// Optimal, writes its facilities/assignments CSVs, KPI JSON, and map PNG
// under dir. A non-Optimal status produces no artifacts.
func (m *Manager) solveAndRender(ctx *solver.FormulationContext, choice model.ModelChoice, job *model.ScenarioJob, dir string) error {
	switch choice {
	case model.ModelPMedian:
		result, err := solver.PMedian(ctx, job.P, m.cfg.ExactCutoffFacilities)
		if err != nil {
			return fmt.Errorf("solve pmedian: %w", err)
		}
		if result.Status != solver.StatusOptimal {
			log.Printf("[orchestrator] job %s: pmedian resolved %s, no artifacts written", job.JobID, result.Status)
			return nil
		}
		if err := writePMedianArtifacts(ctx, result, job.P, dir); err != nil {
			return fmt.Errorf("write pmedian artifacts: %w", err)
		}
		logRenderError(job.JobID, "pmedian", render.PMedian(ctx, result, filepath.Join(dir, "map_pmedian.png")))
		return nil

	case model.ModelLSCP:
		result, err := solver.LSCP(ctx, m.cfg.ExactCutoffFacilities)
		if err != nil {
			return fmt.Errorf("solve lscp: %w", err)
		}
		if result.Status != solver.StatusOptimal {
			log.Printf("[orchestrator] job %s: lscp resolved %s (%s), no artifacts written", job.JobID, result.Status, result.Reason)
			return nil
		}
		if err := writeLSCPArtifacts(ctx, result, job.CoverageMi, dir); err != nil {
			return fmt.Errorf("write lscp artifacts: %w", err)
		}
		logRenderError(job.JobID, "lscp", render.LSCP(ctx, result, job.CoverageMi, filepath.Join(dir, "map_lscp.png")))
		return nil

	case model.ModelMCLP:
		result, err := solver.MCLP(ctx, job.P, m.cfg.ExactCutoffFacilities)
		if err != nil {
			return fmt.Errorf("solve mclp: %w", err)
		}
		if result.Status != solver.StatusOptimal {
			log.Printf("[orchestrator] job %s: mclp resolved %s, no artifacts written", job.JobID, result.Status)
			return nil
		}
		if err := writeMCLPArtifacts(ctx, result, job.CoverageMi, job.P, dir); err != nil {
			return fmt.Errorf("write mclp artifacts: %w", err)
		}
		logRenderError(job.JobID, "mclp", render.MCLP(ctx, result, job.CoverageMi, filepath.Join(dir, "map_mclp.png")))
		return nil

	default:
		return fmt.Errorf("unrecognized model choice %q", choice)
	}
}

// logRenderError records a map-rendering failure without failing the
// job: the CSV/KPI artifacts for the model are already on disk and stay
// valid.
func logRenderError(jobID, modelName string, err error) {
	if err != nil {
		log.Printf("[orchestrator] job %s: render %s map failed (artifacts preserved): %v", jobID, modelName, err)
	}
}

// notify sends the completion email for job, silently doing nothing when
// the job didn't request one or SMTP isn't configured. A failed job sends
// nothing; its error surfaces through the status endpoint.
func (m *Manager) notify(job *model.ScenarioJob) {
	if !job.NotifyEmail || job.UserEmail == "" {
		return
	}
	outDir := filepath.Join(m.cfg.OutputRoot, job.ScenarioSlug, string(job.Metric))
	if err := sendResultsEmail(m.smtp, job, outDir); err != nil {
		log.Printf("[orchestrator] job %s: email notification failed: %v", job.JobID, err)
	}
}
