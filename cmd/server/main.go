package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gsudice/nsf-cosea/config"
	"github.com/gsudice/nsf-cosea/internal/demand"
	"github.com/gsudice/nsf-cosea/internal/distance"
	"github.com/gsudice/nsf-cosea/internal/handler"
	"github.com/gsudice/nsf-cosea/internal/middleware"
	"github.com/gsudice/nsf-cosea/internal/orchestrator"
	"github.com/gsudice/nsf-cosea/internal/repository"
	"github.com/gsudice/nsf-cosea/pkg/cache"
	"github.com/gsudice/nsf-cosea/pkg/db"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// ── Connect to PostgreSQL ───────────────────────────
	pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()
	log.Println("✓ PostgreSQL connected")

	// ── Connect to Redis ────────────────────────────────
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ── Initialize layers ───────────────────────────────
	schoolRepo := repository.NewSchoolRepository(pgPool, cfg.Postgres)
	demandBuilder := demand.NewBuilder(cfg.Scenario.SeatsPerTeacher)

	var networkOracle *distance.NetworkOracle
	if cfg.Scenario.DistanceBackend == "network" {
		networkOracle, err = distance.NewNetworkOracle(cfg.Scenario)
		if err != nil {
			log.Fatalf("failed to configure network distance oracle: %v", err)
		}
	}
	oracle, err := distance.NewOracle(cfg.Scenario.DistanceBackend, networkOracle)
	if err != nil {
		log.Fatalf("failed to configure distance oracle: %v", err)
	}

	jobStore := orchestrator.NewMemoryStore()
	manager := orchestrator.NewManager(jobStore, schoolRepo, demandBuilder, oracle, redisClient, cfg.Scenario, cfg.Redis.CacheTTL, cfg.SMTP)

	candidateSitesHandler := handler.NewCandidateSitesHandler(schoolRepo)
	scenarioHandler := handler.NewScenarioHandler(manager, jobStore)
	resultsHandler := handler.NewResultsHandler(cfg.Scenario.OutputRoot)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger)
	router.Use(middleware.Recoverer)

	router.HandleFunc("/health", healthHandler(pgPool, redisClient)).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/candidate-sites", candidateSitesHandler.GetCandidateSites).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/run", scenarioHandler.RunScenario).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{job_id}", scenarioHandler.GetJobStatus).Methods(http.MethodGet)

	router.HandleFunc("/analysis/results/{slug}", resultsHandler.ViewResults).Methods(http.MethodGet)
	router.HandleFunc("/analysis/files/{slug}/{relpath:.*}", resultsHandler.ServeResultFile).Methods(http.MethodGet)

	// Wrap with CORS so the scenario submission form (a different origin
	// in development) can call the API.
	routerWithCORS := middleware.CORS(router)

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      routerWithCORS,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in a goroutine so we can listen for shutdown signals.
	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Server.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthHandler returns an HTTP handler that checks PG and Redis connectivity.
func healthHandler(pgPool *pgxpool.Pool, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string),
		}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["postgres"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["postgres"] = "healthy"
		}

		if err := cache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
