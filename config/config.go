package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Scenario ScenarioConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`

	// SchoolsTable names the schema-qualified source table for the Data
	// Source Adapter. Left as configuration because the wider project
	// carries several inconsistent schema variants (2024, allhsgrades24,
	// nces_schools); which one is authoritative is an operational decision,
	// not this service's.
	SchoolsTable string `mapstructure:"SCHOOLS_TABLE"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`

	// CacheTTL bounds how long a cached distance matrix or demand series
	// is reused for a given school snapshot + metric.
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
}

// SMTPConfig holds optional outbound email settings. When Host is empty,
// notification delivery is silently disabled.
type SMTPConfig struct {
	Host      string `mapstructure:"SMTP_HOST"`
	Port      int    `mapstructure:"SMTP_PORT"`
	User      string `mapstructure:"SMTP_USER"`
	Password  string `mapstructure:"SMTP_PASSWORD"`
	FromEmail string `mapstructure:"FROM_EMAIL"`
}

// Configured reports whether enough SMTP settings are present to attempt
// delivery.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.User != "" && s.Password != ""
}

// ScenarioConfig holds knobs for the modeling pipeline itself.
type ScenarioConfig struct {
	OutputRoot            string        `mapstructure:"OUTPUT_ROOT"`
	SeatsPerTeacher       float64       `mapstructure:"SEATS_PER_TEACHER"`
	DistanceBackend       string        `mapstructure:"DISTANCE_BACKEND"`
	OSMFetchTimeout       time.Duration `mapstructure:"OSM_FETCH_TIMEOUT"`
	SolverTimeout         time.Duration `mapstructure:"SOLVER_TIMEOUT"`
	ExactCutoffFacilities int           `mapstructure:"EXACT_CUTOFF_FACILITIES"`

	// KNearest retains only the k closest facilities per demand point in
	// the distance matrix. Zero or negative disables pruning.
	KNearest int `mapstructure:"K_NEAREST"`

	// OverpassURL is the Overpass API endpoint the network distance
	// back-end downloads drivable-way geometry from.
	OverpassURL string `mapstructure:"OVERPASS_URL"`

	// RadiusCapMiles bounds the network back-end's download radius
	// regardless of how far apart the scenario's points are.
	RadiusCapMiles float64 `mapstructure:"OSM_RADIUS_CAP_MILES"`

	// OSMGraphCacheSize is the number of distinct bounding-box graphs the
	// network back-end keeps warm in memory.
	OSMGraphCacheSize int `mapstructure:"OSM_GRAPH_CACHE_SIZE"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults ────────────────────────────────────────
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "cosea")
	viper.SetDefault("POSTGRES_PASSWORD", "cosea_secret")
	viper.SetDefault("POSTGRES_DB", "cosea_db")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 50)
	viper.SetDefault("POSTGRES_MIN_CONNS", 10)
	viper.SetDefault("SCHOOLS_TABLE", "2024")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 100)
	viper.SetDefault("CACHE_TTL", "1h")

	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USER", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("FROM_EMAIL", "")

	viper.SetDefault("OUTPUT_ROOT", "outputs_location_models_miles")
	viper.SetDefault("SEATS_PER_TEACHER", 15.0)
	viper.SetDefault("DISTANCE_BACKEND", "haversine")
	viper.SetDefault("OSM_FETCH_TIMEOUT", "30s")
	viper.SetDefault("SOLVER_TIMEOUT", "60s")
	viper.SetDefault("EXACT_CUTOFF_FACILITIES", 12)
	viper.SetDefault("K_NEAREST", 0)
	viper.SetDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter")
	viper.SetDefault("OSM_RADIUS_CAP_MILES", 50.0)
	viper.SetDefault("OSM_GRAPH_CACHE_SIZE", 16)

	// Try to read .env file. If it doesn't exist (e.g., inside Docker),
	// env vars injected by docker-compose env_file are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	cfg.Server = ServerConfig{
		Host:         viper.GetString("SERVER_HOST"),
		Port:         viper.GetInt("SERVER_PORT"),
		ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
	}

	// ── Postgres ────────────────────────────────────────
	cfg.Postgres = PostgresConfig{
		Host:         viper.GetString("POSTGRES_HOST"),
		Port:         viper.GetInt("POSTGRES_PORT"),
		User:         viper.GetString("POSTGRES_USER"),
		Password:     viper.GetString("POSTGRES_PASSWORD"),
		DBName:       viper.GetString("POSTGRES_DB"),
		SSLMode:      viper.GetString("POSTGRES_SSLMODE"),
		MaxConns:     viper.GetInt32("POSTGRES_MAX_CONNS"),
		MinConns:     viper.GetInt32("POSTGRES_MIN_CONNS"),
		SchoolsTable: viper.GetString("SCHOOLS_TABLE"),
	}

	// ── Redis ───────────────────────────────────────────
	cfg.Redis = RedisConfig{
		Host:     viper.GetString("REDIS_HOST"),
		Port:     viper.GetInt("REDIS_PORT"),
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
		PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
		CacheTTL: viper.GetDuration("CACHE_TTL"),
	}

	// ── SMTP ────────────────────────────────────────────
	cfg.SMTP = SMTPConfig{
		Host:      viper.GetString("SMTP_HOST"),
		Port:      viper.GetInt("SMTP_PORT"),
		User:      viper.GetString("SMTP_USER"),
		Password:  viper.GetString("SMTP_PASSWORD"),
		FromEmail: viper.GetString("FROM_EMAIL"),
	}

	// ── Scenario pipeline ───────────────────────────────
	cfg.Scenario = ScenarioConfig{
		OutputRoot:            viper.GetString("OUTPUT_ROOT"),
		SeatsPerTeacher:       viper.GetFloat64("SEATS_PER_TEACHER"),
		DistanceBackend:       viper.GetString("DISTANCE_BACKEND"),
		OSMFetchTimeout:       viper.GetDuration("OSM_FETCH_TIMEOUT"),
		SolverTimeout:         viper.GetDuration("SOLVER_TIMEOUT"),
		ExactCutoffFacilities: viper.GetInt("EXACT_CUTOFF_FACILITIES"),
		KNearest:              viper.GetInt("K_NEAREST"),
		OverpassURL:           viper.GetString("OVERPASS_URL"),
		RadiusCapMiles:        viper.GetFloat64("OSM_RADIUS_CAP_MILES"),
		OSMGraphCacheSize:     viper.GetInt("OSM_GRAPH_CACHE_SIZE"),
	}

	return cfg, nil
}
