// Package repository provides database access for the facility location
// engine's Data Source Adapter.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gsudice/nsf-cosea/config"
	"github.com/gsudice/nsf-cosea/internal/model"
)

// ErrNoRecords is returned when the cleaning pass leaves zero schools —
// the Data Error described in the error-handling design.
var ErrNoRecords = errors.New("repository: no valid school records after cleaning")

// SchoolRepository is the Data Source Adapter: it reads schools joined
// against demographic attributes and returns a clean, immutable table.
type SchoolRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewSchoolRepository creates a repository backed by the given pool. table
// is the schema-qualified schools table to read from (config.SchoolsTable).
func NewSchoolRepository(pool *pgxpool.Pool, cfg config.PostgresConfig) *SchoolRepository {
	return &SchoolRepository{pool: pool, table: cfg.SchoolsTable}
}

// FetchSchools loads every school joined against its demographic record,
// applying the cleaning rules from the Data Source Adapter contract:
// drop rows missing lat/lon, drop rows outside valid ranges, drop the
// null-island sentinel, coerce numeric columns and clip negatives to zero.
//
// Complexity: O(n) in rows returned.
func (r *SchoolRepository) FetchSchools(ctx context.Context) ([]model.SchoolRecord, error) {
	query := fmt.Sprintf(`
		SELECT
			s.school_id,
			s.latitude,
			s.longitude,
			s.cs_enrollment,
			s.certified_teachers,
			d.ri_asian,
			d.ri_black,
			d.ri_hispanic,
			d.ri_white,
			d.ri_female,
			s.block_group_id
		FROM "%s".tbl_approvedschools s
		LEFT JOIN census.gadoe2024 d ON d.school_id = s.school_id
	`, r.table)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: fetch schools: %w", err)
	}
	defer rows.Close()

	var raw []model.SchoolRecord
	for rows.Next() {
		var rec model.SchoolRecord
		var lat, lon, csEnrollment, teachers *float64
		if err := rows.Scan(
			&rec.ID, &lat, &lon,
			&csEnrollment, &teachers,
			&rec.RIAsian, &rec.RIBlack, &rec.RIHispanic, &rec.RIWhite, &rec.RIFemale,
			&rec.BlockGroupID,
		); err != nil {
			return nil, fmt.Errorf("repository: scan school row: %w", err)
		}
		if lat == nil || lon == nil {
			continue // missing coordinates: dropped
		}
		rec.Lat, rec.Lon = *lat, *lon
		rec.CSEnrollment = clipNegative(derefOr(csEnrollment, 0))
		rec.CertifiedTeachers = clipNegative(derefOr(teachers, 0))
		raw = append(raw, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: iterate school rows: %w", err)
	}

	clean := cleanSchoolRecords(raw)
	if len(clean) == 0 {
		return nil, ErrNoRecords
	}
	return clean, nil
}

// cleanSchoolRecords applies the Data Source Adapter's eager filtering
// rules, mirroring load_schools_from_db's cleaning pass: drop missing or
// out-of-range coordinates, drop the (0,0) null-island sentinel.
func cleanSchoolRecords(records []model.SchoolRecord) []model.SchoolRecord {
	clean := make([]model.SchoolRecord, 0, len(records))
	for _, rec := range records {
		if !validCoordinate(rec.Lat, rec.Lon) {
			continue
		}
		if rec.Lat == 0 && rec.Lon == 0 {
			continue
		}
		clean = append(clean, rec)
	}
	return clean
}

func validCoordinate(lat, lon float64) bool {
	if lat != lat || lon != lon { // NaN
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func clipNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func derefOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

// CandidateSiteCounts reports the number of candidate sites by type, backing
// GET /api/candidate-sites.
type CandidateSiteCounts struct {
	Elementary int `json:"elementary"`
	Middle     int `json:"middle"`
	High       int `json:"high"`
	Libraries  int `json:"libraries"`
}

// FetchCandidateSiteCounts counts candidate sites by type from the same
// schools table plus the libraries table, used by the candidate-sites
// informational endpoint.
func (r *SchoolRepository) FetchCandidateSiteCounts(ctx context.Context) (CandidateSiteCounts, error) {
	var counts CandidateSiteCounts
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE school_level = 'elementary') AS elementary,
			COUNT(*) FILTER (WHERE school_level = 'middle')     AS middle,
			COUNT(*) FILTER (WHERE school_level = 'high')       AS high
		FROM "%s".tbl_approvedschools
	`, r.table)
	if err := r.pool.QueryRow(ctx, query).Scan(&counts.Elementary, &counts.Middle, &counts.High); err != nil {
		return CandidateSiteCounts{}, fmt.Errorf("repository: count candidate sites: %w", err)
	}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM public.libraries`).Scan(&counts.Libraries); err != nil {
		return CandidateSiteCounts{}, fmt.Errorf("repository: count libraries: %w", err)
	}
	return counts, nil
}
