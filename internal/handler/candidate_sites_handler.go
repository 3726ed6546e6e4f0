// Package handler contains HTTP request handlers for the facility
// location engine's API.
package handler

import (
	"log"
	"net/http"

	"github.com/gsudice/nsf-cosea/internal/repository"
)

// CandidateSitesHandler serves candidate site counts by type.
type CandidateSitesHandler struct {
	schools *repository.SchoolRepository
}

// NewCandidateSitesHandler creates a handler wired to the Data Source
// Adapter.
func NewCandidateSitesHandler(schools *repository.SchoolRepository) *CandidateSitesHandler {
	return &CandidateSitesHandler{schools: schools}
}

// GetCandidateSites handles GET /api/candidate-sites.
func (h *CandidateSitesHandler) GetCandidateSites(w http.ResponseWriter, r *http.Request) {
	counts, err := h.schools.FetchCandidateSiteCounts(r.Context())
	if err != nil {
		log.Printf("[handler] candidate sites error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "internal_error"})
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
