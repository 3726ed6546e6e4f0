package handler

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gorilla/mux"
)

// ResultsHandler serves the rendered scenario artifacts (maps, KPI files)
// that the Job Orchestrator writes under its output root.
type ResultsHandler struct {
	outputRoot string
}

// NewResultsHandler creates a handler serving files under outputRoot,
// one subdirectory per scenario slug.
func NewResultsHandler(outputRoot string) *ResultsHandler {
	return &ResultsHandler{outputRoot: outputRoot}
}

// ViewResults handles GET /analysis/results/{slug}: a minimal HTML index
// of every file under the scenario's output directory.
func (h *ResultsHandler) ViewResults(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	scenarioDir := filepath.Join(h.outputRoot, slug)

	if !withinDir(h.outputRoot, scenarioDir) {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	info, err := os.Stat(scenarioDir)
	if err != nil || !info.IsDir() {
		http.Error(w, fmt.Sprintf("No results found for %s", slug), http.StatusNotFound)
		return
	}

	var files []string
	err = filepath.Walk(scenarioDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel(scenarioDir, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		http.Error(w, "internal_error", http.StatusInternalServerError)
		return
	}
	sort.Strings(files)

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Results for scenario: %s</h2><ul>", html.EscapeString(slug))
	for _, f := range files {
		href := fmt.Sprintf("/analysis/files/%s/%s", slug, f)
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, html.EscapeString(href), html.EscapeString(f))
	}
	b.WriteString("</ul>")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(b.String()))
}

// ServeResultFile handles GET /analysis/files/{slug}/{relpath}, refusing
// any path that would escape the scenario's output directory.
func (h *ResultsHandler) ServeResultFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slug, relPath := vars["slug"], vars["relpath"]

	scenarioDir := filepath.Join(h.outputRoot, slug)
	fullPath := filepath.Join(scenarioDir, relPath)

	if !withinDir(h.outputRoot, scenarioDir) || !withinDir(scenarioDir, fullPath) {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	http.ServeFile(w, r, fullPath)
}

// withinDir reports whether candidate is dir itself or a descendant of
// it, after both are cleaned — the check that refuses "../" escapes out
// of a scenario's output directory.
func withinDir(dir, candidate string) bool {
	dir = filepath.Clean(dir)
	candidate = filepath.Clean(candidate)
	if candidate == dir {
		return true
	}
	return strings.HasPrefix(candidate, dir+string(filepath.Separator))
}
