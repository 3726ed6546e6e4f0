package orchestrator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gsudice/nsf-cosea/internal/solver"
)

// writeCSV writes header followed by rows to path, creating any missing
// parent directories.
func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeJSONFile(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// pmedianKPIs is pmedian_kpis.json's shape.
type pmedianKPIs struct {
	Status    solver.Status `json:"status"`
	Objective float64       `json:"objective_miles"`
	P         int           `json:"p"`
}

// writePMedianArtifacts writes pmedian_facilities.csv,
// pmedian_assignments.csv, and pmedian_kpis.json under dir.
func writePMedianArtifacts(ctx *solver.FormulationContext, result *solver.PMedianResult, p int, dir string) error {
	locByID := make(map[string][2]float64)
	capByID := make(map[string]float64)
	for _, f := range ctx.Facilities {
		locByID[f.ID] = [2]float64{f.Lat, f.Lon}
		capByID[f.ID] = f.Capacity
	}

	facilityRows := make([][]string, 0, len(result.OpenFacilities))
	for _, id := range result.OpenFacilities {
		loc := locByID[id]
		facilityRows = append(facilityRows, []string{
			id,
			strconv.FormatFloat(loc[0], 'f', 6, 64),
			strconv.FormatFloat(loc[1], 'f', 6, 64),
			strconv.FormatFloat(capByID[id], 'f', 2, 64),
		})
	}
	if err := writeCSV(filepath.Join(dir, "pmedian_facilities.csv"),
		[]string{"id", "latitude", "longitude", "capacity"}, facilityRows); err != nil {
		return fmt.Errorf("write pmedian_facilities.csv: %w", err)
	}

	demandIndex := make(map[string]int, len(ctx.Demand))
	for i, d := range ctx.Demand {
		demandIndex[d.ID] = i
	}
	facilityIndex := make(map[string]int, len(ctx.Facilities))
	for j, f := range ctx.Facilities {
		facilityIndex[f.ID] = j
	}

	assignmentRows := make([][]string, 0, len(result.Assignment))
	for _, d := range ctx.Demand {
		facilityID, ok := result.Assignment[d.ID]
		if !ok {
			continue
		}
		assignmentRows = append(assignmentRows, []string{
			strconv.Itoa(demandIndex[d.ID]),
			d.ID,
			strconv.Itoa(facilityIndex[facilityID]),
			facilityID,
		})
	}
	if err := writeCSV(filepath.Join(dir, "pmedian_assignments.csv"),
		[]string{"demand_idx", "demand_id", "facility_idx", "facility_id"}, assignmentRows); err != nil {
		return fmt.Errorf("write pmedian_assignments.csv: %w", err)
	}

	return writeJSONFile(filepath.Join(dir, "pmedian_kpis.json"), pmedianKPIs{
		Status:    result.Status,
		Objective: result.Objective,
		P:         p,
	})
}

// lscpKPIs is lscp_kpis.json's shape.
type lscpKPIs struct {
	Status        solver.Status `json:"status"`
	CoverageMiles float64       `json:"coverage_miles"`
	MinFacilities int           `json:"min_facilities"`
}

func writeLSCPArtifacts(ctx *solver.FormulationContext, result *solver.LSCPResult, coverageMiles float64, dir string) error {
	locByID := make(map[string][2]float64, len(ctx.Facilities))
	for _, f := range ctx.Facilities {
		locByID[f.ID] = [2]float64{f.Lat, f.Lon}
	}

	rows := make([][]string, 0, len(result.OpenFacilities))
	for _, id := range result.OpenFacilities {
		loc := locByID[id]
		rows = append(rows, []string{id, strconv.FormatFloat(loc[0], 'f', 6, 64), strconv.FormatFloat(loc[1], 'f', 6, 64)})
	}
	if err := writeCSV(filepath.Join(dir, "lscp_facilities.csv"), []string{"id", "latitude", "longitude"}, rows); err != nil {
		return fmt.Errorf("write lscp_facilities.csv: %w", err)
	}

	return writeJSONFile(filepath.Join(dir, "lscp_kpis.json"), lscpKPIs{
		Status:        result.Status,
		CoverageMiles: coverageMiles,
		MinFacilities: len(result.OpenFacilities),
	})
}

// mclpKPIs is mclp_kpis.json's shape.
type mclpKPIs struct {
	Status        solver.Status `json:"status"`
	CoverageMiles float64       `json:"coverage_miles"`
	P             int           `json:"p"`
	Covered       float64       `json:"covered"`
	Total         float64       `json:"total"`
	Pct           float64       `json:"pct"`
}

func writeMCLPArtifacts(ctx *solver.FormulationContext, result *solver.MCLPResult, coverageMiles float64, p int, dir string) error {
	locByID := make(map[string][2]float64, len(ctx.Facilities))
	for _, f := range ctx.Facilities {
		locByID[f.ID] = [2]float64{f.Lat, f.Lon}
	}

	rows := make([][]string, 0, len(result.OpenFacilities))
	for _, id := range result.OpenFacilities {
		loc := locByID[id]
		rows = append(rows, []string{id, strconv.FormatFloat(loc[0], 'f', 6, 64), strconv.FormatFloat(loc[1], 'f', 6, 64)})
	}
	if err := writeCSV(filepath.Join(dir, "mclp_facilities.csv"), []string{"id", "latitude", "longitude"}, rows); err != nil {
		return fmt.Errorf("write mclp_facilities.csv: %w", err)
	}

	var total float64
	for _, d := range ctx.Demand {
		total += d.Demand
	}

	return writeJSONFile(filepath.Join(dir, "mclp_kpis.json"), mclpKPIs{
		Status:        result.Status,
		CoverageMiles: coverageMiles,
		P:             p,
		Covered:       result.CoveredDemand,
		Total:         total,
		Pct:           result.CoveredPercent,
	})
}
