package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunScenario_UnknownMetricRejected(t *testing.T) {
	h := NewScenarioHandler(nil, nil) // rejected before the orchestrator is touched

	body := `{"scenarioName":"test","demandMetric":"foo","p":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/scenarios/run", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.RunScenario(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown metric, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["status"] != "error" {
		t.Errorf("expected status error, got %q", resp["status"])
	}
	if !strings.Contains(resp["message"], "foo") {
		t.Errorf("expected message to name the invalid metric, got %q", resp["message"])
	}
}

func TestRunScenario_MalformedJSONRejected(t *testing.T) {
	h := NewScenarioHandler(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/scenarios/run", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.RunScenario(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestCoerceFloat_DefaultsOnNonNumeric(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{``, 5.0},
		{`7.5`, 7.5},
		{`"7.5"`, 7.5},
		{`"abc"`, 5.0},
		{`null`, 5.0},
		{`[1]`, 5.0},
	}
	for _, c := range cases {
		if got := coerceFloat(json.RawMessage(c.raw), 5.0); got != c.want {
			t.Errorf("coerceFloat(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestCoerceInt_DefaultsOnNonNumeric(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{``, 5},
		{`3`, 3},
		{`3.9`, 3},
		{`"4"`, 4},
		{`"abc"`, 5},
		{`true`, 5},
	}
	for _, c := range cases {
		if got := coerceInt(json.RawMessage(c.raw), 5); got != c.want {
			t.Errorf("coerceInt(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}
