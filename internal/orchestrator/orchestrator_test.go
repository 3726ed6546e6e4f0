package orchestrator

import (
	"regexp"
	"strings"
	"testing"

	"github.com/gsudice/nsf-cosea/internal/model"
)

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,55}_[0-9a-f]{6}$`)

func TestNewSlug_MatchesFormat(t *testing.T) {
	cases := []string{
		"Downtown Atlanta Expansion",
		"   ",
		"123 starts with a digit",
		"!!!@@@###",
		strings.Repeat("x", 200),
	}
	for _, name := range cases {
		slug, err := NewSlug(name)
		if err != nil {
			t.Fatalf("NewSlug(%q) returned error: %v", name, err)
		}
		if !slugPattern.MatchString(slug) {
			t.Errorf("NewSlug(%q) = %q, does not match expected format", name, slug)
		}
	}
}

func TestNewSlug_LeadingDigitPrefix(t *testing.T) {
	slug, err := NewSlug("123 starts with a digit")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(slug, "s_123") {
		t.Errorf("NewSlug with a leading digit = %q, want the s_ prefix before the digits", slug)
	}
}

func TestNewSlug_UniqueAcrossCalls(t *testing.T) {
	a, err := NewSlug("same name")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewSlug("same name")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("expected distinct slugs for repeated submissions of the same name, got %q twice", a)
	}
}

func TestMemoryStore_CreateGet(t *testing.T) {
	s := NewMemoryStore()
	job := &model.ScenarioJob{JobID: "j1", Status: model.JobPending}
	if err := s.Create(job); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get("j1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.JobPending {
		t.Errorf("expected pending, got %s", got.Status)
	}
}

func TestMemoryStore_Get_UnknownJob(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get("missing"); err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryStore_ValidTransitions(t *testing.T) {
	s := NewMemoryStore()
	job := &model.ScenarioJob{JobID: "j1", Status: model.JobPending}
	if err := s.Create(job); err != nil {
		t.Fatal(err)
	}
	if err := s.Update("j1", transitionTo(model.JobRunning)); err != nil {
		t.Fatalf("pending->running should be valid: %v", err)
	}
	if err := s.Update("j1", transitionTo(model.JobCompleted)); err != nil {
		t.Fatalf("running->completed should be valid: %v", err)
	}
}

func TestMemoryStore_InvalidTransitions(t *testing.T) {
	s := NewMemoryStore()
	job := &model.ScenarioJob{JobID: "j1", Status: model.JobPending}
	if err := s.Create(job); err != nil {
		t.Fatal(err)
	}

	if err := s.Update("j1", transitionTo(model.JobCompleted)); err != ErrInvalidTransition {
		t.Errorf("pending->completed should be rejected, got %v", err)
	}

	if err := s.Update("j1", transitionTo(model.JobRunning)); err != nil {
		t.Fatal(err)
	}
	if err := s.Update("j1", transitionTo(model.JobFailed)); err != nil {
		t.Fatal(err)
	}

	if err := s.Update("j1", transitionTo(model.JobRunning)); err != ErrInvalidTransition {
		t.Errorf("failed is terminal, expected ErrInvalidTransition, got %v", err)
	}
	if err := s.Update("j1", transitionTo(model.JobCompleted)); err != ErrInvalidTransition {
		t.Errorf("failed is terminal, expected ErrInvalidTransition, got %v", err)
	}
}

func TestModelsToRun(t *testing.T) {
	cases := map[model.ModelChoice]int{
		model.ModelPMedian:    1,
		model.ModelLSCP:       1,
		model.ModelMCLP:       1,
		model.ModelAll:        3,
		model.ModelChoice(""): 3,
	}
	for choice, wantLen := range cases {
		got := modelsToRun(choice)
		if len(got) != wantLen {
			t.Errorf("modelsToRun(%q) = %v, want length %d", choice, got, wantLen)
		}
	}
}
