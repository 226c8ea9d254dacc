package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/cexll/checklist-gate/internal/checklist"
	"github.com/cexll/checklist-gate/internal/evalstore"
	"github.com/cexll/checklist-gate/internal/gate"
)

func seededStore() *evalstore.Store {
	s := evalstore.NewStore()
	s.Queued("owner", "repo", 1, "job-1", "evaluate")
	s.Update("owner", "repo", 1, func(p *evalstore.Pass) {
		p.Title = "Add feature"
		p.Status = evalstore.StatusCompleted
		p.Summary = checklist.Summary{
			Groups: []checklist.GroupProgress{
				{Name: "Setup", Stats: checklist.Stats{Completed: 1, Total: 2}, Percentage: 50},
				{Name: "Tests", Stats: checklist.Stats{Completed: 3, Total: 3}, Percentage: 100},
			},
			Total: checklist.Stats{Completed: 4, Total: 5},
		}
		p.Decision = gate.Decide(p.Summary.Total)
	})
	return s
}

func newRouter(t *testing.T, s *evalstore.Store) *mux.Router {
	t.Helper()
	h, err := NewHandler(s)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandler_List(t *testing.T) {
	r := newRouter(t, seededStore())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ui", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "/prs/owner/repo/1") || !strings.Contains(body, "4/5") {
		t.Errorf("list page missing pull request row:\n%s", body)
	}
}

func TestHandler_ListEmpty(t *testing.T) {
	r := newRouter(t, evalstore.NewStore())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ui", nil))

	if !strings.Contains(w.Body.String(), "No pull requests evaluated yet.") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestHandler_ListJSON(t *testing.T) {
	r := newRouter(t, seededStore())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/prs", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var passes []evalstore.Pass
	if err := json.Unmarshal(w.Body.Bytes(), &passes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(passes) != 1 || passes[0].Decision.Action != gate.ActionDisable || passes[0].Summary.Total.Total != 5 {
		t.Errorf("passes = %+v", passes)
	}
}

func TestHandler_Detail(t *testing.T) {
	r := newRouter(t, seededStore())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/prs/owner/repo/1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"<table>", "Setup", "80% complete", "disable", "job-1 queued"} {
		if !strings.Contains(body, want) {
			t.Errorf("detail page missing %q", want)
		}
	}
}

func TestHandler_DetailNotFound(t *testing.T) {
	r := newRouter(t, evalstore.NewStore())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/prs/owner/repo/9", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestStatusHelpers(t *testing.T) {
	if statusColor(evalstore.StatusFailed) != "#dc3545" || statusIcon(evalstore.StatusCompleted) != "✓" {
		t.Error("unexpected status helpers")
	}
	if logLevelColor("SUCCESS") != "#198754" {
		t.Error("log level should be case insensitive")
	}
}
