package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/cexll/checklist-gate/internal/evalstore"
	"github.com/cexll/checklist-gate/internal/overlay"
)

//go:embed templates/*
var templatesFS embed.FS

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Handler serves the evaluation views
type Handler struct {
	store     *evalstore.Store
	templates *template.Template
}

// NewHandler creates a new web handler
func NewHandler(passes *evalstore.Store) (*Handler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"statusColor":   statusColor,
		"statusIcon":    statusIcon,
		"logLevelColor": logLevelColor,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		store:     passes,
		templates: tmpl,
	}, nil
}

// RegisterRoutes registers web UI routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ui", h.handleList).Methods("GET")
	r.HandleFunc("/prs", h.handleListJSON).Methods("GET")
	r.HandleFunc("/prs/{owner}/{repo}/{number:[0-9]+}", h.handleDetail).Methods("GET")
}

// handleList renders the pull request list page
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Passes []evalstore.Pass
	}{
		Passes: h.store.List(),
	}

	h.render(w, "pr_list.html", data)
}

func (h *Handler) handleListJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.store.List()); err != nil {
		log.Printf("[Web] Failed to encode pass list: %v", err)
	}
}

// handleDetail renders the summary of the last pass for one pull request
func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	number, err := strconv.Atoi(vars["number"])
	if err != nil {
		http.Error(w, "Invalid pull request number", http.StatusBadRequest)
		return
	}

	pass, ok := h.store.Get(vars["owner"], vars["repo"], number)
	if !ok {
		http.Error(w, "Pull request not found", http.StatusNotFound)
		return
	}

	// hidden only applies to the PR comment
	st := pass.State
	st.Hidden = false
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(overlay.RenderWith(pass.Summary, st, "")), &buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		Pass    evalstore.Pass
		Overlay template.HTML
	}{
		Pass:    pass,
		Overlay: template.HTML(buf.String()),
	}

	h.render(w, "pr_detail.html", data)
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// Helper functions for templates
func statusColor(status evalstore.Status) string {
	switch status {
	case evalstore.StatusQueued, evalstore.StatusIgnored:
		return "#6c757d"
	case evalstore.StatusRunning:
		return "#0d6efd"
	case evalstore.StatusCompleted:
		return "#198754"
	case evalstore.StatusFailed:
		return "#dc3545"
	default:
		return "#6c757d"
	}
}

func statusIcon(status evalstore.Status) string {
	switch status {
	case evalstore.StatusRunning:
		return "⟳"
	case evalstore.StatusCompleted:
		return "✓"
	case evalstore.StatusFailed:
		return "✗"
	case evalstore.StatusIgnored:
		return "–"
	default:
		return "○"
	}
}

func logLevelColor(level string) string {
	switch strings.ToLower(level) {
	case "error":
		return "#dc3545"
	case "success":
		return "#198754"
	case "info":
		return "#0d6efd"
	default:
		return "#6c757d"
	}
}
