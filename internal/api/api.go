package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joescharf/cadence/internal/board"
	"github.com/joescharf/cadence/internal/content"
	"github.com/joescharf/cadence/internal/llm"
	"github.com/joescharf/cadence/internal/logging"
	"github.com/joescharf/cadence/internal/metrics"
	"github.com/joescharf/cadence/internal/models"
	"github.com/joescharf/cadence/internal/workflow"
)

const defaultThroughputWeeks = 8

// Enricher generates suggestions for a content item. *llm.Client satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, item *models.ContentItem) (*llm.Enrichment, error)
}

// Server provides the REST API handlers.
type Server struct {
	svc *content.Service
	llm Enricher
	log *slog.Logger
}

// NewServer creates a new API server.
// The enricher may be nil if no API key is configured.
func NewServer(svc *content.Service, enricher Enricher, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{svc: svc, llm: enricher, log: log}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/content", s.listContent)
	mux.HandleFunc("POST /api/v1/content", s.createContent)
	mux.HandleFunc("GET /api/v1/content/stats", s.contentStats)
	mux.HandleFunc("GET /api/v1/content/tags", s.listTags)
	mux.HandleFunc("GET /api/v1/content/completion", s.completionStats)
	mux.HandleFunc("GET /api/v1/content/throughput", s.throughput)
	mux.HandleFunc("GET /api/v1/content/{id}", s.getContent)
	mux.HandleFunc("PUT /api/v1/content/{id}", s.updateContent)
	mux.HandleFunc("DELETE /api/v1/content/{id}", s.deleteContent)
	mux.HandleFunc("POST /api/v1/content/{id}/move", s.moveContent)
	mux.HandleFunc("POST /api/v1/content/{id}/enrich", s.enrichContent)

	mux.HandleFunc("GET /api/v1/board", s.getBoard)
	mux.HandleFunc("POST /api/v1/board/drop", s.dropOnBoard)

	mux.HandleFunc("GET /api/v1/stages", s.listStages)
	mux.HandleFunc("PUT /api/v1/stages", s.saveStages)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestIDMiddleware(s.log, identityMiddleware(metrics.Middleware(mux))))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and board errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, content.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case content.IsValidation(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, content.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrWIPLimit):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Content ---

func (s *Server) listContent(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workflow.FilterByTag(items, workflow.NormalizeTag(r.URL.Query().Get("tag"))))
}

func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) createContent(w http.ResponseWriter, r *http.Request) {
	var draft models.ContentItem
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	draft.Tags = workflow.NormalizeTags(draft.Tags)
	item, err := s.svc.Add(r.Context(), draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) updateContent(w http.ResponseWriter, r *http.Request) {
	var patch models.ContentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if patch.Tags != nil {
		tags := workflow.NormalizeTags(*patch.Tags)
		patch.Tags = &tags
	}
	item, err := s.svc.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) deleteContent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	Status models.ContentStatus `json:"status"`
	Force  bool                 `json:"force"`
}

func (s *Server) moveContent(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	ctrl, err := s.loadBoard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id := r.PathValue("id")
	if err := ctrl.Move(r.Context(), id, req.Status, req.Force); err != nil {
		writeServiceError(w, err)
		return
	}

	item, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) enrichContent(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		writeError(w, http.StatusServiceUnavailable, "LLM not configured (set ANTHROPIC_API_KEY)")
		return
	}

	id := r.PathValue("id")
	item, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	enriched, err := s.llm.Enrich(r.Context(), item)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("LLM enrichment failed: %v", err))
		return
	}

	patch := enriched.Patch(item)
	if patch.Empty() {
		writeJSON(w, http.StatusOK, item)
		return
	}
	updated, err := s.svc.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// --- Derived views ---

func (s *Server) contentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	platforms, err := s.svc.PlatformCounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		models.ContentStats
		Platforms map[models.Platform]int `json:"platforms"`
	}{stats, platforms})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.Tags(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) completionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.CompletionStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) throughput(w http.ResponseWriter, r *http.Request) {
	weeks := defaultThroughputWeeks
	if v := r.URL.Query().Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 104 {
			writeError(w, http.StatusBadRequest, "weeks must be between 1 and 104")
			return
		}
		weeks = n
	}
	points, err := s.svc.Throughput(r.Context(), weeks)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// --- Board ---

// loadBoard builds a controller over the caller's current items and stages.
func (s *Server) loadBoard(ctx context.Context) (*board.Controller, error) {
	return board.Open(ctx, s.svc)
}

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.loadBoard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Columns(workflow.NormalizeTag(r.URL.Query().Get("tag"))))
}

type dropRequest struct {
	ID     string               `json:"id"`
	Status models.ContentStatus `json:"status"`
	Tag    string               `json:"tag"`
}

// dropOnBoard replays a completed drag gesture from the dashboard.
func (s *Server) dropOnBoard(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "id and status are required")
		return
	}

	ctrl, err := s.loadBoard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	req.Tag = workflow.NormalizeTag(req.Tag)
	ctrl.Columns(req.Tag)
	if !ctrl.DragStart(req.ID) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("item %s is not on the board", req.ID))
		return
	}
	ctrl.DragOver(req.Status)
	if err := ctrl.Drop(r.Context(), ""); err != nil {
		writeServiceError(w, err)
		return
	}

	// Re-read so the response reflects the committed move.
	if ctrl, err = s.loadBoard(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Columns(req.Tag))
}

// --- Stages ---

func (s *Server) listStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.svc.Stages(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

func (s *Server) saveStages(w http.ResponseWriter, r *http.Request) {
	var stages []models.WorkflowStage
	if err := json.NewDecoder(r.Body).Decode(&stages); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.svc.SaveStages(r.Context(), stages); err != nil {
		writeServiceError(w, err)
		return
	}
	s.listStages(w, r)
}
