package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/services"
)

func (s *Server) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf engine.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	now := time.Now()
	wf.CreatedAt = now
	wf.UpdatedAt = now

	if err := s.workflows.Create(r.Context(), &wf); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusCreated, wf)
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.workflows.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, workflows)
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflows.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	respondJSON(w, http.StatusOK, wf)
}

func (s *Server) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf engine.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	wf.ID = chi.URLParam(r, "id")
	wf.UpdatedAt = time.Now()

	if err := s.workflows.Update(r.Context(), &wf); err != nil {
		if services.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, wf)
}

func (s *Server) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.workflows.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if services.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// workflowLayout returns display coordinates for the graph editor.
func (s *Server) workflowLayout(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflows.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	cfg := wf.Configuration
	respondJSON(w, http.StatusOK, map[string]any{
		"layers":    engine.Layerize(cfg.Nodes, cfg.Edges),
		"positions": engine.LayoutPositions(cfg.Nodes, cfg.Edges),
	})
}
