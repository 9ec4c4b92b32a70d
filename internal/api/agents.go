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

func (s *Server) createAgent(w http.ResponseWriter, r *http.Request) {
	var agent engine.Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now

	if err := s.agents.Create(r.Context(), &agent); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusCreated, agent)
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.agents.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, agents)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.agents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (s *Server) updateAgent(w http.ResponseWriter, r *http.Request) {
	var agent engine.Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	agent.ID = chi.URLParam(r, "id")
	agent.UpdatedAt = time.Now()

	if err := s.agents.Update(r.Context(), &agent); err != nil {
		if services.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (s *Server) deleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.agents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if services.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
