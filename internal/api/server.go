package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/repository"
	"github.com/minseok/loom/internal/services"
)

// Server exposes the engine over HTTP for the dashboard and other callers.
type Server struct {
	executionSvc *services.ExecutionService
	workflows    repository.WorkflowRepository
	agents       repository.AgentRepository
	bus          *engine.EventBus
}

func NewServer(executionSvc *services.ExecutionService, workflows repository.WorkflowRepository, agents repository.AgentRepository, bus *engine.EventBus) *Server {
	return &Server{
		executionSvc: executionSvc,
		workflows:    workflows,
		agents:       agents,
		bus:          bus,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", s.createWorkflow)
			r.Get("/", s.listWorkflows)
			r.Get("/{id}", s.getWorkflow)
			r.Put("/{id}", s.updateWorkflow)
			r.Delete("/{id}", s.deleteWorkflow)
			r.Get("/{id}/layout", s.workflowLayout)
			r.Post("/{id}/executions", s.startExecution)
			r.Get("/{id}/executions", s.listExecutions)
		})
		r.Route("/agents", func(r chi.Router) {
			r.Post("/", s.createAgent)
			r.Get("/", s.listAgents)
			r.Get("/{id}", s.getAgent)
			r.Put("/{id}", s.updateAgent)
			r.Delete("/{id}", s.deleteAgent)
		})
		r.Route("/executions", func(r chi.Router) {
			r.Get("/{id}", s.getExecution)
			r.Get("/{id}/tasks", s.listTasks)
			r.Get("/{id}/events", s.streamEvents)
			r.Post("/{id}/input", s.provideInput)
			r.Post("/{id}/cancel", s.cancelExecution)
		})
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
