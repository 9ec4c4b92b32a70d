package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/services"
)

func (s *Server) startExecution(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "id")

	var body struct {
		Parameters map[string]any `json:"parameters"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	executionID, err := s.executionSvc.StartExecution(r.Context(), workflowID, body.Parameters)
	if err != nil {
		var graphErr *engine.GraphError
		if errors.As(err, &graphErr) || errors.Is(err, engine.ErrNoTrigger) {
			respondError(w, http.StatusUnprocessableEntity, err)
			return
		}
		if services.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"execution_id": executionID})
}

func (s *Server) listExecutions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	executions, err := s.executionSvc.ListExecutions(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, executions)
}

func (s *Server) getExecution(w http.ResponseWriter, r *http.Request) {
	state, err := s.executionSvc.GetExecutionStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.executionSvc.ListTasks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// provideInput resumes a parked input node. The body is either
// {"value": <scalar>} for single-field inputs or {"values": {...}} for
// multi-input nodes.
func (s *Server) provideInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value  any            `json:"value"`
		Values map[string]any `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var value any = body.Value
	if body.Values != nil {
		value = body.Values
	}

	err := s.executionSvc.ProvideInput(chi.URLParam(r, "id"), value)
	if err != nil {
		var valErr *engine.ValidationError
		switch {
		case errors.As(err, &valErr):
			respondError(w, http.StatusBadRequest, err)
		case errors.Is(err, engine.ErrNotWaiting), services.IsNotFound(err):
			respondError(w, http.StatusConflict, err)
		default:
			respondError(w, http.StatusInternalServerError, err)
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

// streamEvents serves the execution's progress events over SSE. For a run
// that already reached a terminal state a single synthetic event is sent so
// late subscribers still get a conclusive frame.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "id")

	state, err := s.executionSvc.GetExecutionStatus(r.Context(), executionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before checking for a terminal state so no event can slip
	// through the gap.
	events := s.bus.Channel(r.Context(), 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	switch state.Status {
	case engine.ExecutionCompleted, engine.ExecutionFailed, engine.ExecutionCancelled:
		writeSSEEvent(w, engine.Event{
			ExecutionID: executionID,
			Type:        terminalEventType(state.Status),
		})
		flusher.Flush()
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if ev.ExecutionID != executionID {
				continue
			}
			writeSSEEvent(w, ev)
			flusher.Flush()
			switch ev.Type {
			case engine.EventExecutionCompleted, engine.EventExecutionFailed, engine.EventExecutionCancelled:
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, ev engine.Event) {
	data, _ := json.Marshal(ev)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

func terminalEventType(status engine.ExecutionStatus) engine.EventType {
	switch status {
	case engine.ExecutionFailed:
		return engine.EventExecutionFailed
	case engine.ExecutionCancelled:
		return engine.EventExecutionCancelled
	default:
		return engine.EventExecutionCompleted
	}
}

func (s *Server) cancelExecution(w http.ResponseWriter, r *http.Request) {
	if err := s.executionSvc.CancelExecution(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}
