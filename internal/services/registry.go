package services

import (
	"sync"

	"github.com/minseok/loom/internal/engine"
)

// Registry tracks the handles of live executions so input and cancel
// requests can reach a parked run-loop.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*engine.ExecutionHandle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*engine.ExecutionHandle)}
}

// Register adds a handle for a new execution and returns it for the runner.
func (r *Registry) Register(executionID string) *engine.ExecutionHandle {
	h := engine.NewExecutionHandle(executionID)
	r.mu.Lock()
	r.handles[executionID] = h
	r.mu.Unlock()
	return h
}

func (r *Registry) Get(executionID string) (*engine.ExecutionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[executionID]
	return h, ok
}

// Unregister removes a completed execution.
func (r *Registry) Unregister(executionID string) {
	r.mu.Lock()
	delete(r.handles, executionID)
	r.mu.Unlock()
}
