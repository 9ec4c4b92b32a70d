package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/minseok/loom/internal/engine"
)

// MemoryWorkflowRepository stores workflows in a mutex-guarded map.
// Values are copied on the way in and out.
type MemoryWorkflowRepository struct {
	mu        sync.RWMutex
	workflows map[string]*engine.Workflow
}

func NewMemoryWorkflowRepository() *MemoryWorkflowRepository {
	return &MemoryWorkflowRepository{workflows: make(map[string]*engine.Workflow)}
}

func (r *MemoryWorkflowRepository) Create(_ context.Context, wf *engine.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.workflows[wf.ID]; exists {
		return fmt.Errorf("workflow %q already exists", wf.ID)
	}
	cp := *wf
	r.workflows[wf.ID] = &cp
	return nil
}

func (r *MemoryWorkflowRepository) Get(_ context.Context, id string) (*engine.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wf, ok := r.workflows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *wf
	return &cp, nil
}

func (r *MemoryWorkflowRepository) Update(_ context.Context, wf *engine.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workflows[wf.ID]; !ok {
		return ErrNotFound
	}
	cp := *wf
	r.workflows[wf.ID] = &cp
	return nil
}

func (r *MemoryWorkflowRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workflows[id]; !ok {
		return ErrNotFound
	}
	delete(r.workflows, id)
	return nil
}

func (r *MemoryWorkflowRepository) List(_ context.Context) ([]*engine.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*engine.Workflow, 0, len(r.workflows))
	for _, wf := range r.workflows {
		cp := *wf
		out = append(out, &cp)
	}
	return out, nil
}

type MemoryAgentRepository struct {
	mu     sync.RWMutex
	agents map[string]*engine.Agent
}

func NewMemoryAgentRepository() *MemoryAgentRepository {
	return &MemoryAgentRepository{agents: make(map[string]*engine.Agent)}
}

func (r *MemoryAgentRepository) Create(_ context.Context, agent *engine.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[agent.ID]; exists {
		return fmt.Errorf("agent %q already exists", agent.ID)
	}
	cp := *agent
	r.agents[agent.ID] = &cp
	return nil
}

func (r *MemoryAgentRepository) Get(_ context.Context, id string) (*engine.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *agent
	return &cp, nil
}

func (r *MemoryAgentRepository) Update(_ context.Context, agent *engine.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agent.ID]; !ok {
		return ErrNotFound
	}
	cp := *agent
	r.agents[agent.ID] = &cp
	return nil
}

func (r *MemoryAgentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return ErrNotFound
	}
	delete(r.agents, id)
	return nil
}

func (r *MemoryAgentRepository) List(_ context.Context) ([]*engine.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*engine.Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		cp := *agent
		out = append(out, &cp)
	}
	return out, nil
}

type MemoryExecutionRepository struct {
	mu         sync.RWMutex
	executions map[string]*engine.Execution
	order      []string
}

func NewMemoryExecutionRepository() *MemoryExecutionRepository {
	return &MemoryExecutionRepository{executions: make(map[string]*engine.Execution)}
}

func (r *MemoryExecutionRepository) Create(_ context.Context, exec *engine.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executions[exec.ID]; exists {
		return fmt.Errorf("execution %q already exists", exec.ID)
	}
	cp := *exec
	r.executions[exec.ID] = &cp
	r.order = append(r.order, exec.ID)
	return nil
}

func (r *MemoryExecutionRepository) Get(_ context.Context, id string) (*engine.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *exec
	return &cp, nil
}

func (r *MemoryExecutionRepository) Update(_ context.Context, exec *engine.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.executions[exec.ID]; !ok {
		return ErrNotFound
	}
	cp := *exec
	r.executions[exec.ID] = &cp
	return nil
}

func (r *MemoryExecutionRepository) ListByWorkflow(_ context.Context, workflowID string, limit, offset int) ([]*engine.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*engine.Execution
	for _, id := range r.order {
		exec := r.executions[id]
		if workflowID == "" || exec.WorkflowID == workflowID {
			cp := *exec
			matched = append(matched, &cp)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*engine.Task
	order []string
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]*engine.Task)}
}

func (r *MemoryTaskRepository) Create(_ context.Context, task *engine.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[task.ID]; exists {
		return fmt.Errorf("task %q already exists", task.ID)
	}
	cp := *task
	r.tasks[task.ID] = &cp
	r.order = append(r.order, task.ID)
	return nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, task *engine.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return ErrNotFound
	}
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

// ListByExecution returns tasks in creation order, which is the node-visit
// order of the run.
func (r *MemoryTaskRepository) ListByExecution(_ context.Context, executionID string) ([]*engine.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*engine.Task
	for _, id := range r.order {
		task := r.tasks[id]
		if task.ExecutionID == executionID {
			cp := *task
			out = append(out, &cp)
		}
	}
	return out, nil
}
