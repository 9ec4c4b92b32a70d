// Package repository abstracts durable storage for workflows, agents,
// executions, and tasks. Each repository has an in-memory implementation
// for tests and single-process use, and a PostgreSQL-backed one.
package repository

import (
	"context"
	"errors"

	"github.com/minseok/loom/internal/engine"
)

var ErrNotFound = errors.New("not found")

type WorkflowRepository interface {
	Create(ctx context.Context, wf *engine.Workflow) error
	Get(ctx context.Context, id string) (*engine.Workflow, error)
	Update(ctx context.Context, wf *engine.Workflow) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*engine.Workflow, error)
}

type AgentRepository interface {
	Create(ctx context.Context, agent *engine.Agent) error
	Get(ctx context.Context, id string) (*engine.Agent, error)
	Update(ctx context.Context, agent *engine.Agent) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*engine.Agent, error)
}

type ExecutionRepository interface {
	Create(ctx context.Context, exec *engine.Execution) error
	Get(ctx context.Context, id string) (*engine.Execution, error)
	Update(ctx context.Context, exec *engine.Execution) error
	ListByWorkflow(ctx context.Context, workflowID string, limit, offset int) ([]*engine.Execution, error)
}

type TaskRepository interface {
	Create(ctx context.Context, task *engine.Task) error
	Update(ctx context.Context, task *engine.Task) error
	ListByExecution(ctx context.Context, executionID string) ([]*engine.Task, error)
}
