package repository

import (
	"context"

	"github.com/minseok/loom/internal/db"
	"github.com/minseok/loom/internal/engine"
)

// PostgreSQL-backed repositories. Unlike advisory caches, execution and
// task writes here are load-bearing: a failed write propagates to the
// caller so the run-loop halts instead of continuing in memory only.

type PersistentWorkflowRepository struct {
	db *db.DB
}

func NewPersistentWorkflowRepository(database *db.DB) *PersistentWorkflowRepository {
	return &PersistentWorkflowRepository{db: database}
}

func (r *PersistentWorkflowRepository) Create(ctx context.Context, wf *engine.Workflow) error {
	return r.db.CreateWorkflow(ctx, wf)
}

func (r *PersistentWorkflowRepository) Get(ctx context.Context, id string) (*engine.Workflow, error) {
	return r.db.GetWorkflow(ctx, id)
}

func (r *PersistentWorkflowRepository) Update(ctx context.Context, wf *engine.Workflow) error {
	return r.db.UpdateWorkflow(ctx, wf)
}

func (r *PersistentWorkflowRepository) Delete(ctx context.Context, id string) error {
	return r.db.DeleteWorkflow(ctx, id)
}

func (r *PersistentWorkflowRepository) List(ctx context.Context) ([]*engine.Workflow, error) {
	return r.db.ListWorkflows(ctx)
}

type PersistentAgentRepository struct {
	db *db.DB
}

func NewPersistentAgentRepository(database *db.DB) *PersistentAgentRepository {
	return &PersistentAgentRepository{db: database}
}

func (r *PersistentAgentRepository) Create(ctx context.Context, agent *engine.Agent) error {
	return r.db.CreateAgent(ctx, agent)
}

func (r *PersistentAgentRepository) Get(ctx context.Context, id string) (*engine.Agent, error) {
	return r.db.GetAgent(ctx, id)
}

func (r *PersistentAgentRepository) Update(ctx context.Context, agent *engine.Agent) error {
	return r.db.UpdateAgent(ctx, agent)
}

func (r *PersistentAgentRepository) Delete(ctx context.Context, id string) error {
	return r.db.DeleteAgent(ctx, id)
}

func (r *PersistentAgentRepository) List(ctx context.Context) ([]*engine.Agent, error) {
	return r.db.ListAgents(ctx)
}

type PersistentExecutionRepository struct {
	db *db.DB
}

func NewPersistentExecutionRepository(database *db.DB) *PersistentExecutionRepository {
	return &PersistentExecutionRepository{db: database}
}

func (r *PersistentExecutionRepository) Create(ctx context.Context, exec *engine.Execution) error {
	return r.db.CreateExecution(ctx, exec)
}

func (r *PersistentExecutionRepository) Get(ctx context.Context, id string) (*engine.Execution, error) {
	return r.db.GetExecution(ctx, id)
}

func (r *PersistentExecutionRepository) Update(ctx context.Context, exec *engine.Execution) error {
	return r.db.UpdateExecution(ctx, exec)
}

func (r *PersistentExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit, offset int) ([]*engine.Execution, error) {
	return r.db.ListExecutionsByWorkflow(ctx, workflowID, limit, offset)
}

type PersistentTaskRepository struct {
	db *db.DB
}

func NewPersistentTaskRepository(database *db.DB) *PersistentTaskRepository {
	return &PersistentTaskRepository{db: database}
}

func (r *PersistentTaskRepository) Create(ctx context.Context, task *engine.Task) error {
	return r.db.CreateTask(ctx, task)
}

func (r *PersistentTaskRepository) Update(ctx context.Context, task *engine.Task) error {
	return r.db.UpdateTask(ctx, task)
}

func (r *PersistentTaskRepository) ListByExecution(ctx context.Context, executionID string) ([]*engine.Task, error) {
	return r.db.ListTasksByExecution(ctx, executionID)
}
