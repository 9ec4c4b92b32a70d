package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/repository"
)

// ExecutionService is the caller-facing surface of the engine: start a
// run, feed it input, inspect it, cancel it. Each execution runs in its
// own goroutine; the service tracks them for graceful shutdown.
type ExecutionService struct {
	workflows  repository.WorkflowRepository
	executions repository.ExecutionRepository
	tasks      repository.TaskRepository
	interp     *engine.Interpreter
	registry   *Registry
	limiter    *ConcurrencyLimiter
	log        *slog.Logger
	group      *errgroup.Group
}

func NewExecutionService(
	workflows repository.WorkflowRepository,
	executions repository.ExecutionRepository,
	tasks repository.TaskRepository,
	interp *engine.Interpreter,
	registry *Registry,
	limiter *ConcurrencyLimiter,
	log *slog.Logger,
) *ExecutionService {
	if log == nil {
		log = slog.Default()
	}
	return &ExecutionService{
		workflows:  workflows,
		executions: executions,
		tasks:      tasks,
		interp:     interp,
		registry:   registry,
		limiter:    limiter,
		log:        log,
		group:      new(errgroup.Group),
	}
}

// StartExecution creates an execution record and launches the run-loop.
// It returns the execution ID immediately; progress is observed via
// GetExecutionStatus and the event bus.
func (s *ExecutionService) StartExecution(ctx context.Context, workflowID string, parameters map[string]any) (string, error) {
	wf, err := s.workflows.Get(ctx, workflowID)
	if err != nil {
		return "", fmt.Errorf("load workflow %q: %w", workflowID, err)
	}
	if err := wf.Configuration.Validate(); err != nil {
		return "", err
	}

	exec := &engine.Execution{
		ID:         uuid.NewString(),
		WorkflowID: wf.ID,
		Status:     engine.ExecutionPending,
		Parameters: parameters,
		StartedAt:  time.Now(),
	}
	if err := s.executions.Create(ctx, exec); err != nil {
		return "", fmt.Errorf("create execution: %w", err)
	}

	handle := s.registry.Register(exec.ID)

	s.group.Go(func() error {
		defer s.registry.Unregister(exec.ID)

		runCtx := context.Background()
		if s.limiter != nil {
			if err := s.limiter.Acquire(runCtx, wf.ID); err != nil {
				return nil
			}
			defer s.limiter.Release(wf.ID)
		}

		if err := s.interp.Run(runCtx, wf, exec, handle); err != nil {
			s.log.Error("execution finished with error",
				"execution_id", exec.ID, "workflow_id", wf.ID, "err", err)
		}
		return nil
	})

	return exec.ID, nil
}

// ProvideInput resolves the outstanding pending-input request of a parked
// execution. Validation failures leave the request surfaced.
func (s *ExecutionService) ProvideInput(executionID string, value any) error {
	handle, ok := s.registry.Get(executionID)
	if !ok {
		return fmt.Errorf("execution %q: %w", executionID, repository.ErrNotFound)
	}
	return handle.ProvideInput(value)
}

// ExecutionState is the externally visible view of one execution. While the
// run-loop is parked on an input node the execution stays "running" and
// PendingInput carries the request descriptor.
type ExecutionState struct {
	Status       engine.ExecutionStatus `json:"status"`
	ActiveNodeID string                 `json:"active_node_id,omitempty"`
	PendingInput *engine.PendingInput   `json:"pending_input,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

func (s *ExecutionService) GetExecutionStatus(ctx context.Context, executionID string) (*ExecutionState, error) {
	exec, err := s.executions.Get(ctx, executionID)
	if err != nil {
		return nil, err
	}
	state := &ExecutionState{Status: exec.Status, Error: exec.Error}
	if handle, ok := s.registry.Get(executionID); ok {
		state.ActiveNodeID = handle.ActiveNode()
		state.PendingInput = handle.Pending()
	}
	return state, nil
}

// CancelExecution requests cooperative cancellation. A run already in a
// terminal state is left untouched.
func (s *ExecutionService) CancelExecution(ctx context.Context, executionID string) error {
	if handle, ok := s.registry.Get(executionID); ok {
		handle.Cancel()
		return nil
	}
	if _, err := s.executions.Get(ctx, executionID); err != nil {
		return err
	}
	return nil
}

// ListTasks returns the ordered node-visit records of an execution.
func (s *ExecutionService) ListTasks(ctx context.Context, executionID string) ([]*engine.Task, error) {
	return s.tasks.ListByExecution(ctx, executionID)
}

// ListExecutions returns execution records, optionally scoped to one workflow.
func (s *ExecutionService) ListExecutions(ctx context.Context, workflowID string, limit, offset int) ([]*engine.Execution, error) {
	return s.executions.ListByWorkflow(ctx, workflowID, limit, offset)
}

// Close waits for all in-flight executions to finish. Callers wanting a
// faster exit should cancel them first.
func (s *ExecutionService) Close() error {
	return s.group.Wait()
}

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
