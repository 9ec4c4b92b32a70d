package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/minseok/loom/internal/engine"
)

// CreateExecution stores a new execution record.
func (d *DB) CreateExecution(ctx context.Context, e *engine.Execution) error {
	paramsJSON, _ := json.Marshal(e.Parameters)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO executions (id, workflow_id, status, parameters, error, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.WorkflowID, string(e.Status), paramsJSON, e.Error, e.StartedAt, e.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (d *DB) GetExecution(ctx context.Context, id string) (*engine.Execution, error) {
	e := &engine.Execution{}
	var status string
	var paramsJSON []byte

	err := d.Pool.QueryRowContext(ctx,
		`SELECT id, workflow_id, status, parameters, error, started_at, completed_at
		 FROM executions WHERE id = $1`, id,
	).Scan(&e.ID, &e.WorkflowID, &status, &paramsJSON, &e.Error, &e.StartedAt, &e.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("execution not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}

	e.Status = engine.ExecutionStatus(status)
	json.Unmarshal(paramsJSON, &e.Parameters)
	return e, nil
}

// UpdateExecution persists an execution status transition.
func (d *DB) UpdateExecution(ctx context.Context, e *engine.Execution) error {
	_, err := d.Pool.ExecContext(ctx,
		`UPDATE executions SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(e.Status), e.Error, e.CompletedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	return nil
}

// ListExecutionsByWorkflow returns executions for a workflow, newest first,
// with pagination. An empty workflowID matches all workflows.
func (d *DB) ListExecutionsByWorkflow(ctx context.Context, workflowID string, limit, offset int) ([]*engine.Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, workflow_id, status, parameters, error, started_at, completed_at
		 FROM executions
		 WHERE ($1 = '' OR workflow_id = $1)
		 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		workflowID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []*engine.Execution
	for rows.Next() {
		e := &engine.Execution{}
		var status string
		var paramsJSON []byte
		if err := rows.Scan(&e.ID, &e.WorkflowID, &status, &paramsJSON, &e.Error, &e.StartedAt, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.Status = engine.ExecutionStatus(status)
		json.Unmarshal(paramsJSON, &e.Parameters)
		out = append(out, e)
	}
	return out, rows.Err()
}
