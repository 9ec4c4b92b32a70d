package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/minseok/loom/internal/engine"
)

// CreateWorkflow stores a new workflow.
func (d *DB) CreateWorkflow(ctx context.Context, wf *engine.Workflow) error {
	configJSON, _ := json.Marshal(wf.Configuration)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO workflows (id, name, description, status, configuration, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		wf.ID, wf.Name, wf.Description, wf.Status, configJSON, wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (d *DB) GetWorkflow(ctx context.Context, id string) (*engine.Workflow, error) {
	wf := &engine.Workflow{}
	var configJSON []byte

	err := d.Pool.QueryRowContext(ctx,
		`SELECT id, name, description, status, configuration, created_at, updated_at
		 FROM workflows WHERE id = $1`, id,
	).Scan(&wf.ID, &wf.Name, &wf.Description, &wf.Status, &configJSON, &wf.CreatedAt, &wf.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workflow not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}

	json.Unmarshal(configJSON, &wf.Configuration)
	return wf, nil
}

// UpdateWorkflow updates an existing workflow.
func (d *DB) UpdateWorkflow(ctx context.Context, wf *engine.Workflow) error {
	configJSON, _ := json.Marshal(wf.Configuration)

	_, err := d.Pool.ExecContext(ctx,
		`UPDATE workflows SET name = $1, description = $2, status = $3, configuration = $4, updated_at = $5
		 WHERE id = $6`,
		wf.Name, wf.Description, wf.Status, configJSON, wf.UpdatedAt, wf.ID,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	return nil
}

// DeleteWorkflow removes a workflow and, via cascade, its executions.
func (d *DB) DeleteWorkflow(ctx context.Context, id string) error {
	_, err := d.Pool.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	return nil
}

// ListWorkflows returns all workflows ordered by creation time.
func (d *DB) ListWorkflows(ctx context.Context) ([]*engine.Workflow, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, name, description, status, configuration, created_at, updated_at
		 FROM workflows ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []*engine.Workflow
	for rows.Next() {
		wf := &engine.Workflow{}
		var configJSON []byte
		if err := rows.Scan(&wf.ID, &wf.Name, &wf.Description, &wf.Status, &configJSON, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		json.Unmarshal(configJSON, &wf.Configuration)
		out = append(out, wf)
	}
	return out, rows.Err()
}
