package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minseok/loom/internal/engine"
)

// CreateTask stores a new node-visit record.
func (d *DB) CreateTask(ctx context.Context, t *engine.Task) error {
	inputJSON, _ := json.Marshal(t.Input)
	transitionsJSON, _ := json.Marshal(t.StatusTransitions)
	usageJSON, _ := json.Marshal(t.TokenUsage)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO tasks (id, execution_id, node_id, agent_id, description, input, status, status_transitions, started_at, completed_at, duration_ms, model_name, model_calls, token_usage, output)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.ExecutionID, t.NodeID, t.AgentID, t.Description, inputJSON,
		string(t.Status), transitionsJSON, t.StartedAt, t.CompletedAt,
		t.DurationMS, t.ModelName, t.ModelCalls, usageJSON, t.Output,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// UpdateTask persists a task state change.
func (d *DB) UpdateTask(ctx context.Context, t *engine.Task) error {
	transitionsJSON, _ := json.Marshal(t.StatusTransitions)
	usageJSON, _ := json.Marshal(t.TokenUsage)

	_, err := d.Pool.ExecContext(ctx,
		`UPDATE tasks SET status = $1, status_transitions = $2, completed_at = $3, duration_ms = $4, model_name = $5, model_calls = $6, token_usage = $7, output = $8
		 WHERE id = $9`,
		string(t.Status), transitionsJSON, t.CompletedAt, t.DurationMS,
		t.ModelName, t.ModelCalls, usageJSON, t.Output, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListTasksByExecution returns an execution's tasks in node-visit order.
func (d *DB) ListTasksByExecution(ctx context.Context, executionID string) ([]*engine.Task, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, execution_id, node_id, agent_id, description, input, status, status_transitions, started_at, completed_at, duration_ms, model_name, model_calls, token_usage, output
		 FROM tasks WHERE execution_id = $1 ORDER BY started_at`,
		executionID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*engine.Task
	for rows.Next() {
		t := &engine.Task{}
		var status string
		var inputJSON, transitionsJSON, usageJSON []byte
		if err := rows.Scan(&t.ID, &t.ExecutionID, &t.NodeID, &t.AgentID, &t.Description, &inputJSON,
			&status, &transitionsJSON, &t.StartedAt, &t.CompletedAt,
			&t.DurationMS, &t.ModelName, &t.ModelCalls, &usageJSON, &t.Output); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = engine.TaskStatus(status)
		json.Unmarshal(inputJSON, &t.Input)
		json.Unmarshal(transitionsJSON, &t.StatusTransitions)
		json.Unmarshal(usageJSON, &t.TokenUsage)
		out = append(out, t)
	}
	return out, rows.Err()
}
