package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/minseok/loom/internal/engine"
)

// CreateAgent stores a new agent.
func (d *DB) CreateAgent(ctx context.Context, a *engine.Agent) error {
	capsJSON, _ := json.Marshal(a.Capabilities)
	modelJSON, _ := json.Marshal(a.ModelConfig)
	factsJSON, _ := json.Marshal(a.Facts)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO agents (id, name, role, priority, capabilities, is_active, system_prompt, model_config, working_memory, facts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.Name, string(a.Role), a.Priority, capsJSON, a.IsActive,
		a.SystemPrompt, modelJSON, a.WorkingMemory, factsJSON, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID.
func (d *DB) GetAgent(ctx context.Context, id string) (*engine.Agent, error) {
	a := &engine.Agent{}
	var role string
	var capsJSON, modelJSON, factsJSON []byte

	err := d.Pool.QueryRowContext(ctx,
		`SELECT id, name, role, priority, capabilities, is_active, system_prompt, model_config, working_memory, facts, created_at, updated_at
		 FROM agents WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &role, &a.Priority, &capsJSON, &a.IsActive,
		&a.SystemPrompt, &modelJSON, &a.WorkingMemory, &factsJSON, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("agent not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}

	a.Role = engine.AgentRole(role)
	json.Unmarshal(capsJSON, &a.Capabilities)
	json.Unmarshal(modelJSON, &a.ModelConfig)
	json.Unmarshal(factsJSON, &a.Facts)
	return a, nil
}

// UpdateAgent updates an existing agent, including its advisory memory.
func (d *DB) UpdateAgent(ctx context.Context, a *engine.Agent) error {
	capsJSON, _ := json.Marshal(a.Capabilities)
	modelJSON, _ := json.Marshal(a.ModelConfig)
	factsJSON, _ := json.Marshal(a.Facts)

	_, err := d.Pool.ExecContext(ctx,
		`UPDATE agents SET name = $1, role = $2, priority = $3, capabilities = $4, is_active = $5,
		 system_prompt = $6, model_config = $7, working_memory = $8, facts = $9, updated_at = $10
		 WHERE id = $11`,
		a.Name, string(a.Role), a.Priority, capsJSON, a.IsActive,
		a.SystemPrompt, modelJSON, a.WorkingMemory, factsJSON, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return nil
}

// DeleteAgent removes an agent.
func (d *DB) DeleteAgent(ctx context.Context, id string) error {
	_, err := d.Pool.ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	return nil
}

// ListAgents returns all agents ordered by priority, highest first.
func (d *DB) ListAgents(ctx context.Context) ([]*engine.Agent, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, name, role, priority, capabilities, is_active, system_prompt, model_config, working_memory, facts, created_at, updated_at
		 FROM agents ORDER BY priority DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []*engine.Agent
	for rows.Next() {
		a := &engine.Agent{}
		var role string
		var capsJSON, modelJSON, factsJSON []byte
		if err := rows.Scan(&a.ID, &a.Name, &role, &a.Priority, &capsJSON, &a.IsActive,
			&a.SystemPrompt, &modelJSON, &a.WorkingMemory, &factsJSON, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		a.Role = engine.AgentRole(role)
		json.Unmarshal(capsJSON, &a.Capabilities)
		json.Unmarshal(modelJSON, &a.ModelConfig)
		json.Unmarshal(factsJSON, &a.Facts)
		out = append(out, a)
	}
	return out, rows.Err()
}
