package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/provider"
)

const inputSystemPrompt = "You collect input for a workflow step. " +
	"Ask the user for the missing data, naming each required field."

// InputStrategy completes an input node. When the run context already holds
// the user-supplied value(s) it short-circuits without calling the model;
// the actual pausing for a human happens in the interpreter, one layer up.
type InputStrategy struct {
	inv provider.Invoker
	log *slog.Logger
}

func (s *InputStrategy) Execute(ctx context.Context, node *engine.Node, agent *engine.Agent, runCtx map[string]any) (*engine.StrategyResult, error) {
	if node.IsMultiInput() {
		fields := node.InputFields()
		collected := make(map[string]any, len(fields))
		complete := true
		for _, f := range fields {
			v, ok := runCtx[f.Key]
			if !ok {
				complete = false
				break
			}
			collected[f.Key] = v
		}
		if complete {
			return shortCircuit(node, formatCollected(collected)), nil
		}
	} else {
		key := node.TaskKey()
		if v, ok := runCtx[key]; ok {
			return shortCircuit(node, fmt.Sprintf("%s: %v", key, v)), nil
		}
	}

	// No value available: ask the model to request/format the missing data.
	resp, err := invoke(ctx, s.inv, s.log, agent, inputSystemPrompt, taskDescription(node), runCtx)
	if err != nil {
		return nil, fmt.Errorf("input invoke: %w", err)
	}
	result := &engine.StrategyResult{
		Message:      resp.Text,
		ContextDelta: map[string]any{node.ID: resp.Text},
		ModelName:    resp.Model,
		ModelCalls:   1,
	}
	accumulate(&result.TokenUsage, resp.Usage)
	return result, nil
}

func shortCircuit(node *engine.Node, message string) *engine.StrategyResult {
	return &engine.StrategyResult{
		Message:      message,
		ContextDelta: map[string]any{node.ID: message},
	}
}

func formatCollected(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, values[k]))
	}
	return strings.Join(parts, "\n")
}
