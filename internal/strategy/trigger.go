package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/provider"
)

const triggerSystemPrompt = "You prepare the initial data for a workflow run. " +
	"Summarize the provided parameters and state what the workflow is about to do."

// TriggerStrategy starts a run with a single invoke. No retry.
type TriggerStrategy struct {
	inv provider.Invoker
	log *slog.Logger
}

func (s *TriggerStrategy) Execute(ctx context.Context, node *engine.Node, agent *engine.Agent, runCtx map[string]any) (*engine.StrategyResult, error) {
	triggerType, _ := node.Config["triggerType"].(string)
	if triggerType == "" {
		triggerType = "manual"
	}

	prompt := fmt.Sprintf("Workflow triggered (%s): %s", triggerType, taskDescription(node))
	resp, err := invoke(ctx, s.inv, s.log, agent, triggerSystemPrompt, prompt, runCtx)
	if err != nil {
		return nil, fmt.Errorf("trigger invoke: %w", err)
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
