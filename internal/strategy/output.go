package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/provider"
)

// OutputStrategy delivers the final result with a single invoke naming the
// configured output channel. No retry.
type OutputStrategy struct {
	inv provider.Invoker
	log *slog.Logger
}

func (s *OutputStrategy) Execute(ctx context.Context, node *engine.Node, agent *engine.Agent, runCtx map[string]any) (*engine.StrategyResult, error) {
	outputType, _ := node.Config["outputType"].(string)
	if outputType == "" {
		outputType = "database"
	}

	system := fmt.Sprintf(
		"You deliver the final result of a workflow to the %s output channel. "+
			"Produce the finished, formatted result from the collected context.", outputType)

	resp, err := invoke(ctx, s.inv, s.log, agent, system, taskDescription(node), runCtx)
	if err != nil {
		return nil, fmt.Errorf("output invoke: %w", err)
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
