// Package strategy implements one execution strategy per workflow node
// type. All strategies share a single invoke primitive that sends
// (system prompt, user prompt, run context) to the language-model
// collaborator.
package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/provider"
)

// Defaults returns the strategy for each node type in the closed set.
func Defaults(inv provider.Invoker, log *slog.Logger) map[engine.NodeType]engine.Strategy {
	if log == nil {
		log = slog.Default()
	}
	return map[engine.NodeType]engine.Strategy{
		engine.NodeTypeTrigger:   &TriggerStrategy{inv: inv, log: log},
		engine.NodeTypeInput:     &InputStrategy{inv: inv, log: log},
		engine.NodeTypeAction:    &ActionStrategy{inv: inv, log: log},
		engine.NodeTypeCondition: &ConditionStrategy{inv: inv, log: log},
		engine.NodeTypeOutput:    &OutputStrategy{inv: inv, log: log},
	}
}

// invoke is the shared primitive: one request/response round trip with
// per-agent model overrides applied and latency logged.
func invoke(ctx context.Context, inv provider.Invoker, log *slog.Logger, agent *engine.Agent, system, prompt string, runCtx map[string]any) (*provider.InvokeResponse, error) {
	req := &provider.InvokeRequest{
		System:  system,
		Prompt:  prompt,
		Context: runCtx,
	}
	if agent != nil {
		req.Model = agent.ModelConfig.Model
		req.Temperature = agent.ModelConfig.Temperature
		req.TopP = agent.ModelConfig.TopP
		req.MaxTokens = agent.ModelConfig.MaxTokens
	}

	start := time.Now()
	resp, err := inv.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Debug("strategy invoke", "model", resp.Model, "elapsed", time.Since(start))
	return resp, nil
}

// systemPromptFor returns the agent's system prompt, or a generic
// role-based fallback when the node has no specialized agent.
func systemPromptFor(agent *engine.Agent) string {
	if agent != nil && agent.SystemPrompt != "" {
		return agent.SystemPrompt
	}
	if agent != nil {
		return fmt.Sprintf("You are an expert %s.", agent.Role)
	}
	return "You are a capable generalist assistant executing one step of a workflow."
}

// taskDescription is the user-facing prompt for a node.
func taskDescription(node *engine.Node) string {
	if node.Label != "" {
		return node.Label
	}
	return fmt.Sprintf("Execute the %s step %q of the workflow.", node.Type, node.ID)
}

func accumulate(total *engine.TokenUsage, usage provider.Usage) {
	total.PromptTokens += usage.PromptTokens
	total.CompletionTokens += usage.CompletionTokens
	total.TotalTokens += usage.TotalTokens
}
