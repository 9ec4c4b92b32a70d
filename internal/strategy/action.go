package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/provider"
)

// The reflect loop is bounded structurally: at most maxGenerations
// candidate-generation invokes, each followed by one review invoke.
const (
	maxGenerations = 2
	approvedToken  = "APPROVED"
)

const reviewerSystemPrompt = "You are a critical reviewer. Examine the result below. " +
	"Reply with exactly 3 concrete improvement suggestions, or with the single word " +
	approvedToken + " if the result is perfect."

// ActionStrategy runs the generate/critique quality loop: produce a
// candidate, have a reviewer critique it, and regenerate once if the
// reviewer did not approve. The final result is always the last candidate,
// never the critique.
type ActionStrategy struct {
	inv provider.Invoker
	log *slog.Logger
}

func (s *ActionStrategy) Execute(ctx context.Context, node *engine.Node, agent *engine.Agent, runCtx map[string]any) (*engine.StrategyResult, error) {
	system := systemPromptFor(agent)
	task := taskDescription(node)

	result := &engine.StrategyResult{}
	var candidate, reflection string

	for iteration := 1; iteration <= maxGenerations; iteration++ {
		prompt := task
		if iteration > 1 {
			prompt = fmt.Sprintf("%s\n\nPrevious attempt:\n%s\n\nReviewer feedback:\n%s\n\nProduce an improved result.",
				task, candidate, reflection)
		}

		resp, err := invoke(ctx, s.inv, s.log, agent, system, prompt, runCtx)
		if err != nil {
			return nil, fmt.Errorf("action generate (iteration %d): %w", iteration, err)
		}
		candidate = resp.Text
		result.ModelName = resp.Model
		result.ModelCalls++
		accumulate(&result.TokenUsage, resp.Usage)

		review, err := invoke(ctx, s.inv, s.log, agent, reviewerSystemPrompt, candidate, nil)
		if err != nil {
			return nil, fmt.Errorf("action reflect (iteration %d): %w", iteration, err)
		}
		reflection = review.Text
		result.ModelCalls++
		accumulate(&result.TokenUsage, review.Usage)

		if strings.Contains(reflection, approvedToken) {
			break
		}
	}

	result.Message = candidate
	result.ContextDelta = map[string]any{node.ID: candidate}
	return result, nil
}
