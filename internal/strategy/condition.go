package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/llmutil"
	"github.com/minseok/loom/internal/provider"
)

const conditionSystemPrompt = "You evaluate a workflow branching condition. " +
	`Respond with ONLY a JSON object of the form {"decision": true, "reasoning": "why"} ` +
	"where decision is a boolean and reasoning is a string. No other text."

// ConditionStrategy produces a structured true/false decision. The default
// protocol asks the model for strict JSON and retries exactly once on an
// unparsable reply; a second failure fails the node — a condition never
// silently defaults to a branch. An optional `expression` config evaluates
// locally with expr-lang instead of calling the model.
type ConditionStrategy struct {
	inv provider.Invoker
	log *slog.Logger
}

func (s *ConditionStrategy) Execute(ctx context.Context, node *engine.Node, agent *engine.Agent, runCtx map[string]any) (*engine.StrategyResult, error) {
	if expression, _ := node.Config["expression"].(string); expression != "" {
		return s.evaluateExpression(node, expression, runCtx)
	}

	prompt := s.buildPrompt(node)

	resp, err := invoke(ctx, s.inv, s.log, agent, conditionSystemPrompt, prompt, runCtx)
	if err != nil {
		return nil, fmt.Errorf("condition invoke: %w", err)
	}
	result := &engine.StrategyResult{ModelName: resp.Model, ModelCalls: 1}
	accumulate(&result.TokenUsage, resp.Usage)

	decision, reasoning, parseErr := parseDecision(resp.Text)
	if parseErr != nil {
		retryPrompt := fmt.Sprintf(
			"%s\n\nYour previous response could not be parsed:\n%s\n\n"+
				`Respond with ONLY a JSON object: {"decision": <boolean>, "reasoning": <string>}.`,
			prompt, resp.Text)

		retry, err := invoke(ctx, s.inv, s.log, agent, conditionSystemPrompt, retryPrompt, runCtx)
		if err != nil {
			return result, fmt.Errorf("condition retry invoke: %w", err)
		}
		result.ModelCalls++
		accumulate(&result.TokenUsage, retry.Usage)
		result.ModelName = retry.Model

		decision, reasoning, parseErr = parseDecision(retry.Text)
		if parseErr != nil {
			return result, fmt.Errorf("condition decision unparsable after retry: %w", parseErr)
		}
	}

	s.finish(result, node, decision, reasoning)
	return result, nil
}

func (s *ConditionStrategy) evaluateExpression(node *engine.Node, expression string, runCtx map[string]any) (*engine.StrategyResult, error) {
	env := make(map[string]any, len(runCtx))
	for k, v := range runCtx {
		if !strings.HasPrefix(k, "__") {
			env[k] = v
		}
	}

	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile condition expression %q: %w", expression, err)
	}
	value, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate condition expression %q: %w", expression, err)
	}

	decision := isTruthy(value)
	result := &engine.StrategyResult{}
	s.finish(result, node, decision, fmt.Sprintf("expression %q evaluated to %v", expression, decision))
	return result, nil
}

func (s *ConditionStrategy) finish(result *engine.StrategyResult, node *engine.Node, decision bool, reasoning string) {
	branch, _ := node.Config["conditionFalse"].(string)
	if decision {
		branch, _ = node.Config["conditionTrue"].(string)
	}
	message := fmt.Sprintf("decision: %v — %s", decision, reasoning)
	if branch != "" {
		message = fmt.Sprintf("decision: %v (%s) — %s", decision, branch, reasoning)
	}

	result.Message = message
	result.Decision = &decision
	result.ContextDelta = map[string]any{
		"decision":  decision,
		"reasoning": reasoning,
		node.ID:     message,
	}
}

func (s *ConditionStrategy) buildPrompt(node *engine.Node) string {
	var b strings.Builder
	b.WriteString("Condition to evaluate: ")
	b.WriteString(taskDescription(node))
	if t, _ := node.Config["conditionTrue"].(string); t != "" {
		fmt.Fprintf(&b, "\nIf true, the workflow follows: %s", t)
	}
	if f, _ := node.Config["conditionFalse"].(string); f != "" {
		fmt.Fprintf(&b, "\nIf false, the workflow follows: %s", f)
	}
	return b.String()
}

// parseDecision extracts and validates the {"decision", "reasoning"}
// object from model output.
func parseDecision(text string) (bool, string, error) {
	raw, err := llmutil.ExtractJSONObject(text)
	if err != nil {
		return false, "", err
	}

	var payload struct {
		Decision  any `json:"decision"`
		Reasoning any `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return false, "", fmt.Errorf("decode decision object: %w", err)
	}

	decision, ok := payload.Decision.(bool)
	if !ok {
		return false, "", fmt.Errorf("decision field is %T, want boolean", payload.Decision)
	}
	reasoning, ok := payload.Reasoning.(string)
	if !ok {
		return false, "", fmt.Errorf("reasoning field is %T, want string", payload.Reasoning)
	}
	return decision, reasoning, nil
}

func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
