package provider

import "context"

// InvokeRequest is one request/response round trip to the language-model
// collaborator. Context carries the run's collected key-value state and is
// serialized into the prompt; nil override fields use the client defaults.
type InvokeRequest struct {
	System      string
	Prompt      string
	Context     map[string]any
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type InvokeResponse struct {
	Text  string
	Model string
	Usage Usage
}

// Invoker is the language-model collaborator contract. Implementations are
// expected to fail fast on transport errors; callers wanting a deadline
// wrap ctx themselves.
type Invoker interface {
	Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error)
}
