package engine

import (
	"strings"
	"sync"
)

// ExecutionHandle is the live side of one execution: the interpreter parks
// on it when an input node needs a human-supplied value, and external
// callers unpark it via ProvideInput or Cancel. Only one pending-input
// request can be outstanding at a time, by construction of the
// single-path run-loop.
type ExecutionHandle struct {
	ExecutionID string

	mu         sync.Mutex
	pending    *PendingInput
	inputCh    chan any
	cancelCh   chan struct{}
	cancelOnce sync.Once
	activeNode string
}

func NewExecutionHandle(executionID string) *ExecutionHandle {
	return &ExecutionHandle{
		ExecutionID: executionID,
		cancelCh:    make(chan struct{}),
	}
}

// PostInput surfaces a pending-input request so ProvideInput can resolve
// it. The interpreter posts before announcing the request, so a caller
// reacting to the announcement never races the descriptor.
func (h *ExecutionHandle) PostInput(pending *PendingInput) {
	h.mu.Lock()
	h.pending = pending
	h.inputCh = make(chan any, 1)
	h.mu.Unlock()
}

// AwaitInput blocks until the posted request is resolved or the execution
// is cancelled. Interpreter-side only.
func (h *ExecutionHandle) AwaitInput() (any, error) {
	h.mu.Lock()
	ch := h.inputCh
	h.mu.Unlock()

	select {
	case v := <-ch:
		return v, nil
	case <-h.cancelCh:
		return nil, ErrCancelled
	}
}

// ProvideInput validates and delivers a value for the outstanding
// pending-input request. A text field with an empty or whitespace-only
// value is rejected and the same request stays surfaced; all other field
// types accept any supplied value.
func (h *ExecutionHandle) ProvideInput(value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return ErrNotWaiting
	}
	if err := validateInput(h.pending, value); err != nil {
		return err
	}
	h.pending = nil
	h.inputCh <- value
	return nil
}

func validateInput(pending *PendingInput, value any) error {
	if pending.Type == "multi" {
		record, ok := value.(map[string]any)
		if !ok {
			return &ValidationError{Field: pending.NodeID, Reason: "multi-input node expects a key/value record"}
		}
		for _, f := range pending.Fields {
			if f.Type != "text" && f.Type != "textarea" {
				continue
			}
			if v, present := record[f.Key]; present {
				if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
					return &ValidationError{Field: f.Key, Reason: "required text value is empty"}
				}
			}
		}
		return nil
	}
	if pending.Type == "text" {
		if s, isStr := value.(string); isStr && strings.TrimSpace(s) == "" {
			return &ValidationError{Field: pending.NodeID, Reason: "required text value is empty"}
		}
	}
	return nil
}

// Pending returns the outstanding pending-input descriptor, or nil.
func (h *ExecutionHandle) Pending() *PendingInput {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending
}

// Cancel requests cooperative cancellation. It is observed at the top of
// the run-loop and also unparks a waiting input node.
func (h *ExecutionHandle) Cancel() {
	h.cancelOnce.Do(func() { close(h.cancelCh) })
}

func (h *ExecutionHandle) Cancelled() bool {
	select {
	case <-h.cancelCh:
		return true
	default:
		return false
	}
}

func (h *ExecutionHandle) SetActiveNode(nodeID string) {
	h.mu.Lock()
	h.activeNode = nodeID
	h.mu.Unlock()
}

func (h *ExecutionHandle) ActiveNode() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activeNode
}
