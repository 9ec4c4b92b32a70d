package engine

import (
	"errors"
	"testing"
	"time"
)

func TestHandle_ProvideInputWithoutPending(t *testing.T) {
	h := NewExecutionHandle("exec-1")
	if err := h.ProvideInput("hello"); !errors.Is(err, ErrNotWaiting) {
		t.Fatalf("expected ErrNotWaiting, got %v", err)
	}
}

func TestHandle_AwaitAndProvide(t *testing.T) {
	h := NewExecutionHandle("exec-1")
	pending := &PendingInput{NodeID: "ask", Type: "text"}

	h.PostInput(pending)
	got := make(chan any, 1)
	go func() {
		v, err := h.AwaitInput()
		if err != nil {
			got <- err
			return
		}
		got <- v
	}()

	// Blank text is rejected and the request stays surfaced.
	var verr *ValidationError
	if err := h.ProvideInput("   "); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for blank text, got %v", err)
	}
	if h.Pending() == nil {
		t.Fatal("pending request cleared by a rejected value")
	}

	if err := h.ProvideInput("hello"); err != nil {
		t.Fatalf("provide: %v", err)
	}
	if v := <-got; v != "hello" {
		t.Errorf("await returned %v, want hello", v)
	}
	if h.Pending() != nil {
		t.Error("pending request still surfaced after delivery")
	}
}

func TestHandle_ProvideBetweenPostAndAwait(t *testing.T) {
	h := NewExecutionHandle("exec-1")
	h.PostInput(&PendingInput{NodeID: "ask", Type: "text"})

	// The request is resolvable as soon as it is posted, even before the
	// interpreter side starts waiting.
	if err := h.ProvideInput("early"); err != nil {
		t.Fatalf("provide before await: %v", err)
	}
	v, err := h.AwaitInput()
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if v != "early" {
		t.Errorf("await returned %v, want early", v)
	}
}

func TestHandle_MultiInputValidation(t *testing.T) {
	h := NewExecutionHandle("exec-1")
	pending := &PendingInput{
		NodeID: "form",
		Type:   "multi",
		Fields: []InputField{
			{Key: "title", Type: "text"},
			{Key: "count", Type: "number"},
		},
	}

	h.PostInput(pending)
	done := make(chan struct{})
	go func() {
		h.AwaitInput()
		close(done)
	}()

	var verr *ValidationError
	if err := h.ProvideInput("not a record"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for non-record, got %v", err)
	}
	if err := h.ProvideInput(map[string]any{"title": "  ", "count": 3}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for blank text field, got %v", err)
	}
	if err := h.ProvideInput(map[string]any{"title": "ok", "count": 3}); err != nil {
		t.Fatalf("provide: %v", err)
	}
	<-done
}

func TestHandle_CancelUnparksAwait(t *testing.T) {
	h := NewExecutionHandle("exec-1")

	h.PostInput(&PendingInput{NodeID: "ask", Type: "text"})
	errCh := make(chan error, 1)
	go func() {
		_, err := h.AwaitInput()
		errCh <- err
	}()

	h.Cancel()
	if err := <-errCh; !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if !h.Cancelled() {
		t.Error("Cancelled() false after Cancel")
	}
	// Cancel is idempotent.
	h.Cancel()
}

func waitForPending(t *testing.T, h *ExecutionHandle) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Pending() == nil {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for pending input")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
