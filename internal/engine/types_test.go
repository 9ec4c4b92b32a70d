package engine

import (
	"strings"
	"testing"
	"time"
)

func TestNode_InputFields(t *testing.T) {
	n := Node{
		ID:   "form",
		Type: NodeTypeInput,
		Config: map[string]any{
			"fields": []any{
				map[string]any{"key": "topic", "label": "Topic"},
				map[string]any{"key": "tone", "type": "select", "options": []any{"formal", "casual"}},
			},
		},
	}
	fields := n.InputFields()
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Type != "text" {
		t.Errorf("missing type should default to text, got %q", fields[0].Type)
	}
	if len(fields[1].Options) != 2 || fields[1].Options[0] != "formal" {
		t.Errorf("options not decoded: %v", fields[1].Options)
	}
}

func TestNode_TaskKey(t *testing.T) {
	withField := Node{
		ID:     "ask",
		Config: map[string]any{"fields": []any{map[string]any{"key": "topic"}}},
	}
	if got := withField.TaskKey(); got != "topic" {
		t.Errorf("got %q, want topic", got)
	}
	bare := Node{ID: "ask"}
	if got := bare.TaskKey(); got != "ask" {
		t.Errorf("got %q, want node id fallback", got)
	}
}

func TestNode_PendingDescriptor(t *testing.T) {
	single := Node{
		ID:    "ask",
		Label: "Pick a tone",
		Config: map[string]any{
			"fields": []any{map[string]any{"key": "tone", "type": "select", "options": []any{"a", "b"}}},
		},
	}
	p := single.PendingDescriptor()
	if p.Type != "select" || len(p.Options) != 2 {
		t.Errorf("select descriptor: %+v", p)
	}

	multi := Node{
		ID: "form",
		Config: map[string]any{
			"isMultiInput": true,
			"fields": []any{
				map[string]any{"key": "a"},
				map[string]any{"key": "b"},
			},
		},
	}
	p = multi.PendingDescriptor()
	if p.Type != "multi" || len(p.Fields) != 2 {
		t.Errorf("multi descriptor: %+v", p)
	}

	// textarea stays a text-shaped request.
	area := Node{
		ID:     "notes",
		Config: map[string]any{"fields": []any{map[string]any{"key": "notes", "type": "textarea"}}},
	}
	if p = area.PendingDescriptor(); p.Type != "text" {
		t.Errorf("textarea descriptor type: got %q, want text", p.Type)
	}
}

func TestTask_TransitionLog(t *testing.T) {
	task := &Task{ID: "t1"}
	t0 := time.Now()
	task.Transition(TaskPending, t0)
	task.Transition(TaskRunning, t0.Add(time.Millisecond))
	task.Transition(TaskCompleted, t0.Add(2*time.Millisecond))

	if task.Status != TaskCompleted {
		t.Errorf("status: got %q", task.Status)
	}
	if len(task.StatusTransitions) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(task.StatusTransitions))
	}
	want := []TaskStatus{TaskPending, TaskRunning, TaskCompleted}
	for i, tr := range task.StatusTransitions {
		if tr.Status != want[i] {
			t.Errorf("transition %d: got %q, want %q", i, tr.Status, want[i])
		}
	}
}

func TestAgent_ApplyMemory(t *testing.T) {
	a := &Agent{ID: "agent-1"}

	if a.ApplyMemory("   ", nil) {
		t.Error("blank message with no facts should be a no-op")
	}

	long := strings.Repeat("x", workingMemoryLimit+50)
	if !a.ApplyMemory(long, nil) {
		t.Fatal("expected memory write")
	}
	if len(a.WorkingMemory) != workingMemoryLimit {
		t.Errorf("working memory not truncated: %d chars", len(a.WorkingMemory))
	}

	facts := map[string]any{"theme": "dark"}
	a.ApplyMemory("noted", facts)
	if a.Facts["theme"] != "dark" {
		t.Errorf("facts not replaced: %v", a.Facts)
	}
}
