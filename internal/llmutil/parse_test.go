package llmutil

import "testing"

func TestExtractJSONObject_Clean(t *testing.T) {
	input := `{"decision": true, "reasoning": "fine"}`
	got, err := ExtractJSONObject(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestExtractJSONObject_JSONFenced(t *testing.T) {
	input := "```json\n{\"decision\": false}\n```"
	got, err := ExtractJSONObject(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"decision": false}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractJSONObject_GenericFence(t *testing.T) {
	input := "```\n{\"key\": \"value\"}\n```"
	got, err := ExtractJSONObject(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"key": "value"}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractJSONObject_SurroundingProse(t *testing.T) {
	input := "Sure! Here is my answer:\n{\"decision\": true, \"reasoning\": \"ok\"}\nHope that helps."
	got, err := ExtractJSONObject(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"decision": true, "reasoning": "ok"}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	if _, err := ExtractJSONObject("I cannot decide."); err == nil {
		t.Fatal("expected error for object-free text")
	}
}
