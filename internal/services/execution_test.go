package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/provider"
	"github.com/minseok/loom/internal/repository"
	"github.com/minseok/loom/internal/strategy"
)

// scriptedInvoker replays canned model responses in order.
type scriptedInvoker struct {
	mu        sync.Mutex
	responses []string
}

func (s *scriptedInvoker) Invoke(_ context.Context, _ *provider.InvokeRequest) (*provider.InvokeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	text := s.responses[0]
	s.responses = s.responses[1:]
	return &provider.InvokeResponse{
		Text:  text,
		Model: "test-model",
		Usage: provider.Usage{PromptTokens: 8, CompletionTokens: 4, TotalTokens: 12},
	}, nil
}

type testHarness struct {
	svc   *ExecutionService
	wfs   *repository.MemoryWorkflowRepository
	tasks *repository.MemoryTaskRepository
}

func newTestHarness(t *testing.T, inv provider.Invoker) *testHarness {
	t.Helper()
	wfs := repository.NewMemoryWorkflowRepository()
	agents := repository.NewMemoryAgentRepository()
	execs := repository.NewMemoryExecutionRepository()
	tasks := repository.NewMemoryTaskRepository()

	interp := engine.NewInterpreter(strategy.Defaults(inv, nil), execs, tasks, agents, engine.NewEventBus(), nil)
	svc := NewExecutionService(wfs, execs, tasks, interp,
		NewRegistry(), NewConcurrencyLimiter(ConcurrencyLimits{}), nil)
	t.Cleanup(func() { svc.Close() })

	return &testHarness{svc: svc, wfs: wfs, tasks: tasks}
}

func (h *testHarness) waitForStatus(t *testing.T, execID string, want engine.ExecutionStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		state, err := h.svc.GetExecutionStatus(context.Background(), execID)
		return err == nil && state.Status == want
	}, 3*time.Second, 5*time.Millisecond, "execution never reached %s", want)
}

func (h *testHarness) waitForPendingInput(t *testing.T, execID string) *engine.PendingInput {
	t.Helper()
	var pending *engine.PendingInput
	require.Eventually(t, func() bool {
		state, err := h.svc.GetExecutionStatus(context.Background(), execID)
		if err != nil || state.PendingInput == nil {
			return false
		}
		pending = state.PendingInput
		return true
	}, 3*time.Second, 5*time.Millisecond, "execution never surfaced a pending input")
	return pending
}

func blogWorkflow() *engine.Workflow {
	return &engine.Workflow{
		ID:   "wf-blog",
		Name: "Blog pipeline",
		Configuration: engine.GraphConfig{
			Nodes: []engine.Node{
				{ID: "start", Type: engine.NodeTypeTrigger},
				{ID: "ask", Type: engine.NodeTypeInput, Config: map[string]any{
					"fields": []any{map[string]any{"key": "topic", "label": "Topic"}},
				}},
				{ID: "write", Type: engine.NodeTypeAction, Label: "Write the post"},
				{ID: "publish", Type: engine.NodeTypeOutput},
			},
			Edges: []engine.Edge{
				{ID: "e1", Source: "start", Target: "ask"},
				{ID: "e2", Source: "ask", Target: "write"},
				{ID: "e3", Source: "write", Target: "publish"},
			},
		},
	}
}

func TestExecutionService_RunWithHumanInput(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		"starting the blog pipeline", // trigger
		"a draft about goroutine leaks", // action: generate
		"APPROVED",                      // action: review
		"published",                     // output
	}}
	h := newTestHarness(t, inv)
	require.NoError(t, h.wfs.Create(context.Background(), blogWorkflow()))

	execID, err := h.svc.StartExecution(context.Background(), "wf-blog", nil)
	require.NoError(t, err)

	pending := h.waitForPendingInput(t, execID)
	assert.Equal(t, "ask", pending.NodeID)
	assert.Equal(t, "text", pending.Type)

	// While parked the execution is still running.
	state, err := h.svc.GetExecutionStatus(context.Background(), execID)
	require.NoError(t, err)
	assert.Equal(t, engine.ExecutionRunning, state.Status)
	assert.Equal(t, "ask", state.ActiveNodeID)

	var verr *engine.ValidationError
	err = h.svc.ProvideInput(execID, "  ")
	require.ErrorAs(t, err, &verr, "blank text must be rejected")

	require.NoError(t, h.svc.ProvideInput(execID, "goroutine leaks"))
	h.waitForStatus(t, execID, engine.ExecutionCompleted)

	tasks, err := h.svc.ListTasks(context.Background(), execID)
	require.NoError(t, err)
	require.Len(t, tasks, 3, "trigger leaves no task record")

	assert.Equal(t, "ask", tasks[0].NodeID)
	assert.Equal(t, "topic: goroutine leaks", tasks[0].Output)
	assert.Equal(t, 0, tasks[0].ModelCalls, "supplied input needs no model call")

	assert.Equal(t, "write", tasks[1].NodeID)
	assert.Equal(t, "a draft about goroutine leaks", tasks[1].Output)
	assert.Equal(t, 2, tasks[1].ModelCalls, "generate plus review")

	assert.Equal(t, "publish", tasks[2].NodeID)
	assert.Equal(t, 1, tasks[2].ModelCalls)
	for _, task := range tasks {
		assert.Equal(t, engine.TaskCompleted, task.Status)
	}
}

func TestExecutionService_PresuppliedParametersSkipPark(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		"starting", "draft", "APPROVED", "published",
	}}
	h := newTestHarness(t, inv)
	require.NoError(t, h.wfs.Create(context.Background(), blogWorkflow()))

	execID, err := h.svc.StartExecution(context.Background(), "wf-blog",
		map[string]any{"topic": "error wrapping"})
	require.NoError(t, err)

	h.waitForStatus(t, execID, engine.ExecutionCompleted)

	tasks, err := h.svc.ListTasks(context.Background(), execID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "topic: error wrapping", tasks[0].Output)
}

func TestExecutionService_ConditionFailureRecordsModelCalls(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{
		"starting",    // trigger
		"maybe",       // condition: unparsable
		"still maybe", // condition retry: unparsable
	}}
	h := newTestHarness(t, inv)

	wf := &engine.Workflow{
		ID: "wf-cond",
		Configuration: engine.GraphConfig{
			Nodes: []engine.Node{
				{ID: "start", Type: engine.NodeTypeTrigger},
				{ID: "check", Type: engine.NodeTypeCondition},
				{ID: "yes", Type: engine.NodeTypeOutput},
				{ID: "no", Type: engine.NodeTypeOutput},
			},
			Edges: []engine.Edge{
				{ID: "e1", Source: "start", Target: "check"},
				{ID: "e2", Source: "check", Target: "yes", SourcePort: engine.PortTrue},
				{ID: "e3", Source: "check", Target: "no", SourcePort: engine.PortFalse},
			},
		},
	}
	require.NoError(t, h.wfs.Create(context.Background(), wf))

	execID, err := h.svc.StartExecution(context.Background(), "wf-cond", nil)
	require.NoError(t, err)

	h.waitForStatus(t, execID, engine.ExecutionFailed)

	state, err := h.svc.GetExecutionStatus(context.Background(), execID)
	require.NoError(t, err)
	assert.Contains(t, state.Error, "check")

	tasks, err := h.svc.ListTasks(context.Background(), execID)
	require.NoError(t, err)
	require.Len(t, tasks, 1, "only the condition visit left a record")
	assert.Equal(t, engine.TaskFailed, tasks[0].Status)
	assert.Equal(t, 2, tasks[0].ModelCalls, "the retry counts toward the ledger")
}

func TestExecutionService_CancelWhileParked(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{"starting"}}
	h := newTestHarness(t, inv)
	require.NoError(t, h.wfs.Create(context.Background(), blogWorkflow()))

	execID, err := h.svc.StartExecution(context.Background(), "wf-blog", nil)
	require.NoError(t, err)

	h.waitForPendingInput(t, execID)
	require.NoError(t, h.svc.CancelExecution(context.Background(), execID))
	h.waitForStatus(t, execID, engine.ExecutionCancelled)
}

func TestExecutionService_UnknownWorkflow(t *testing.T) {
	h := newTestHarness(t, &scriptedInvoker{})
	_, err := h.svc.StartExecution(context.Background(), "ghost", nil)
	assert.True(t, IsNotFound(err), "got %v", err)
}

func TestExecutionService_InvalidGraphRejectedUpfront(t *testing.T) {
	h := newTestHarness(t, &scriptedInvoker{})
	wf := &engine.Workflow{
		ID: "wf-bad",
		Configuration: engine.GraphConfig{
			Nodes: []engine.Node{{ID: "a", Type: engine.NodeTypeAction}},
		},
	}
	require.NoError(t, h.wfs.Create(context.Background(), wf))

	_, err := h.svc.StartExecution(context.Background(), "wf-bad", nil)
	assert.ErrorIs(t, err, engine.ErrNoTrigger)
}

func TestExecutionService_ProvideInputToFinishedRun(t *testing.T) {
	inv := &scriptedInvoker{responses: []string{"starting", "draft", "APPROVED", "published"}}
	h := newTestHarness(t, inv)
	require.NoError(t, h.wfs.Create(context.Background(), blogWorkflow()))

	execID, err := h.svc.StartExecution(context.Background(), "wf-blog",
		map[string]any{"topic": "testing"})
	require.NoError(t, err)
	h.waitForStatus(t, execID, engine.ExecutionCompleted)

	// The handle is unregistered once the run finishes.
	require.Eventually(t, func() bool {
		return h.svc.ProvideInput(execID, "late") != nil
	}, 3*time.Second, 5*time.Millisecond)
}
