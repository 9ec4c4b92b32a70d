package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// StrategyResult is what a node strategy hands back to the interpreter:
// the produced message, a context delta (the interpreter is the sole owner
// that applies it), and invocation metadata for the task ledger.
type StrategyResult struct {
	Message      string
	ContextDelta map[string]any
	Decision     *bool // set by condition strategies only
	ModelName    string
	ModelCalls   int
	TokenUsage   TokenUsage
}

// Strategy executes one node type. Implementations receive a read-only
// snapshot of the run context and must not retain or mutate it. On error a
// non-nil result may still be returned to carry invocation metadata
// (model calls made, token usage) into the task ledger.
type Strategy interface {
	Execute(ctx context.Context, node *Node, agent *Agent, runCtx map[string]any) (*StrategyResult, error)
}

// Storage ports. Write failures are fatal to the run: the interpreter never
// continues past a step whose transition could not be made durable.
type ExecutionStore interface {
	Update(ctx context.Context, exec *Execution) error
}

type TaskStore interface {
	Create(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
}

type AgentStore interface {
	Get(ctx context.Context, id string) (*Agent, error)
	Update(ctx context.Context, agent *Agent) error
}

// Interpreter walks a workflow graph from its trigger node to a terminal
// outcome, one node in flight at a time.
type Interpreter struct {
	strategies map[NodeType]Strategy
	executions ExecutionStore
	tasks      TaskStore
	agents     AgentStore
	bus        *EventBus
	log        *slog.Logger
}

func NewInterpreter(strategies map[NodeType]Strategy, executions ExecutionStore, tasks TaskStore, agents AgentStore, bus *EventBus, log *slog.Logger) *Interpreter {
	if log == nil {
		log = slog.Default()
	}
	return &Interpreter{
		strategies: strategies,
		executions: executions,
		tasks:      tasks,
		agents:     agents,
		bus:        bus,
		log:        log,
	}
}

// Run drives one execution to completion, failure, or cancellation. The
// workflow is an immutable snapshot; edits during a run are not observed.
func (it *Interpreter) Run(ctx context.Context, wf *Workflow, exec *Execution, handle *ExecutionHandle) error {
	graph := &wf.Configuration

	runCtx := make(map[string]any, len(exec.Parameters))
	for k, v := range exec.Parameters {
		runCtx[k] = v
	}

	exec.Status = ExecutionRunning
	if err := it.executions.Update(ctx, exec); err != nil {
		return &PersistError{Op: "execution transition", Err: err}
	}
	it.publish(exec, "", EventExecutionStarted, nil)

	trigger := FindTrigger(graph.Nodes)
	if trigger == nil {
		return it.failExecution(ctx, exec, "", ErrNoTrigger)
	}

	currentID := trigger.ID
	visited := make(map[string]bool, len(graph.Nodes))

	for currentID != "" {
		if handle.Cancelled() || ctx.Err() != nil {
			return it.cancelExecution(ctx, exec)
		}

		node := graph.NodeByID(currentID)
		if node == nil {
			// End of explored path on a malformed graph: normal termination.
			break
		}
		handle.SetActiveNode(node.ID)

		// The trigger is the entry step: it seeds the run but gets no
		// node-visit record; the task ledger starts at the first step
		// after entry.
		var task *Task
		if node.Type != NodeTypeTrigger {
			task = it.newTask(exec, node, runCtx)
			if err := it.tasks.Create(ctx, task); err != nil {
				return &PersistError{Op: "task create", Err: err}
			}
			task.Transition(TaskRunning, time.Now())
			if err := it.tasks.Update(ctx, task); err != nil {
				return &PersistError{Op: "task transition", Err: err}
			}
		}
		it.publish(exec, node.ID, EventNodeStarted, nil)

		if node.Type == NodeTypeInput {
			if err := it.collectInput(ctx, exec, node, runCtx, handle); err != nil {
				if errors.Is(err, ErrCancelled) {
					return it.cancelExecution(ctx, exec)
				}
				return it.failNode(ctx, exec, task, node, nil, err)
			}
			// Time parked on a human is not execution time; restart the
			// task clock so DurationMS reflects only the node's own work.
			if task != nil {
				task.StartedAt = time.Now()
			}
		}

		agent := it.resolveAgent(ctx, node)

		strategy, ok := it.strategies[node.Type]
		if !ok {
			return it.failNode(ctx, exec, task, node, nil, fmt.Errorf("no strategy for node type %q", node.Type))
		}

		result, err := strategy.Execute(ctx, node, agent, snapshot(runCtx))
		if err != nil {
			return it.failNode(ctx, exec, task, node, result, err)
		}

		for k, v := range result.ContextDelta {
			runCtx[k] = v
		}

		if task != nil {
			now := time.Now()
			task.Transition(TaskCompleted, now)
			task.CompletedAt = &now
			task.DurationMS = now.Sub(task.StartedAt).Milliseconds()
			task.Output = result.Message
			task.ModelName = result.ModelName
			task.ModelCalls = result.ModelCalls
			task.TokenUsage = result.TokenUsage
			if err := it.tasks.Update(ctx, task); err != nil {
				return &PersistError{Op: "task completion", Err: err}
			}
		}
		it.publish(exec, node.ID, EventNodeCompleted, nil)

		it.updateAgentMemory(ctx, node, agent, result.Message)

		visited[node.ID] = true

		edges := Outgoing(node.ID, graph.Edges)
		if len(edges) == 0 {
			// Natural end of the path.
			break
		}

		next := it.selectNext(node, edges, result)
		if visited[next.Target] {
			// Cycle-break: a repeat visit ends the run instead of looping.
			it.log.Debug("revisit detected, ending run", "execution_id", exec.ID, "node_id", next.Target)
			break
		}
		currentID = next.Target
	}

	now := time.Now()
	exec.Status = ExecutionCompleted
	exec.CompletedAt = &now
	if err := it.executions.Update(ctx, exec); err != nil {
		return &PersistError{Op: "execution completion", Err: err}
	}
	handle.SetActiveNode("")
	it.publish(exec, "", EventExecutionCompleted, nil)
	return nil
}

// selectNext resolves which outgoing edge to follow. Condition nodes route
// on the true/false port matching the produced decision, falling back to
// the first edge of any port when no matching-port edge exists. All other
// nodes follow the first edge in list order; parallel fan-out is out of
// scope for this engine.
func (it *Interpreter) selectNext(node *Node, edges []Edge, result *StrategyResult) *Edge {
	if node.Type == NodeTypeCondition {
		port := PortFalse
		if result.Decision != nil && *result.Decision {
			port = PortTrue
		}
		if e := SelectEdge(edges, port); e != nil {
			return e
		}
	}
	return &edges[0]
}

// collectInput parks the run until the run context holds everything the
// input node needs. Validation failures during resumption re-surface the
// same pending request without touching task or execution state.
func (it *Interpreter) collectInput(ctx context.Context, exec *Execution, node *Node, runCtx map[string]any, handle *ExecutionHandle) error {
	for !inputSatisfied(node, runCtx) {
		pending := node.PendingDescriptor()
		handle.PostInput(pending)
		it.publish(exec, node.ID, EventInputRequested, map[string]any{"pending": pending})

		value, err := handle.AwaitInput()
		if err != nil {
			return err
		}

		if node.IsMultiInput() {
			record, ok := value.(map[string]any)
			if !ok {
				continue
			}
			for k, v := range record {
				runCtx[k] = v
			}
		} else {
			runCtx[node.TaskKey()] = value
		}
	}
	return nil
}

func inputSatisfied(node *Node, runCtx map[string]any) bool {
	if node.IsMultiInput() {
		fields := node.InputFields()
		if len(fields) == 0 {
			return true
		}
		for _, f := range fields {
			if _, ok := runCtx[f.Key]; !ok {
				return false
			}
		}
		return true
	}
	_, ok := runCtx[node.TaskKey()]
	return ok
}

// resolveAgent loads the node's agent, if any. A dangling agent reference
// degrades to generic behavior rather than failing the node.
func (it *Interpreter) resolveAgent(ctx context.Context, node *Node) *Agent {
	if node.AgentID == "" || it.agents == nil {
		return nil
	}
	agent, err := it.agents.Get(ctx, node.AgentID)
	if err != nil {
		it.log.Warn("agent lookup failed, using generic behavior", "agent_id", node.AgentID, "err", err)
		return nil
	}
	return agent
}

// updateAgentMemory writes the advisory working-memory side effect back to
// the agent record. Input nodes are excluded, and a write failure is logged
// rather than failing the run: this is cache, not correctness state.
func (it *Interpreter) updateAgentMemory(ctx context.Context, node *Node, agent *Agent, message string) {
	if agent == nil || node.Type == NodeTypeInput {
		return
	}
	var facts map[string]any
	if err := json.Unmarshal([]byte(message), &facts); err != nil {
		facts = nil
	}
	if !agent.ApplyMemory(message, facts) {
		return
	}
	if err := it.agents.Update(ctx, agent); err != nil {
		it.log.Warn("agent memory update failed", "agent_id", agent.ID, "err", err)
	}
}

func (it *Interpreter) failNode(ctx context.Context, exec *Execution, task *Task, node *Node, result *StrategyResult, cause error) error {
	nodeErr := &NodeError{NodeID: node.ID, Err: cause}

	if task != nil {
		now := time.Now()
		task.Transition(TaskFailed, now)
		task.CompletedAt = &now
		task.DurationMS = now.Sub(task.StartedAt).Milliseconds()
		task.Output = cause.Error()
		if result != nil {
			task.ModelName = result.ModelName
			task.ModelCalls = result.ModelCalls
			task.TokenUsage = result.TokenUsage
		}
		if err := it.tasks.Update(ctx, task); err != nil {
			return &PersistError{Op: "task failure", Err: err}
		}
	}
	it.publish(exec, node.ID, EventNodeFailed, map[string]any{"error": cause.Error()})

	return it.failExecution(ctx, exec, node.ID, nodeErr)
}

func (it *Interpreter) failExecution(ctx context.Context, exec *Execution, nodeID string, cause error) error {
	now := time.Now()
	exec.Status = ExecutionFailed
	exec.Error = cause.Error()
	exec.CompletedAt = &now
	if err := it.executions.Update(ctx, exec); err != nil {
		return &PersistError{Op: "execution failure", Err: err}
	}
	it.publish(exec, nodeID, EventExecutionFailed, map[string]any{"error": cause.Error()})
	return cause
}

func (it *Interpreter) cancelExecution(ctx context.Context, exec *Execution) error {
	now := time.Now()
	exec.Status = ExecutionCancelled
	exec.CompletedAt = &now
	if err := it.executions.Update(ctx, exec); err != nil {
		return &PersistError{Op: "execution cancellation", Err: err}
	}
	it.publish(exec, "", EventExecutionCancelled, nil)
	return nil
}

func (it *Interpreter) newTask(exec *Execution, node *Node, runCtx map[string]any) *Task {
	description := node.Label
	if description == "" {
		description = string(node.Type) + " " + node.ID
	}
	task := &Task{
		ID:          uuid.NewString(),
		ExecutionID: exec.ID,
		NodeID:      node.ID,
		AgentID:     node.AgentID,
		Description: description,
		Input:       snapshot(runCtx),
		StartedAt:   time.Now(),
	}
	task.Transition(TaskPending, task.StartedAt)
	return task
}

func (it *Interpreter) publish(exec *Execution, nodeID string, typ EventType, payload map[string]any) {
	if it.bus == nil {
		return
	}
	it.bus.Publish(Event{
		ExecutionID: exec.ID,
		WorkflowID:  exec.WorkflowID,
		NodeID:      nodeID,
		Type:        typ,
		Payload:     payload,
		Timestamp:   time.Now(),
	})
}

func snapshot(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
