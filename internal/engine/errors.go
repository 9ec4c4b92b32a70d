package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTrigger means the workflow graph has no entry point.
	ErrNoTrigger = errors.New("workflow has no trigger node")
	// ErrNotWaiting means input was supplied while no input node is parked.
	ErrNotWaiting = errors.New("execution is not waiting for input")
	// ErrCancelled unparks a waiting input node when the run is cancelled.
	ErrCancelled = errors.New("execution cancelled")
)

// GraphError reports a structural problem with the workflow graph.
// It is fatal to the execution and never retried.
type GraphError struct {
	Reason string
}

func (e *GraphError) Error() string {
	return "graph structure: " + e.Reason
}

// NodeError wraps a failure raised while processing a specific node, so the
// caller can surface which node broke and resume by editing and rerunning.
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// ValidationError rejects a supplied input value before resumption. It is
// recoverable: the same pending-input request stays surfaced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input for field %q: %s", e.Field, e.Reason)
}

// PersistError reports a failed storage write. It halts the run-loop
// immediately: continuing in memory would silently break the durability
// contract.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
