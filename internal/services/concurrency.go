package services

import (
	"context"
	"sync"
)

// ConcurrencyLimits caps simultaneously running executions.
type ConcurrencyLimits struct {
	GlobalMax   int
	PerWorkflow int
}

// ConcurrencyLimiter uses channel-based counting semaphores at two levels:
// global and per-workflow.
type ConcurrencyLimiter struct {
	global      chan struct{}
	perWorkflow map[string]chan struct{}
	mu          sync.Mutex
	limits      ConcurrencyLimits
}

func NewConcurrencyLimiter(limits ConcurrencyLimits) *ConcurrencyLimiter {
	if limits.GlobalMax <= 0 {
		limits.GlobalMax = 10
	}
	if limits.PerWorkflow <= 0 {
		limits.PerWorkflow = 3
	}
	return &ConcurrencyLimiter{
		global:      make(chan struct{}, limits.GlobalMax),
		perWorkflow: make(map[string]chan struct{}),
		limits:      limits,
	}
}

// Acquire blocks until both global and per-workflow slots are available,
// or returns the context error.
func (c *ConcurrencyLimiter) Acquire(ctx context.Context, workflowID string) error {
	select {
	case c.global <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	wfCh := c.workflowChan(workflowID)
	select {
	case wfCh <- struct{}{}:
		return nil
	case <-ctx.Done():
		<-c.global
		return ctx.Err()
	}
}

// Release frees the slots taken by Acquire.
func (c *ConcurrencyLimiter) Release(workflowID string) {
	<-c.workflowChan(workflowID)
	<-c.global
}

func (c *ConcurrencyLimiter) workflowChan(workflowID string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.perWorkflow[workflowID]
	if !ok {
		ch = make(chan struct{}, c.limits.PerWorkflow)
		c.perWorkflow[workflowID] = ch
	}
	return ch
}
