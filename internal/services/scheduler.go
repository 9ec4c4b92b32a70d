package services

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/repository"
)

// Scheduler starts executions automatically for workflows whose trigger
// node is schedule-typed with a cron expression in its config.
type Scheduler struct {
	cron      *cron.Cron
	svc       *ExecutionService
	workflows repository.WorkflowRepository
	log       *slog.Logger
}

func NewScheduler(svc *ExecutionService, workflows repository.WorkflowRepository, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron:      cron.New(),
		svc:       svc,
		workflows: workflows,
		log:       log,
	}
}

// Sync registers a cron entry per schedule-triggered workflow and starts
// the cron runner. Workflows without a parseable expression are skipped
// with a warning.
func (s *Scheduler) Sync(ctx context.Context) error {
	workflows, err := s.workflows.List(ctx)
	if err != nil {
		return err
	}

	for _, wf := range workflows {
		trigger := engine.FindTrigger(wf.Configuration.Nodes)
		if trigger == nil {
			continue
		}
		triggerType, _ := trigger.Config["triggerType"].(string)
		if triggerType != "schedule" {
			continue
		}
		expr, _ := trigger.Config["schedule"].(string)
		if expr == "" {
			continue
		}

		workflowID := wf.ID
		_, err := s.cron.AddFunc(expr, func() {
			execID, err := s.svc.StartExecution(context.Background(), workflowID, nil)
			if err != nil {
				s.log.Warn("scheduled execution failed to start", "workflow_id", workflowID, "err", err)
				return
			}
			s.log.Info("scheduled execution started", "workflow_id", workflowID, "execution_id", execID)
		})
		if err != nil {
			s.log.Warn("invalid schedule expression", "workflow_id", workflowID, "schedule", expr, "err", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron runner; entries already firing run to completion.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
