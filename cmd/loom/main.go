package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/minseok/loom/internal/api"
	"github.com/minseok/loom/internal/config"
	"github.com/minseok/loom/internal/db"
	"github.com/minseok/loom/internal/engine"
	"github.com/minseok/loom/internal/provider"
	"github.com/minseok/loom/internal/repository"
	"github.com/minseok/loom/internal/services"
	"github.com/minseok/loom/internal/strategy"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve()
		return
	}
	fmt.Println("loom v0.1.0")
	fmt.Println("Usage: loom serve")
}

func serve() {
	godotenv.Load()

	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log := slog.Default()

	var (
		workflowRepo repository.WorkflowRepository
		agentRepo    repository.AgentRepository
		execRepo     repository.ExecutionRepository
		taskRepo     repository.TaskRepository
	)

	if cfg.Database.URL != "" {
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("database error", "err", err)
			os.Exit(1)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			slog.Error("migration error", "err", err)
			os.Exit(1)
		}
		workflowRepo = repository.NewPersistentWorkflowRepository(database)
		agentRepo = repository.NewPersistentAgentRepository(database)
		execRepo = repository.NewPersistentExecutionRepository(database)
		taskRepo = repository.NewPersistentTaskRepository(database)
		log.Info("using postgres storage")
	} else {
		workflowRepo = repository.NewMemoryWorkflowRepository()
		agentRepo = repository.NewMemoryAgentRepository()
		execRepo = repository.NewMemoryExecutionRepository()
		taskRepo = repository.NewMemoryTaskRepository()
		log.Warn("no database configured, execution history will not survive restarts")
	}

	invoker := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Model, log)
	bus := engine.NewEventBus()
	interp := engine.NewInterpreter(strategy.Defaults(invoker, log), execRepo, taskRepo, agentRepo, bus, log)

	registry := services.NewRegistry()
	limiter := services.NewConcurrencyLimiter(services.ConcurrencyLimits{
		GlobalMax:   cfg.Concurrency.GlobalMax,
		PerWorkflow: cfg.Concurrency.PerWorkflow,
	})
	execSvc := services.NewExecutionService(workflowRepo, execRepo, taskRepo, interp, registry, limiter, log)
	defer execSvc.Close()

	scheduler := services.NewScheduler(execSvc, workflowRepo, log)
	if err := scheduler.Sync(ctx); err != nil {
		slog.Error("scheduler error", "err", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	server := api.NewServer(execSvc, workflowRepo, agentRepo, bus)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("loom listening", "addr", addr, "model", cfg.Provider.Model)
	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
