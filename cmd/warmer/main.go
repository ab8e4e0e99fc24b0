package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/fireroute/internal/adapters/nats"
	"github.com/samirrijal/fireroute/internal/app"
	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/pkg/config"
	"github.com/samirrijal/fireroute/internal/pkg/logging"
	"github.com/samirrijal/fireroute/internal/workflows"
)

const warmWorkflowID = "fireroute-warm-perimeters"

func main() {
	cfg, err := config.Load("fireroute-warmer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer stores.Close()

	// The warmer only fills the perimeter cache; it never plans routes or publishes.
	svc := app.NewServices(cfg, stores, nil, logger)

	// On-demand warm-ups queued by the API
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, logger)
	if err != nil {
		slog.Warn("nats unavailable, on-demand warm-ups disabled", "error", err)
	} else {
		defer sub.Close()
		err := sub.SubscribeWarmRequests(ctx, func(ctx context.Context, req *domain.WarmRequest) error {
			return svc.Perimeters.Warm(ctx, req)
		})
		if err != nil {
			log.Fatalf("subscribe warm requests: %v", err)
		}
	}

	// Scheduled warm-ups through Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.WarmPerimetersWorkflow)
	w.RegisterActivity(&workflows.WarmActivities{Perimeters: svc.Perimeters})

	regions := app.WarmRegions(cfg)
	if len(regions) > 0 {
		// A running cron workflow with the same ID is reused, not duplicated.
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:                       warmWorkflowID,
			TaskQueue:                cfg.Temporal.TaskQueue,
			CronSchedule:             cfg.Temporal.WarmSchedule,
			WorkflowRunTimeout:       cfg.Temporal.WarmTimeout,
		}, workflows.WarmPerimetersWorkflow, workflows.WarmInput{Regions: regions})
		if err != nil {
			log.Fatalf("start warm-up schedule: %v", err)
		}
		slog.Info("warm-up schedule active", "workflow_id", run.GetID(), "run_id", run.GetRunID(),
			"schedule", cfg.Temporal.WarmSchedule, "regions", len(regions))
	} else {
		slog.Info("no warm regions configured, serving on-demand warm-ups only")
	}

	slog.Info("warmer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	<-ctx.Done()
	w.Stop()
	slog.Info("warmer stopped")
}
