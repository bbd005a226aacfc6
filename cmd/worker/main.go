package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"verifhir/internal/app"
	"verifhir/internal/audit"
	"verifhir/internal/httputil"
	"verifhir/internal/queue"
)

func main() {
	deps, err := app.Build(app.Options{WithLLM: true, WithQueue: true})
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("audit worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeAudit, func(ctx context.Context, task queue.Task) error {
			return handleAudit(ctx, deps, task)
		})
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, fmt.Sprintf(":%d", deps.Config.Port), "worker")
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil {
		deps.Log.Error("audit worker stopped", "err", err)
		os.Exit(1)
	}
}

// handleAudit runs one audit task. A task that can never succeed (bad
// payload, unusable IG export) is dropped instead of returned for retry.
func handleAudit(ctx context.Context, deps app.Deps, task queue.Task) error {
	log := deps.Log.With("task_id", task.ID)
	p, err := queue.DecodeAudit(task)
	if err != nil {
		log.Error("dropping audit task", "err", err)
		return nil
	}
	client, err := deps.LLMFor(p.Model)
	if err != nil {
		return err
	}
	res, err := audit.Run(ctx, log, client, audit.Options{
		ArchivePath: p.ArchivePath,
		OutputDir:   p.OutputDir,
		MaxPages:    deps.Config.MaxPages,
		BatchSize:   deps.Config.LLMBatchSize,
	})
	if audit.IsStructural(err) {
		log.Error("dropping audit task: not a usable IG export", "archive", p.ArchivePath, "err", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("audit %s: %w", p.ArchivePath, err)
	}
	log.Info("report written", "report", res.ReportPath, "run_id", res.RunID)
	return nil
}
