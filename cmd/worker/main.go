package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dontdude/tiobot/internal/config"
	"github.com/dontdude/tiobot/internal/domain"
	"github.com/dontdude/tiobot/internal/eval"
	"github.com/dontdude/tiobot/internal/platform/queue"
	"github.com/dontdude/tiobot/internal/render"
	"github.com/dontdude/tiobot/internal/worker"
)

// errAbandoned is rendered for invocations whose worker died before answering.
var errAbandoned = errors.New("invocation abandoned by its worker")

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	slog.Info("Starting tiobot worker...")

	if err := run(cfg); err != nil {
		slog.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Worker shut down")
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	tables, err := config.LoadTables(cfg.ResourcesDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := queue.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	q := queue.NewRedisQueue(rdb, queue.Options{
		Stream:         cfg.Stream,
		Group:          cfg.Group,
		ResultsChannel: cfg.ResultsChannel,
	})

	pipeline := eval.NewPipeline(cfg, tables)
	pool := worker.NewPool(cfg.WorkerConcurrency, pipeline.Dispatcher, cfg.JobTimeout, cfg.StartDeadline())

	jobs, err := q.Subscribe(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pipeline.Refresher.Run(gctx)
		return nil
	})

	g.Go(func() error {
		q.StartRecoveryRoutine(gctx, cfg.RecoveryInterval, cfg.RecoveryMaxAge, func(job domain.Job) domain.Response {
			return render.ErrorResponse(errAbandoned, render.ErrorContext{
				Usage:   render.Usage(cfg.CommandPrefix),
				Mention: job.Invocation.Mention,
			})
		})
		return nil
	})

	results := make(chan domain.JobResult, cfg.WorkerConcurrency)

	// Results are published and acked on a context that outlives shutdown so drained jobs
	// still reach their callers.
	g.Go(func() error {
		for result := range results {
			publish(context.WithoutCancel(gctx), q, result)
		}
		return nil
	})

	g.Go(func() error {
		// In-flight jobs finish on shutdown; each is still bounded by the pool's job timeout.
		pool.Start(context.WithoutCancel(gctx))
		defer close(results)
		defer pool.Stop()

		for job := range jobs {
			slog.Info("Invocation received", "jobID", job.ID, "userID", job.Invocation.UserID, "language", job.Invocation.Language)
			job.ResultCh = results
			pool.Submit(job)
		}
		return nil
	})

	return g.Wait()
}

func publish(ctx context.Context, q domain.JobQueue, result domain.JobResult) {
	if err := q.Broadcast(ctx, result); err != nil {
		slog.Error("Failed to broadcast result", "jobID", result.JobID, "error", err)
		return
	}
	if err := q.Acknowledge(ctx, result.RawID); err != nil {
		slog.Error("Failed to acknowledge job", "jobID", result.JobID, "error", err)
	}
}
