package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/vidcourse-backend/internal/platform/envutil"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/services"
	"github.com/yungbote/vidcourse-backend/internal/temporalx"
	"github.com/yungbote/vidcourse-backend/internal/temporalx/coursesegments"
)

type Runner struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	scheduler services.Scheduler
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, scheduler services.Scheduler) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("temporal worker missing scheduler")
	}
	return &Runner{log: log.With("component", "TemporalWorker"), tc: tc, scheduler: scheduler}, nil
}

// Start polls the task queue until ctx is done, retrying worker start while the
// frontend or namespace is still coming up.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := temporalx.LoadConfig()
	autoRegister := envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false)
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	err := temporalx.BackoffFromEnv("TEMPORAL_WORKER_START", 60).Do(ctx, func(attempt int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker(cfg)
		if err := w.Start(); err != nil {
			w.Stop()
			var missing *serviceerror.NamespaceNotFound
			if errors.As(err, &missing) && autoRegister {
				_ = temporalx.EnsureNamespace(ctx, cfg, r.log)
			}
			return err
		}
		go func() {
			<-ctx.Done()
			w.Stop()
		}()
		r.log.Info("Temporal worker started", "task_queue", cfg.TaskQueue, "attempts", attempt)
		return nil
	}, func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}, func(attempt int, err error) {
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", err)
	})
	if err != nil {
		return fmt.Errorf("start temporal worker (namespace=%s): %w", cfg.Namespace, err)
	}
	return nil
}

func (r *Runner) newWorker(cfg temporalx.Config) worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &coursesegments.Activities{Log: r.log, Scheduler: r.scheduler}
	w.RegisterWorkflowWithOptions(coursesegments.Workflow, workflow.RegisterOptions{Name: coursesegments.WorkflowName})
	w.RegisterActivityWithOptions(acts.Pass, activity.RegisterOptions{Name: coursesegments.ActivityPass})
	return w
}
