package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

type Config struct {
	SweepInterval  time.Duration
	ReaperInterval time.Duration
	Concurrency    int
	BatchSize      int
}

// Worker is the in-process trigger: it periodically runs a scheduler pass for
// every course that still has open segments, and reaps stuck segments on its
// own ticker.
type Worker struct {
	log       *logger.Logger
	cfg       Config
	segRepo   repos.SegmentRepo
	scheduler services.Scheduler
	reaper    services.Reaper
}

func NewWorker(baseLog *logger.Logger, cfg Config, segRepo repos.SegmentRepo, scheduler services.Scheduler, reaper services.Reaper) *Worker {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Second
	}
	if cfg.ReaperInterval <= 0 {
		cfg.ReaperInterval = 30 * time.Second
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Worker{
		log:       baseLog.With("component", "SegmentWorker"),
		cfg:       cfg,
		segRepo:   segRepo,
		scheduler: scheduler,
		reaper:    reaper,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting segment worker",
		"concurrency", w.cfg.Concurrency,
		"sweep_interval", w.cfg.SweepInterval.String(),
		"reaper_interval", w.cfg.ReaperInterval.String(),
	)
	go w.loop(ctx, "sweep", w.cfg.SweepInterval, func(ctx context.Context) {
		if _, err := w.Sweep(ctx); err != nil {
			w.log.Warn("Sweep failed", "error", err)
		}
	})
	if w.reaper != nil {
		go w.loop(ctx, "reaper", w.cfg.ReaperInterval, func(ctx context.Context) {
			if _, err := w.reaper.ReapAll(ctx); err != nil {
				w.log.Warn("Reap sweep failed", "error", err)
			}
		})
	}
}

func (w *Worker) loop(ctx context.Context, name string, every time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "loop", name)
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// Sweep runs one pass per open course, at most Concurrency at a time, and
// returns how many passes completed without error. One course failing does not stop the others.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	ids, err := w.segRepo.ListCoursesWithOpenSegments(dbctx.Context{Ctx: ctx}, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	var ran atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if w.runOne(gctx, id) {
				ran.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(ran.Load()), err
}

func (w *Worker) runOne(ctx context.Context, courseID uuid.UUID) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Scheduler pass panic", "course_id", courseID, "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	res, err := w.scheduler.RunPass(ctx, courseID)
	if err != nil {
		w.log.Warn("Scheduler pass failed", "course_id", courseID, "error", err)
		return false
	}
	if res.StartedSegment != nil {
		w.log.Debug("Sweep started segment", "course_id", courseID, "segment_index", *res.StartedSegment)
	}
	return true
}
