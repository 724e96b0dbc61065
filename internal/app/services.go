package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/vidcourse-backend/internal/data/graph"
	"github.com/yungbote/vidcourse-backend/internal/jobs/worker"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/realtime"
	"github.com/yungbote/vidcourse-backend/internal/services"
	"github.com/yungbote/vidcourse-backend/internal/temporalx"
)

type Services struct {
	Notifier   services.CourseNotifier
	Progress   services.ProgressService
	Reaper     services.Reaper
	Gate       services.PublishGate
	Scheduler  services.Scheduler
	Courses    services.CourseService
	Dispatcher *temporalx.CourseDispatcher
	Worker     *worker.Worker
}

// wireServices builds the domain services. base bounds every background
// pipeline call the scheduler starts.
func wireServices(base context.Context, db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, hub *realtime.Hub) Services {
	log.Info("Wiring services...")

	var relay realtime.Relay
	if c.Bus != nil {
		relay = c.Bus
	}
	notifier := services.NewCourseNotifier(realtime.NewEmitter(log, hub, relay))
	progress := services.NewProgressService(log, r.Progress, notifier, services.LoadStageWeights(log, cfg.StageWeightsPath))
	reaper := services.NewReaper(log, r.Segment, notifier, cfg.ProcessingTimeout, cfg.SegmentMaxAttempts)
	gate := services.NewPublishGate(log, r.Course, r.Segment, r.Question, progress, notifier)

	scheduler := services.NewScheduler(base, services.SchedulerDeps{
		DB:           db,
		Log:          log,
		CourseRepo:   r.Course,
		SegmentRepo:  r.Segment,
		QuestionRepo: r.Question,
		Reaper:       reaper,
		Gate:         gate,
		Progress:     progress,
		Notifier:     notifier,
		Pipeline:     c.Pipeline,
		Concepts:     graph.NewCourseConceptGraph(c.Neo4j, log),
	}, services.SchedulerConfig{MaxAttempts: cfg.SegmentMaxAttempts})

	var (
		dispatcher *temporalx.CourseDispatcher
		dispatch   services.CourseDispatcher
	)
	if c.Temporal != nil {
		dispatcher = temporalx.NewCourseDispatcher(log, c.Temporal, temporalx.LoadConfig().TaskQueue)
		dispatch = dispatcher
	}

	courses := services.NewCourseService(db, log, services.CourseServiceConfig{
		SegmentLengthSeconds:    cfg.SegmentLengthSeconds,
		MaxVideoDurationSeconds: cfg.MaxVideoDurationSeconds,
	}, r.Course, r.Segment, r.Question, progress, dispatch)

	w := worker.NewWorker(log, worker.Config{
		SweepInterval:  cfg.SweepInterval,
		ReaperInterval: cfg.ReaperInterval,
		Concurrency:    cfg.WorkerConcurrency,
		BatchSize:      cfg.WorkerBatchSize,
	}, r.Segment, scheduler, reaper)

	return Services{
		Notifier:   notifier,
		Progress:   progress,
		Reaper:     reaper,
		Gate:       gate,
		Scheduler:  scheduler,
		Courses:    courses,
		Dispatcher: dispatcher,
		Worker:     w,
	}
}
