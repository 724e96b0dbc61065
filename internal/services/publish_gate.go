package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/observability"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

type GateOutcome string

const (
	GatePublished        GateOutcome = "published"
	GateAlreadyPublished GateOutcome = "already_published"
	GateNotReady         GateOutcome = "not_ready"
	GateNoQuestions      GateOutcome = "no_questions"
)

type GateResult struct {
	Outcome         GateOutcome `json:"outcome"`
	Published       bool        `json:"published"`
	QuestionsCount  int64       `json:"questions_count"`
	PendingSegments []int       `json:"pending_segments,omitempty"`
}

// PublishGate is the only writer of Course.Published.
type PublishGate interface {
	Check(ctx context.Context, courseID uuid.UUID) (*GateResult, error)
}

type publishGate struct {
	log          *logger.Logger
	courseRepo   repos.CourseRepo
	segRepo      repos.SegmentRepo
	questionRepo repos.QuestionRepo
	progress     ProgressService
	notifier     CourseNotifier
}

func NewPublishGate(
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	segRepo repos.SegmentRepo,
	questionRepo repos.QuestionRepo,
	progress ProgressService,
	notifier CourseNotifier,
) PublishGate {
	if notifier == nil {
		notifier = NewCourseNotifier(nil)
	}
	return &publishGate{
		log:          baseLog.With("service", "PublishGate"),
		courseRepo:   courseRepo,
		segRepo:      segRepo,
		questionRepo: questionRepo,
		progress:     progress,
		notifier:     notifier,
	}
}

func (g *publishGate) Check(ctx context.Context, courseID uuid.UUID) (*GateResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	course, err := g.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	if course.Published {
		return &GateResult{Outcome: GateAlreadyPublished, Published: true}, nil
	}

	segs, err := g.segRepo.ListSegments(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	pending := make([]int, 0)
	for _, s := range segs {
		if s.Status != types.SegmentCompleted {
			pending = append(pending, s.SegmentIndex)
		}
	}
	if len(segs) == 0 || len(pending) > 0 {
		observability.Current().IncGate(string(GateNotReady))
		return &GateResult{Outcome: GateNotReady, PendingSegments: pending}, nil
	}

	g.report(ctx, course, types.StageQualityVerification, 0, "Verifying generated questions")
	count, err := g.questionRepo.CountByCourse(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if count == 0 {
		g.log.Error("All segments completed but no questions were persisted; leaving course unpublished",
			"course_id", courseID,
			"segments", len(segs),
		)
		g.report(ctx, course, types.StageFailed, 0, "No questions were generated")
		observability.Current().IncGate(string(GateNoQuestions))
		return &GateResult{Outcome: GateNoQuestions}, nil
	}

	g.report(ctx, course, types.StageQualityVerification, 1, "Questions verified")
	g.report(ctx, course, types.StageStorage, 0, "Publishing course")
	flipped, err := g.courseRepo.MarkPublished(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("mark published: %w", err)
	}
	if !flipped {
		return &GateResult{Outcome: GateAlreadyPublished, Published: true, QuestionsCount: count}, nil
	}

	g.log.Info("Course published", "course_id", courseID, "questions", count)
	observability.Current().IncGate(string(GatePublished))
	g.report(ctx, course, types.StageCompleted, 1, "Course published")
	g.notifier.CoursePublished(ctx, course, count)
	return &GateResult{Outcome: GatePublished, Published: true, QuestionsCount: count}, nil
}

func (g *publishGate) report(ctx context.Context, course *types.Course, stage types.ProgressStage, p float64, step string) {
	if g.progress == nil || course.ProcessingSessionID == nil {
		return
	}
	if _, err := g.progress.Report(ctx, ProgressUpdate{
		CourseID:      course.ID,
		SessionID:     *course.ProcessingSessionID,
		Stage:         stage,
		StageProgress: p,
		Step:          step,
	}); err != nil {
		g.log.Warn("Progress report failed", "course_id", course.ID, "stage", stage, "error", err)
	}
}
