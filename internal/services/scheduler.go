package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/vidcourse-backend/internal/clients/pipeline"
	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/observability"
	"github.com/yungbote/vidcourse-backend/internal/platform/ctxutil"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

type PassStatus string

const (
	PassProcessing   PassStatus = "processing"
	PassAllCompleted PassStatus = "all_completed"
	PassNoWork       PassStatus = "no_work"
)

type PassResult struct {
	CourseID           uuid.UUID   `json:"course_id"`
	Status             PassStatus  `json:"status"`
	ProcessingSegments []int       `json:"processing_segments"`
	StartedSegment     *int        `json:"started_segment,omitempty"`
	BlockedSegment     *int        `json:"blocked_segment,omitempty"`
	Reaped             int         `json:"reaped"`
	Published          bool        `json:"published"`
	Gate               *GateResult `json:"gate,omitempty"`
}

// ConceptSink receives the concepts each completed segment introduced.
type ConceptSink interface {
	RecordSegment(ctx context.Context, seg *types.Segment, introduced []string) error
}

type SchedulerConfig struct {
	// MaxAttempts caps processing attempts per segment; 0 retries forever.
	MaxAttempts int
}

type SchedulerDeps struct {
	DB           *gorm.DB
	Log          *logger.Logger
	CourseRepo   repos.CourseRepo
	SegmentRepo  repos.SegmentRepo
	QuestionRepo repos.QuestionRepo
	Reaper       Reaper
	Gate         PublishGate
	Progress     ProgressService
	Notifier     CourseNotifier
	Pipeline     pipeline.Client
	Concepts     ConceptSink
}

// Scheduler drives a course's segments through the pipeline one at a time, in
// index order. It owns no loop; triggers call RunPass.
type Scheduler interface {
	// RunPass starts the next eligible segment and returns without waiting for
	// the pipeline. A successful segment chains another pass.
	RunPass(ctx context.Context, courseID uuid.UUID) (*PassResult, error)
	// RunPassSync is RunPass but waits for the started segment and does not chain.
	RunPassSync(ctx context.Context, courseID uuid.UUID) (*PassResult, error)
	ResetSegment(ctx context.Context, courseID uuid.UUID, index int) (*types.Segment, error)
	// Wait blocks until every pipeline call started by RunPass has settled.
	Wait()
}

type scheduler struct {
	SchedulerDeps
	cfg  SchedulerConfig
	log  *logger.Logger
	base context.Context
	wg   sync.WaitGroup
}

// NewScheduler binds async pipeline calls to base, so they outlive the request
// that started them but stop with the process.
func NewScheduler(base context.Context, deps SchedulerDeps, cfg SchedulerConfig) Scheduler {
	if base == nil {
		base = context.Background()
	}
	if deps.Notifier == nil {
		deps.Notifier = NewCourseNotifier(nil)
	}
	return &scheduler{
		SchedulerDeps: deps,
		cfg:           cfg,
		log:           deps.Log.With("service", "Scheduler"),
		base:          base,
	}
}

func (s *scheduler) Wait() { s.wg.Wait() }

func (s *scheduler) RunPass(ctx context.Context, courseID uuid.UUID) (*PassResult, error) {
	return s.runPass(ctx, courseID, false)
}

func (s *scheduler) RunPassSync(ctx context.Context, courseID uuid.UUID) (*PassResult, error) {
	return s.runPass(ctx, courseID, true)
}

func (s *scheduler) runPass(ctx context.Context, courseID uuid.UUID, wait bool) (*PassResult, error) {
	ctx, span := observability.StartSpan(ctx, "scheduler.pass", attribute.String("course_id", courseID.String()))
	defer span.End()

	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.CourseRepo.GetByID(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	res := &PassResult{CourseID: courseID, ProcessingSegments: []int{}}
	if s.Reaper != nil {
		n, err := s.Reaper.Reap(ctx, courseID)
		if err != nil {
			s.log.Warn("Reap before pass failed", "course_id", courseID, "error", err)
		}
		res.Reaped = n
	}

	segs, err := s.SegmentRepo.ListSegments(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	if len(segs) == 0 {
		res.Status = PassNoWork
		return s.finish(res), nil
	}

	next := lowestOpen(segs)
	if next == nil {
		gate, err := s.Gate.Check(ctx, courseID)
		if err != nil {
			return nil, fmt.Errorf("publish gate: %w", err)
		}
		res.Status = PassAllCompleted
		res.Gate = gate
		res.Published = gate.Published
		return s.finish(res), nil
	}

	idx := next.SegmentIndex
	switch next.Status {
	case types.SegmentProcessing:
		res.Status = PassProcessing
		res.ProcessingSegments = []int{idx}
	case types.SegmentPermanentlyFailed:
		res.Status = PassNoWork
		res.BlockedSegment = &idx
	default:
		started, err := s.start(ctx, course, segs, next, wait)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		res.Status = PassProcessing
		res.ProcessingSegments = []int{idx}
		if started {
			res.StartedSegment = &idx
		}
	}
	return s.finish(res), nil
}

func (s *scheduler) finish(res *PassResult) *PassResult {
	observability.Current().IncPass(string(res.Status))
	return res
}

// lowestOpen returns the first segment, by index, that is not completed.
// Only that segment may ever be started, which keeps a course single-flight
// and in order.
func lowestOpen(segs []*types.Segment) *types.Segment {
	for _, s := range segs {
		if s.Status != types.SegmentCompleted {
			return s
		}
	}
	return nil
}

// start claims seg and launches the pipeline call. It reports false when
// another caller claimed the segment first.
func (s *scheduler) start(ctx context.Context, course *types.Course, segs []*types.Segment, seg *types.Segment, wait bool) (bool, error) {
	dbc := dbctx.Context{Ctx: ctx}
	from := seg.Status
	err := s.SegmentRepo.Transition(dbc, course.ID, seg.SegmentIndex, repos.SegmentTransition{
		From: from,
		To:   types.SegmentProcessing,
	})
	if errors.Is(err, repos.ErrTransitionConflict) {
		observability.Current().IncTransitionConflict(from, types.SegmentProcessing)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("start segment %d: %w", seg.SegmentIndex, err)
	}
	observability.Current().IncTransition(from, types.SegmentProcessing)

	claimed, err := s.SegmentRepo.GetSegment(dbc, course.ID, seg.SegmentIndex)
	if err != nil {
		return true, fmt.Errorf("reload segment %d: %w", seg.SegmentIndex, err)
	}
	if claimed == nil {
		return true, ErrSegmentNotFound
	}
	s.Notifier.SegmentUpdated(ctx, claimed)

	prior := priorConcepts(segs, seg.SegmentIndex)
	s.log.Info("Segment started",
		"course_id", course.ID,
		"segment_index", claimed.SegmentIndex,
		"attempt", claimed.Attempts,
		"prior_concepts", len(prior),
	)
	s.reportGeneration(ctx, course, segs, fmt.Sprintf("Generating questions for segment %d of %d", seg.SegmentIndex+1, len(segs)))

	if wait {
		s.execute(ctx, course, claimed, prior, false)
		return true, nil
	}
	runCtx := ctxutil.Detach(ctx, s.base)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(runCtx, course, claimed, prior, true)
	}()
	return true, nil
}

func (s *scheduler) execute(ctx context.Context, course *types.Course, seg *types.Segment, prior []string, chain bool) {
	ctx, span := observability.StartSpan(ctx, "scheduler.segment",
		attribute.String("course_id", course.ID.String()),
		attribute.Int("segment_index", seg.SegmentIndex),
		attribute.Int("attempt", seg.Attempts),
	)
	defer span.End()

	if s.Pipeline == nil {
		s.fail(ctx, seg, ErrPipelineUnavailable.Error())
		return
	}
	res, err := s.Pipeline.Invoke(ctx, pipeline.Request{
		CourseID:      course.ID,
		VideoID:       course.VideoID,
		SegmentIndex:  seg.SegmentIndex,
		StartTime:     seg.StartTime,
		EndTime:       seg.EndTime,
		PriorConcepts: prior,
		Planned:       seg.PlannedQuestionsCount,
	})
	// the call has settled; record its outcome even if shutdown began meanwhile
	persistCtx := context.WithoutCancel(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.fail(persistCtx, seg, err.Error())
		return
	}
	if !s.complete(persistCtx, course, seg, prior, res) {
		return
	}
	if chain && s.base.Err() == nil {
		if _, err := s.RunPass(ctx, course.ID); err != nil {
			s.log.Warn("Chained pass failed", "course_id", course.ID, "error", err)
		}
	}
}

// complete records a pipeline success. The transition is fenced by the
// attempt that made the call, so a late result after a timeout is dropped.
func (s *scheduler) complete(ctx context.Context, course *types.Course, seg *types.Segment, prior []string, res *pipeline.Result) bool {
	concepts := types.MergeConcepts(prior, res.NewConcepts)
	questions := toQuestions(course.ID, seg.SegmentIndex, s.plannedQuestions(seg, res))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.SegmentRepo.Transition(dbc, course.ID, seg.SegmentIndex, repos.SegmentTransition{
			From:    types.SegmentProcessing,
			To:      types.SegmentCompleted,
			Attempt: seg.Attempts,
			Fields: map[string]interface{}{
				"questions_count":         len(questions),
				"cumulative_key_concepts": types.EncodeConcepts(concepts),
			},
		}); err != nil {
			return err
		}
		return s.QuestionRepo.ReplaceForSegment(dbc, course.ID, seg.SegmentIndex, questions)
	})
	if errors.Is(err, repos.ErrTransitionConflict) {
		observability.Current().IncTransitionConflict(types.SegmentProcessing, types.SegmentCompleted)
		s.log.Info("Discarding late pipeline result", "course_id", course.ID, "segment_index", seg.SegmentIndex, "attempt", seg.Attempts)
		return false
	}
	if err != nil {
		s.log.Error("Persisting segment result failed", "course_id", course.ID, "segment_index", seg.SegmentIndex, "error", err)
		s.fail(ctx, seg, fmt.Sprintf("persist result: %v", err))
		return false
	}
	observability.Current().IncTransition(types.SegmentProcessing, types.SegmentCompleted)

	dbc := dbctx.Context{Ctx: ctx}
	done, err := s.SegmentRepo.GetSegment(dbc, course.ID, seg.SegmentIndex)
	if err == nil && done != nil {
		s.Notifier.SegmentUpdated(ctx, done)
		if s.Concepts != nil {
			if err := s.Concepts.RecordSegment(ctx, done, res.NewConcepts); err != nil {
				s.log.Warn("Concept graph write failed", "course_id", course.ID, "segment_index", seg.SegmentIndex, "error", err)
			}
		}
	}
	for _, q := range questions {
		s.Notifier.QuestionInserted(ctx, q)
	}
	s.log.Info("Segment completed",
		"course_id", course.ID,
		"segment_index", seg.SegmentIndex,
		"questions", len(questions),
		"concepts", len(concepts),
	)
	if segs, err := s.SegmentRepo.ListSegments(dbc, course.ID); err == nil {
		s.reportGeneration(ctx, course, segs, fmt.Sprintf("Segment %d of %d complete", seg.SegmentIndex+1, len(segs)))
	}
	return true
}

// plannedQuestions caps a result at the segment's planned question count.
// questions_count always records the rows actually persisted.
func (s *scheduler) plannedQuestions(seg *types.Segment, res *pipeline.Result) []pipeline.Question {
	qs := res.Questions
	if res.QuestionsGenerated != len(qs) {
		s.log.Warn("Pipeline question count mismatch",
			"course_id", seg.CourseID,
			"segment_index", seg.SegmentIndex,
			"claimed", res.QuestionsGenerated,
			"returned", len(qs),
		)
	}
	if planned := seg.PlannedQuestionsCount; planned > 0 && len(qs) > planned {
		s.log.Warn("Dropping questions beyond the planned count",
			"course_id", seg.CourseID,
			"segment_index", seg.SegmentIndex,
			"planned", planned,
			"returned", len(qs),
		)
		qs = qs[:planned]
	}
	return qs
}

func (s *scheduler) fail(ctx context.Context, seg *types.Segment, msg string) {
	to := nextFailureStatus(seg.Attempts, s.cfg.MaxAttempts)
	dbc := dbctx.Context{Ctx: ctx}
	err := s.SegmentRepo.Transition(dbc, seg.CourseID, seg.SegmentIndex, repos.SegmentTransition{
		From:    types.SegmentProcessing,
		To:      to,
		Attempt: seg.Attempts,
		Fields:  map[string]interface{}{"error_message": truncateMessage(msg, 1000)},
	})
	if errors.Is(err, repos.ErrTransitionConflict) {
		observability.Current().IncTransitionConflict(types.SegmentProcessing, to)
		return
	}
	if err != nil {
		s.log.Error("Recording segment failure failed", "course_id", seg.CourseID, "segment_index", seg.SegmentIndex, "error", err)
		return
	}
	observability.Current().IncTransition(types.SegmentProcessing, to)
	if to == types.SegmentPermanentlyFailed {
		s.log.Error("Segment exhausted its attempts",
			"course_id", seg.CourseID,
			"segment_index", seg.SegmentIndex,
			"attempts", seg.Attempts,
			"error", msg,
		)
	} else {
		s.log.Warn("Segment failed", "course_id", seg.CourseID, "segment_index", seg.SegmentIndex, "attempt", seg.Attempts, "error", msg)
	}
	if fresh, err := s.SegmentRepo.GetSegment(dbc, seg.CourseID, seg.SegmentIndex); err == nil && fresh != nil {
		s.Notifier.SegmentUpdated(ctx, fresh)
	}
}

func (s *scheduler) ResetSegment(ctx context.Context, courseID uuid.UUID, index int) (*types.Segment, error) {
	dbc := dbctx.Context{Ctx: ctx}
	seg, err := s.SegmentRepo.GetSegment(dbc, courseID, index)
	if err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, ErrSegmentNotFound
	}
	err = s.SegmentRepo.Transition(dbc, courseID, index, repos.SegmentTransition{
		From: types.SegmentPermanentlyFailed,
		To:   types.SegmentPending,
	})
	if errors.Is(err, repos.ErrTransitionConflict) {
		return nil, ErrSegmentNotResettable
	}
	if err != nil {
		return nil, err
	}
	observability.Current().IncTransition(types.SegmentPermanentlyFailed, types.SegmentPending)
	s.log.Info("Segment reset", "course_id", courseID, "segment_index", index)
	seg, err = s.SegmentRepo.GetSegment(dbc, courseID, index)
	if err != nil {
		return nil, err
	}
	s.Notifier.SegmentUpdated(ctx, seg)
	return seg, nil
}

func (s *scheduler) reportGeneration(ctx context.Context, course *types.Course, segs []*types.Segment, step string) {
	if s.Progress == nil || course.ProcessingSessionID == nil || len(segs) == 0 {
		return
	}
	completed := 0
	for _, sg := range segs {
		if sg.Status == types.SegmentCompleted {
			completed++
		}
	}
	if _, err := s.Progress.Report(ctx, ProgressUpdate{
		CourseID:      course.ID,
		SessionID:     *course.ProcessingSessionID,
		Stage:         types.StageGeneration,
		StageProgress: float64(completed) / float64(len(segs)),
		Step:          step,
		Metadata: map[string]any{
			"segments_total":     len(segs),
			"segments_completed": completed,
			"at":                 time.Now().UTC(),
		},
	}); err != nil {
		s.log.Warn("Progress report failed", "course_id", course.ID, "error", err)
	}
}

// priorConcepts is the cumulative concept list of the segment before index.
func priorConcepts(segs []*types.Segment, index int) []string {
	for _, sg := range segs {
		if sg.SegmentIndex == index-1 {
			return sg.Concepts()
		}
	}
	return []string{}
}

func toQuestions(courseID uuid.UUID, segmentIndex int, in []pipeline.Question) []*types.Question {
	out := make([]*types.Question, 0, len(in))
	for i, q := range in {
		qt := q.Type
		if qt == "" {
			qt = "multiple_choice"
		}
		out = append(out, &types.Question{
			ID:               uuid.New(),
			CourseID:         courseID,
			SegmentIndex:     segmentIndex,
			Index:            i,
			Type:             qt,
			Prompt:           q.Prompt,
			Options:          datatypes.JSON(q.Options),
			CorrectAnswer:    datatypes.JSON(q.CorrectAnswer),
			Explanation:      q.Explanation,
			TimestampSeconds: q.TimestampSeconds,
		})
	}
	return out
}

func truncateMessage(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
