package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/realtime"
)

const DefaultPlannedQuestionsPerSegment = 5

var ErrInvalidCourseInput = errors.New("invalid course input")

// CourseDispatcher hands a freshly planned course to a durable driver
// (Temporal). Dispatch failures are logged; the sweeper still picks the course up.
type CourseDispatcher interface {
	Dispatch(ctx context.Context, courseID uuid.UUID) error
}

type CreateCourseInput struct {
	Title                      string  `json:"title"`
	VideoID                    string  `json:"video_id"`
	DurationSeconds            float64 `json:"duration_seconds"`
	SegmentLengthSeconds       float64 `json:"segment_length_seconds,omitempty"`
	PlannedQuestionsPerSegment int     `json:"planned_questions_per_segment,omitempty"`
}

type SegmentSummary struct {
	Total             int `json:"total"`
	Pending           int `json:"pending"`
	Processing        int `json:"processing"`
	Completed         int `json:"completed"`
	Failed            int `json:"failed"`
	PermanentlyFailed int `json:"permanently_failed"`
	QuestionsCount    int `json:"questions_count"`
}

func Summarize(segs []*types.Segment) SegmentSummary {
	out := SegmentSummary{Total: len(segs)}
	for _, s := range segs {
		out.QuestionsCount += s.QuestionsCount
		switch s.Status {
		case types.SegmentPending:
			out.Pending++
		case types.SegmentProcessing:
			out.Processing++
		case types.SegmentCompleted:
			out.Completed++
		case types.SegmentFailed:
			out.Failed++
		case types.SegmentPermanentlyFailed:
			out.PermanentlyFailed++
		}
	}
	return out
}

type CourseView struct {
	Course   *types.Course         `json:"course"`
	Segments []*types.Segment      `json:"segments"`
	Summary  SegmentSummary        `json:"summary"`
	Progress *types.ProgressRecord `json:"progress,omitempty"`
}

type SegmentQuestions struct {
	Segment   *types.Segment    `json:"segment"`
	Questions []*types.Question `json:"questions"`
}

type CourseServiceConfig struct {
	SegmentLengthSeconds    float64
	MaxVideoDurationSeconds float64
}

type CourseService interface {
	Create(ctx context.Context, in CreateCourseInput) (*CourseView, error)
	Get(ctx context.Context, id uuid.UUID) (*CourseView, error)
	SegmentQuestions(ctx context.Context, id uuid.UUID, completedOnly bool, segmentIndex *int) ([]SegmentQuestions, error)
	Snapshot(ctx context.Context, id uuid.UUID) (*realtime.Snapshot, error)
}

type courseService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          CourseServiceConfig
	courseRepo   repos.CourseRepo
	segRepo      repos.SegmentRepo
	questionRepo repos.QuestionRepo
	progress     ProgressService
	dispatcher   CourseDispatcher
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg CourseServiceConfig,
	courseRepo repos.CourseRepo,
	segRepo repos.SegmentRepo,
	questionRepo repos.QuestionRepo,
	progress ProgressService,
	dispatcher CourseDispatcher,
) CourseService {
	if cfg.SegmentLengthSeconds <= 0 {
		cfg.SegmentLengthSeconds = DefaultSegmentLengthSeconds
	}
	return &courseService{
		db:           db,
		log:          baseLog.With("service", "CourseService"),
		cfg:          cfg,
		courseRepo:   courseRepo,
		segRepo:      segRepo,
		questionRepo: questionRepo,
		progress:     progress,
		dispatcher:   dispatcher,
	}
}

// Create plans the video and persists the course, its segments and the first
// progress record in one transaction. A plan error persists nothing.
func (s *courseService) Create(ctx context.Context, in CreateCourseInput) (*CourseView, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.VideoID = strings.TrimSpace(in.VideoID)
	if in.VideoID == "" {
		return nil, fmt.Errorf("%w: video_id is required", ErrInvalidCourseInput)
	}
	if in.Title == "" {
		in.Title = in.VideoID
	}
	segLen := in.SegmentLengthSeconds
	if segLen <= 0 {
		segLen = s.cfg.SegmentLengthSeconds
	}
	planned := in.PlannedQuestionsPerSegment
	if planned <= 0 {
		planned = DefaultPlannedQuestionsPerSegment
	}

	ranges, err := PlanSegments(in.DurationSeconds, segLen, s.cfg.MaxVideoDurationSeconds)
	if err != nil {
		return nil, err
	}

	course := &types.Course{
		ID:                   uuid.New(),
		Title:                in.Title,
		VideoID:              in.VideoID,
		VideoDurationSeconds: in.DurationSeconds,
		SegmentLengthSeconds: segLen,
	}
	sessionID := uuid.New()
	var segs []*types.Segment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.courseRepo.Create(dbc, course); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		var err error
		if segs, err = s.segRepo.CreateSegments(dbc, course.ID, ranges, planned); err != nil {
			return fmt.Errorf("create segments: %w", err)
		}
		if err := s.courseRepo.SetProcessingSession(dbc, course.ID, sessionID); err != nil {
			return fmt.Errorf("set processing session: %w", err)
		}
		if s.progress != nil {
			if _, err := s.progress.Start(ctx, tx, course.ID, sessionID); err != nil {
				return fmt.Errorf("start progress: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	course.ProcessingSessionID = &sessionID

	s.log.Info("Course planned",
		"course_id", course.ID,
		"video_id", course.VideoID,
		"duration_seconds", course.VideoDurationSeconds,
		"segments", len(segs),
	)

	var rec *types.ProgressRecord
	if s.progress != nil {
		rec, err = s.progress.Report(ctx, ProgressUpdate{
			CourseID:      course.ID,
			SessionID:     sessionID,
			Stage:         types.StagePlanning,
			StageProgress: 1,
			Step:          fmt.Sprintf("Planned %d segments", len(segs)),
			Metadata:      map[string]any{"segments_total": len(segs)},
		})
		if err != nil {
			s.log.Warn("Progress report failed", "course_id", course.ID, "error", err)
		}
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, course.ID); err != nil {
			s.log.Warn("Course dispatch failed; sweeper will pick it up", "course_id", course.ID, "error", err)
		}
	}
	return &CourseView{Course: course, Segments: segs, Summary: Summarize(segs), Progress: rec}, nil
}

func (s *courseService) Get(ctx context.Context, id uuid.UUID) (*CourseView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.courseRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	segs, err := s.segRepo.ListSegments(dbc, id)
	if err != nil {
		return nil, err
	}
	view := &CourseView{Course: course, Segments: segs, Summary: Summarize(segs)}
	if s.progress != nil {
		if view.Progress, err = s.progress.Latest(ctx, id); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (s *courseService) SegmentQuestions(ctx context.Context, id uuid.UUID, completedOnly bool, segmentIndex *int) ([]SegmentQuestions, error) {
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.courseRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	segs, err := s.segRepo.ListSegments(dbc, id)
	if err != nil {
		return nil, err
	}

	picked := make([]*types.Segment, 0, len(segs))
	indexes := make([]int, 0, len(segs))
	for _, sg := range segs {
		if segmentIndex != nil && sg.SegmentIndex != *segmentIndex {
			continue
		}
		if completedOnly && sg.Status != types.SegmentCompleted {
			continue
		}
		picked = append(picked, sg)
		indexes = append(indexes, sg.SegmentIndex)
	}
	if segmentIndex != nil && len(picked) == 0 && !completedOnly {
		return nil, ErrSegmentNotFound
	}

	qs, err := s.questionRepo.ListByCourse(dbc, id, indexes)
	if err != nil {
		return nil, err
	}
	bySeg := make(map[int][]*types.Question, len(picked))
	for _, q := range qs {
		bySeg[q.SegmentIndex] = append(bySeg[q.SegmentIndex], q)
	}
	out := make([]SegmentQuestions, 0, len(picked))
	for _, sg := range picked {
		list := bySeg[sg.SegmentIndex]
		if list == nil {
			list = []*types.Question{}
		}
		out = append(out, SegmentQuestions{Segment: sg, Questions: list})
	}
	return out, nil
}

func (s *courseService) Snapshot(ctx context.Context, id uuid.UUID) (*realtime.Snapshot, error) {
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.courseRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	segs, err := s.segRepo.ListSegments(dbc, id)
	if err != nil {
		return nil, err
	}
	return &realtime.Snapshot{Published: course.Published, Segments: segs}, nil
}
