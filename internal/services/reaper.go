package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/observability"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

const (
	DefaultProcessingTimeout = 180 * time.Second
	timeoutErrorMessage      = "Processing timeout"
)

// Reaper fails segments that have been processing longer than the timeout.
// Both methods return how many segments they moved.
type Reaper interface {
	Reap(ctx context.Context, courseID uuid.UUID) (int, error)
	ReapAll(ctx context.Context) (int, error)
}

type reaper struct {
	log         *logger.Logger
	segRepo     repos.SegmentRepo
	notifier    CourseNotifier
	timeout     time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewReaper(baseLog *logger.Logger, segRepo repos.SegmentRepo, notifier CourseNotifier, timeout time.Duration, maxAttempts int) Reaper {
	if timeout <= 0 {
		timeout = DefaultProcessingTimeout
	}
	if notifier == nil {
		notifier = NewCourseNotifier(nil)
	}
	return &reaper{
		log:         baseLog.With("service", "Reaper"),
		segRepo:     segRepo,
		notifier:    notifier,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (r *reaper) Reap(ctx context.Context, courseID uuid.UUID) (int, error) {
	rows, err := r.segRepo.ListStuckForCourse(dbctx.Context{Ctx: ctx}, courseID, r.cutoff())
	if err != nil {
		return 0, err
	}
	return r.reap(ctx, rows), nil
}

func (r *reaper) ReapAll(ctx context.Context) (int, error) {
	rows, err := r.segRepo.ListStuck(dbctx.Context{Ctx: ctx}, r.cutoff())
	if err != nil {
		return 0, err
	}
	return r.reap(ctx, rows), nil
}

func (r *reaper) cutoff() time.Time { return r.now().UTC().Add(-r.timeout) }

func (r *reaper) reap(ctx context.Context, rows []*types.Segment) int {
	dbc := dbctx.Context{Ctx: ctx}
	moved := 0
	for _, seg := range rows {
		to := nextFailureStatus(seg.Attempts, r.maxAttempts)
		err := r.segRepo.Transition(dbc, seg.CourseID, seg.SegmentIndex, repos.SegmentTransition{
			From:    types.SegmentProcessing,
			To:      to,
			Attempt: seg.Attempts,
			Fields:  map[string]interface{}{"error_message": timeoutErrorMessage},
		})
		if errors.Is(err, repos.ErrTransitionConflict) {
			// finished (or was reaped) between the scan and now
			observability.Current().IncTransitionConflict(types.SegmentProcessing, to)
			continue
		}
		if err != nil {
			r.log.Warn("Reap transition failed", "course_id", seg.CourseID, "segment_index", seg.SegmentIndex, "error", err)
			continue
		}
		moved++
		observability.Current().IncTransition(types.SegmentProcessing, to)
		r.log.Warn("Segment timed out",
			"course_id", seg.CourseID,
			"segment_index", seg.SegmentIndex,
			"attempt", seg.Attempts,
			"status", to,
		)
		if fresh, err := r.segRepo.GetSegment(dbc, seg.CourseID, seg.SegmentIndex); err == nil && fresh != nil {
			r.notifier.SegmentUpdated(ctx, fresh)
		}
	}
	observability.Current().AddReaped(moved)
	return moved
}

// nextFailureStatus picks failed or permanently_failed for a segment that just
// failed its attempt-th try. maxAttempts <= 0 retries forever.
func nextFailureStatus(attempt, maxAttempts int) types.SegmentStatus {
	if maxAttempts > 0 && attempt >= maxAttempts {
		return types.SegmentPermanentlyFailed
	}
	return types.SegmentFailed
}
