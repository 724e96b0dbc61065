package coursesegments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/services"
)

type Activities struct {
	Log       *logger.Logger
	Scheduler services.Scheduler
}

// Pass runs one synchronous scheduler pass, heartbeating while the pipeline
// call is in flight.
func (a *Activities) Pass(ctx context.Context, courseID string) (PassOutcome, error) {
	out := PassOutcome{CourseID: strings.TrimSpace(courseID)}
	if a == nil || a.Scheduler == nil {
		return out, fmt.Errorf("course_segments: activity not configured")
	}
	id, err := uuid.Parse(out.CourseID)
	if err != nil || id == uuid.Nil {
		return out, temporal.NewNonRetryableApplicationError("invalid course_id", "InvalidCourseID", err)
	}

	stop := startHeartbeat(ctx, 10*time.Second)
	defer stop()

	res, err := a.Scheduler.RunPassSync(ctx, id)
	if errors.Is(err, services.ErrCourseNotFound) {
		return out, temporal.NewNonRetryableApplicationError("course not found", "CourseNotFound", err)
	}
	if err != nil {
		return out, err
	}
	out.Status = string(res.Status)
	out.StartedSegment = res.StartedSegment
	out.BlockedSegment = res.BlockedSegment
	out.Published = res.Published
	if res.Gate != nil {
		out.GateOutcome = string(res.Gate.Outcome)
	}
	if a.Log != nil {
		a.Log.Debug("Course pass tick", "course_id", id, "status", out.Status, "published", out.Published)
	}
	return out, nil
}

func startHeartbeat(ctx context.Context, every time.Duration) func() {
	if !activity.IsActivity(ctx) {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
