package services

import (
	"context"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/realtime"
)

// CourseNotifier shapes domain changes into realtime events. All methods are
// fire-and-forget.
type CourseNotifier interface {
	SegmentUpdated(ctx context.Context, seg *types.Segment)
	QuestionInserted(ctx context.Context, q *types.Question)
	ProgressUpdated(ctx context.Context, rec *types.ProgressRecord)
	CoursePublished(ctx context.Context, course *types.Course, questions int64)
}

type courseNotifier struct {
	pub realtime.Publisher
}

func NewCourseNotifier(pub realtime.Publisher) CourseNotifier {
	return &courseNotifier{pub: pub}
}

func (n *courseNotifier) publish(ctx context.Context, ev realtime.Event) {
	if n == nil || n.pub == nil {
		return
	}
	n.pub.Publish(ctx, ev)
}

func (n *courseNotifier) SegmentUpdated(ctx context.Context, seg *types.Segment) {
	if seg == nil {
		return
	}
	n.publish(ctx, realtime.NewEvent(seg.CourseID, realtime.EventSegmentUpdated, map[string]any{
		"segment_index":   seg.SegmentIndex,
		"status":          seg.Status,
		"attempts":        seg.Attempts,
		"questions_count": seg.QuestionsCount,
		"error_message":   seg.ErrorMessage,
		"segment":         seg,
	}))
}

func (n *courseNotifier) QuestionInserted(ctx context.Context, q *types.Question) {
	if q == nil {
		return
	}
	n.publish(ctx, realtime.NewEvent(q.CourseID, realtime.EventQuestionInserted, map[string]any{
		"segment_index": q.SegmentIndex,
		"question":      q,
	}))
}

func (n *courseNotifier) ProgressUpdated(ctx context.Context, rec *types.ProgressRecord) {
	if rec == nil {
		return
	}
	n.publish(ctx, realtime.NewEvent(rec.CourseID, realtime.EventProgressUpdated, map[string]any{
		"session_id":       rec.SessionID,
		"stage":            rec.Stage,
		"stage_progress":   rec.StageProgress,
		"overall_progress": rec.OverallProgress,
		"current_step":     rec.CurrentStep,
	}))
}

func (n *courseNotifier) CoursePublished(ctx context.Context, course *types.Course, questions int64) {
	if course == nil {
		return
	}
	n.publish(ctx, realtime.NewEvent(course.ID, realtime.EventCoursePublished, map[string]any{
		"course_id":       course.ID,
		"questions_count": questions,
	}))
}
