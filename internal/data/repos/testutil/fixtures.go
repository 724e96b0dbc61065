package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, durationSeconds float64) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:                   uuid.New(),
		Title:                "course",
		VideoID:              "vid-" + uuid.NewString()[:8],
		VideoDurationSeconds: durationSeconds,
		SegmentLengthSeconds: 300,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedSegments writes one row per (status) in order, each spanning 300s.
func SeedSegments(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, statuses ...types.SegmentStatus) []*types.Segment {
	tb.Helper()
	out := make([]*types.Segment, 0, len(statuses))
	for i, st := range statuses {
		seg := &types.Segment{
			ID:           uuid.New(),
			CourseID:     courseID,
			SegmentIndex: i,
			StartTime:    float64(i * 300),
			EndTime:      float64((i + 1) * 300),
			Status:       st,
		}
		switch st {
		case types.SegmentProcessing:
			now := time.Now().UTC()
			seg.Attempts = 1
			seg.ProcessingStartedAt = &now
		case types.SegmentFailed, types.SegmentPermanentlyFailed:
			seg.Attempts = 1
			seg.ErrorMessage = "seeded failure"
		case types.SegmentCompleted:
			now := time.Now().UTC()
			seg.Attempts = 1
			seg.CompletedAt = &now
			seg.QuestionsCount = 1
		}
		if err := tx.WithContext(ctx).Create(seg).Error; err != nil {
			tb.Fatalf("seed segment %d: %v", i, err)
		}
		out = append(out, seg)
	}
	return out
}

// BackdateProcessing moves processing_started_at into the past so the reaper sees the row as stuck.
func BackdateProcessing(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, index int, age time.Duration) {
	tb.Helper()
	started := time.Now().UTC().Add(-age)
	if err := tx.WithContext(ctx).
		Model(&types.Segment{}).
		Where("course_id = ? AND segment_index = ?", courseID, index).
		Update("processing_started_at", started).Error; err != nil {
		tb.Fatalf("backdate segment %d: %v", index, err)
	}
}

func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, segmentIndex, index int) *types.Question {
	tb.Helper()
	q := &types.Question{
		ID:           uuid.New(),
		CourseID:     courseID,
		SegmentIndex: segmentIndex,
		Index:        index,
		Type:         "multiple_choice",
		Prompt:       "What is shown?",
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}
