package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

type QuestionRepo interface {
	// ReplaceForSegment deletes any questions already stored for the segment and
	// inserts qs in its place, so a re-run never duplicates rows.
	ReplaceForSegment(dbc dbctx.Context, courseID uuid.UUID, segmentIndex int, qs []*types.Question) error
	CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error)
	// ListByCourse returns questions ordered by segment then position. A nil
	// segmentIndexes means every segment; an empty slice means none.
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID, segmentIndexes []int) ([]*types.Question, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{
		db:  db,
		log: baseLog.With("repo", "QuestionRepo"),
	}
}

func (r *questionRepo) ReplaceForSegment(dbc dbctx.Context, courseID uuid.UUID, segmentIndex int, qs []*types.Question) error {
	return dbc.Conn(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ? AND segment_index = ?", courseID, segmentIndex).
			Delete(&types.Question{}).Error; err != nil {
			return err
		}
		if len(qs) == 0 {
			return nil
		}
		now := time.Now().UTC()
		for i, q := range qs {
			q.CourseID = courseID
			q.SegmentIndex = segmentIndex
			q.Index = i
			if q.CreatedAt.IsZero() {
				q.CreatedAt = now
			}
			q.UpdatedAt = now
		}
		return tx.Create(&qs).Error
	})
}

func (r *questionRepo) CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).
		Model(&types.Question{}).
		Where("course_id = ?", courseID).
		Count(&n).Error
	return n, err
}

func (r *questionRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID, segmentIndexes []int) ([]*types.Question, error) {
	var out []*types.Question
	if segmentIndexes != nil && len(segmentIndexes) == 0 {
		return out, nil
	}
	q := dbc.Conn(r.db).Where("course_id = ?", courseID)
	if segmentIndexes != nil {
		q = q.Where("segment_index IN ?", segmentIndexes)
	}
	if err := q.Order("segment_index ASC, \"index\" ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
