package courses

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	domaincourses "github.com/yungbote/vidcourse-backend/internal/domain/courses"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

var (
	// ErrTransitionConflict means the row was not in the expected state (or attempt);
	// another caller already moved it. Callers treat it as a no-op.
	ErrTransitionConflict = errors.New("segment transition conflict")
	ErrIllegalTransition  = errors.New("illegal segment transition")
	ErrSegmentsExist      = errors.New("segments already exist for course")
)

// Transition describes one guarded status change. Attempt, when positive, fences
// the update to the processing attempt that issued it.
type Transition struct {
	From    types.SegmentStatus
	To      types.SegmentStatus
	Attempt int
	Fields  map[string]interface{}
}

type SegmentRepo interface {
	CreateSegments(dbc dbctx.Context, courseID uuid.UUID, ranges []domaincourses.TimeRange, plannedQuestions int) ([]*types.Segment, error)
	GetSegment(dbc dbctx.Context, courseID uuid.UUID, index int) (*types.Segment, error)
	ListSegments(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Segment, error)
	Transition(dbc dbctx.Context, courseID uuid.UUID, index int, t Transition) error
	ListStuck(dbc dbctx.Context, startedBefore time.Time) ([]*types.Segment, error)
	ListStuckForCourse(dbc dbctx.Context, courseID uuid.UUID, startedBefore time.Time) ([]*types.Segment, error)
	ListCoursesWithOpenSegments(dbc dbctx.Context, limit int) ([]uuid.UUID, error)
}

type segmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
	return &segmentRepo{
		db:  db,
		log: baseLog.With("repo", "SegmentRepo"),
	}
}

func (r *segmentRepo) CreateSegments(dbc dbctx.Context, courseID uuid.UUID, ranges []domaincourses.TimeRange, plannedQuestions int) ([]*types.Segment, error) {
	if courseID == uuid.Nil {
		return nil, fmt.Errorf("missing course_id")
	}
	if err := domaincourses.ValidateRanges(ranges); err != nil {
		return nil, err
	}
	if plannedQuestions < 0 {
		plannedQuestions = 0
	}
	now := time.Now().UTC()
	rows := make([]*types.Segment, 0, len(ranges))
	for i, rg := range ranges {
		rows = append(rows, &types.Segment{
			ID:                    uuid.New(),
			CourseID:              courseID,
			SegmentIndex:          i,
			StartTime:             rg.Start,
			EndTime:               rg.End,
			Status:                types.SegmentPending,
			PlannedQuestionsCount: plannedQuestions,
			CumulativeKeyConcepts: types.EncodeConcepts(nil),
			CreatedAt:             now,
			UpdatedAt:             now,
		})
	}
	err := dbc.Conn(r.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSegmentsExist
		}
		return nil, err
	}
	return rows, nil
}

func (r *segmentRepo) GetSegment(dbc dbctx.Context, courseID uuid.UUID, index int) (*types.Segment, error) {
	var seg types.Segment
	err := dbc.Conn(r.db).
		Where("course_id = ? AND segment_index = ?", courseID, index).
		Limit(1).
		Find(&seg).Error
	if err != nil {
		return nil, err
	}
	if seg.ID == uuid.Nil {
		return nil, nil
	}
	return &seg, nil
}

func (r *segmentRepo) ListSegments(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Segment, error) {
	var out []*types.Segment
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("course_id = ?", courseID).
		Order("segment_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Transition is the only writer of segment status. It is a compare-and-set on
// (status, attempts); zero affected rows is reported as ErrTransitionConflict.
func (r *segmentRepo) Transition(dbc dbctx.Context, courseID uuid.UUID, index int, t Transition) error {
	if !types.CanTransition(t.From, t.To) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.From, t.To)
	}
	now := time.Now().UTC()
	updates := make(map[string]interface{}, len(t.Fields)+4)
	for k, v := range t.Fields {
		updates[k] = v
	}
	updates["status"] = string(t.To)
	updates["updated_at"] = now

	switch t.To {
	case types.SegmentProcessing:
		updates["processing_started_at"] = now
		updates["attempts"] = gorm.Expr("attempts + 1")
		updates["error_message"] = ""
	case types.SegmentCompleted:
		updates["completed_at"] = now
		updates["error_message"] = ""
	case types.SegmentFailed, types.SegmentPermanentlyFailed:
		if msg, _ := updates["error_message"].(string); msg == "" {
			updates["error_message"] = "unknown error"
		}
	case types.SegmentPending:
		updates["processing_started_at"] = nil
		updates["error_message"] = ""
		updates["attempts"] = 0
	}

	q := dbc.Conn(r.db).
		Model(&types.Segment{}).
		Where("course_id = ? AND segment_index = ? AND status = ?", courseID, index, string(t.From))
	if t.Attempt > 0 {
		q = q.Where("attempts = ?", t.Attempt)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTransitionConflict
	}
	r.log.Debug("Segment transitioned",
		"course_id", courseID,
		"segment_index", index,
		"from", t.From,
		"to", t.To,
	)
	return nil
}

func (r *segmentRepo) ListStuck(dbc dbctx.Context, startedBefore time.Time) ([]*types.Segment, error) {
	var out []*types.Segment
	if err := dbc.Conn(r.db).
		Where("status = ? AND processing_started_at IS NOT NULL AND processing_started_at < ?", string(types.SegmentProcessing), startedBefore).
		Order("course_id ASC, segment_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *segmentRepo) ListStuckForCourse(dbc dbctx.Context, courseID uuid.UUID, startedBefore time.Time) ([]*types.Segment, error) {
	var out []*types.Segment
	if err := dbc.Conn(r.db).
		Where("course_id = ? AND status = ? AND processing_started_at IS NOT NULL AND processing_started_at < ?",
			courseID, string(types.SegmentProcessing), startedBefore).
		Order("segment_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *segmentRepo) ListCoursesWithOpenSegments(dbc dbctx.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := dbc.Conn(r.db).
		Model(&types.Segment{}).
		Where("status IN ?", []string{
			string(types.SegmentPending),
			string(types.SegmentProcessing),
			string(types.SegmentFailed),
		}).
		Distinct("course_id").
		Limit(limit).
		Pluck("course_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
