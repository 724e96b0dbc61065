package courses

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

type CourseRepo interface {
	Create(dbc dbctx.Context, course *types.Course) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	// MarkPublished flips published false->true. It reports false when the
	// course was already published (or does not exist).
	MarkPublished(dbc dbctx.Context, id uuid.UUID) (bool, error)
	SetProcessingSession(dbc dbctx.Context, id uuid.UUID, sessionID uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{
		db:  db,
		log: baseLog.With("repo", "CourseRepo"),
	}
}

func (r *courseRepo) Create(dbc dbctx.Context, course *types.Course) error {
	if course == nil {
		return fmt.Errorf("nil course")
	}
	return dbc.Conn(r.db).Create(course).Error
}

func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.Course
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *courseRepo) MarkPublished(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res := dbc.Conn(r.db).
		Model(&types.Course{}).
		Where("id = ? AND published = ?", id, false).
		Updates(map[string]interface{}{
			"published":    true,
			"published_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *courseRepo) SetProcessingSession(dbc dbctx.Context, id uuid.UUID, sessionID uuid.UUID) error {
	return dbc.Conn(r.db).
		Model(&types.Course{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_session_id": sessionID,
			"updated_at":            time.Now().UTC(),
		}).Error
}
