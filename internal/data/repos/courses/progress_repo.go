package courses

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

// ProgressAdvance is a guarded write: it lands only if the stored overall
// progress is not above Overall and the record is not terminal.
type ProgressAdvance struct {
	Stage         types.ProgressStage
	StageProgress float64
	Overall       float64
	CurrentStep   string
	Metadata      datatypes.JSON
}

type ProgressRepo interface {
	// Ensure returns the record for (course, session), creating it when absent.
	Ensure(dbc dbctx.Context, rec *types.ProgressRecord) (*types.ProgressRecord, error)
	Get(dbc dbctx.Context, courseID, sessionID uuid.UUID) (*types.ProgressRecord, error)
	Latest(dbc dbctx.Context, courseID uuid.UUID) (*types.ProgressRecord, error)
	Advance(dbc dbctx.Context, id uuid.UUID, adv ProgressAdvance) (bool, error)
	// MarkFailed moves a non-terminal record to failed without touching overall progress.
	MarkFailed(dbc dbctx.Context, id uuid.UUID, step string) (bool, error)
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{
		db:  db,
		log: baseLog.With("repo", "ProgressRepo"),
	}
}

func (r *progressRepo) Ensure(dbc dbctx.Context, rec *types.ProgressRecord) (*types.ProgressRecord, error) {
	if rec == nil || rec.CourseID == uuid.Nil || rec.SessionID == uuid.Nil {
		return nil, fmt.Errorf("progress record requires course_id and session_id")
	}
	existing, err := r.Get(dbc, rec.CourseID, rec.SessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if err := dbc.Conn(r.db).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return r.Get(dbc, rec.CourseID, rec.SessionID)
		}
		return nil, err
	}
	return rec, nil
}

func (r *progressRepo) Get(dbc dbctx.Context, courseID, sessionID uuid.UUID) (*types.ProgressRecord, error) {
	var rec types.ProgressRecord
	if err := dbc.Conn(r.db).
		Where("course_id = ? AND session_id = ?", courseID, sessionID).
		Limit(1).
		Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *progressRepo) Latest(dbc dbctx.Context, courseID uuid.UUID) (*types.ProgressRecord, error) {
	var rec types.ProgressRecord
	if err := dbc.Conn(r.db).
		Where("course_id = ?", courseID).
		Order("updated_at DESC").
		Limit(1).
		Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *progressRepo) Advance(dbc dbctx.Context, id uuid.UUID, adv ProgressAdvance) (bool, error) {
	updates := map[string]interface{}{
		"stage":            string(adv.Stage),
		"stage_progress":   adv.StageProgress,
		"overall_progress": adv.Overall,
		"current_step":     adv.CurrentStep,
		"updated_at":       time.Now().UTC(),
	}
	if len(adv.Metadata) > 0 {
		updates["metadata"] = adv.Metadata
	}
	res := dbc.Conn(r.db).
		Model(&types.ProgressRecord{}).
		Where("id = ? AND overall_progress <= ? AND stage NOT IN ?", id, adv.Overall, terminalStages()).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *progressRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, step string) (bool, error) {
	res := dbc.Conn(r.db).
		Model(&types.ProgressRecord{}).
		Where("id = ? AND stage NOT IN ?", id, terminalStages()).
		Updates(map[string]interface{}{
			"stage":        string(types.StageFailed),
			"current_step": step,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func terminalStages() []string {
	return []string{string(types.StageCompleted), string(types.StageFailed)}
}
