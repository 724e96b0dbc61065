package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProgressStage string

const (
	StageInitialization      ProgressStage = "initialization"
	StagePlanning            ProgressStage = "planning"
	StageGeneration          ProgressStage = "generation"
	StageQualityVerification ProgressStage = "quality_verification"
	StageStorage             ProgressStage = "storage"
	StageCompleted           ProgressStage = "completed"
	StageFailed              ProgressStage = "failed"
)

// WorkStages is the weighted stage order; completed and failed are terminal markers.
var WorkStages = []ProgressStage{
	StageInitialization,
	StagePlanning,
	StageGeneration,
	StageQualityVerification,
	StageStorage,
}

func (s ProgressStage) Valid() bool {
	switch s {
	case StageCompleted, StageFailed:
		return true
	}
	for _, w := range WorkStages {
		if w == s {
			return true
		}
	}
	return false
}

func (s ProgressStage) Terminal() bool { return s == StageCompleted || s == StageFailed }

// ProgressRecord is keyed by (course_id, session_id). overall_progress is derived
// by the aggregator and never written by callers.
type ProgressRecord struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_progress_course_session,priority:1" json:"course_id"`
	SessionID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_progress_course_session,priority:2" json:"session_id"`
	Stage           ProgressStage  `gorm:"column:stage;not null" json:"stage"`
	StageProgress   float64        `gorm:"column:stage_progress;not null" json:"stage_progress"`
	OverallProgress float64        `gorm:"column:overall_progress;not null" json:"overall_progress"`
	CurrentStep     string         `gorm:"column:current_step" json:"current_step"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (ProgressRecord) TableName() string { return "progress_record" }

func (p *ProgressRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if len(p.Metadata) == 0 {
		p.Metadata = datatypes.JSON([]byte("{}"))
	}
	return nil
}
