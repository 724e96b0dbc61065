package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Question struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_question_course_segment,priority:1" json:"course_id"`
	SegmentIndex     int            `gorm:"column:segment_index;not null;index:idx_question_course_segment,priority:2" json:"segment_index"`
	Index            int            `gorm:"column:index;not null" json:"index"`
	Type             string         `gorm:"column:type;not null" json:"type"`
	Prompt           string         `gorm:"column:prompt;not null" json:"prompt"`
	Options          datatypes.JSON `gorm:"column:options;type:jsonb" json:"options"`
	CorrectAnswer    datatypes.JSON `gorm:"column:correct_answer;type:jsonb" json:"correct_answer"`
	Explanation      string         `gorm:"column:explanation" json:"explanation,omitempty"`
	TimestampSeconds float64        `gorm:"column:timestamp_seconds" json:"timestamp_seconds"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (Question) TableName() string { return "segment_question" }

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if len(q.Options) == 0 {
		q.Options = datatypes.JSON([]byte("[]"))
	}
	if len(q.CorrectAnswer) == 0 {
		q.CorrectAnswer = datatypes.JSON([]byte("null"))
	}
	return nil
}
