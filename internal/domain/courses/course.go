package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course.Published is flipped only by the publish gate.
type Course struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title                string     `gorm:"column:title;not null" json:"title"`
	VideoID              string     `gorm:"column:video_id;not null;index" json:"video_id"`
	VideoDurationSeconds float64    `gorm:"column:video_duration_seconds;not null" json:"video_duration_seconds"`
	SegmentLengthSeconds float64    `gorm:"column:segment_length_seconds;not null" json:"segment_length_seconds"`
	Published            bool       `gorm:"column:published;not null;default:false;index" json:"published"`
	PublishedAt          *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	ProcessingSessionID  *uuid.UUID `gorm:"type:uuid;column:processing_session_id" json:"processing_session_id,omitempty"`
	CreatedAt            time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
