package courses

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Segment struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID              uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_course_segment_index,priority:1" json:"course_id"`
	SegmentIndex          int            `gorm:"column:segment_index;not null;uniqueIndex:idx_course_segment_index,priority:2" json:"segment_index"`
	StartTime             float64        `gorm:"column:start_time;not null" json:"start_time"`
	EndTime               float64        `gorm:"column:end_time;not null" json:"end_time"`
	Status                SegmentStatus  `gorm:"column:status;not null;index" json:"status"`
	Attempts              int            `gorm:"column:attempts;not null" json:"attempts"`
	ProcessingStartedAt   *time.Time     `gorm:"column:processing_started_at;index" json:"processing_started_at,omitempty"`
	CompletedAt           *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ErrorMessage          string         `gorm:"column:error_message" json:"error_message,omitempty"`
	PlannedQuestionsCount int            `gorm:"column:planned_questions_count;not null" json:"planned_questions_count"`
	QuestionsCount        int            `gorm:"column:questions_count;not null" json:"questions_count"`
	CumulativeKeyConcepts datatypes.JSON `gorm:"column:cumulative_key_concepts;type:jsonb" json:"cumulative_key_concepts"`
	CreatedAt             time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null" json:"updated_at"`
}

func (Segment) TableName() string { return "course_segment" }

func (s *Segment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = SegmentPending
	}
	if len(s.CumulativeKeyConcepts) == 0 {
		s.CumulativeKeyConcepts = EncodeConcepts(nil)
	}
	return nil
}

// Concepts decodes cumulative_key_concepts; malformed payloads read as empty.
func (s *Segment) Concepts() []string {
	if s == nil || len(s.CumulativeKeyConcepts) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(s.CumulativeKeyConcepts, &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func (s *Segment) Duration() float64 {
	if s == nil {
		return 0
	}
	return s.EndTime - s.StartTime
}

func EncodeConcepts(concepts []string) datatypes.JSON {
	if concepts == nil {
		concepts = []string{}
	}
	raw, err := json.Marshal(concepts)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

// MergeConcepts appends next onto prior, keeping first-seen order and dropping
// blanks and case-insensitive duplicates.
func MergeConcepts(prior, next []string) []string {
	out := make([]string, 0, len(prior)+len(next))
	seen := make(map[string]bool, len(prior)+len(next))
	for _, list := range [][]string{prior, next} {
		for _, c := range list {
			c = strings.TrimSpace(c)
			key := strings.ToLower(c)
			if c == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}
