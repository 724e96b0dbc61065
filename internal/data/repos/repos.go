package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/vidcourse-backend/internal/data/repos/courses"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

type CourseRepo = courses.CourseRepo
type SegmentRepo = courses.SegmentRepo
type QuestionRepo = courses.QuestionRepo
type ProgressRepo = courses.ProgressRepo

type SegmentTransition = courses.Transition
type ProgressAdvance = courses.ProgressAdvance

var (
	ErrTransitionConflict = courses.ErrTransitionConflict
	ErrIllegalTransition  = courses.ErrIllegalTransition
	ErrSegmentsExist      = courses.ErrSegmentsExist
)

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return courses.NewCourseRepo(db, baseLog)
}
func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
	return courses.NewSegmentRepo(db, baseLog)
}
func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return courses.NewQuestionRepo(db, baseLog)
}
func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return courses.NewProgressRepo(db, baseLog)
}
