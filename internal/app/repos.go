package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

type Repos struct {
	Course   repos.CourseRepo
	Segment  repos.SegmentRepo
	Question repos.QuestionRepo
	Progress repos.ProgressRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:   repos.NewCourseRepo(db, log),
		Segment:  repos.NewSegmentRepo(db, log),
		Question: repos.NewQuestionRepo(db, log),
		Progress: repos.NewProgressRepo(db, log),
	}
}
