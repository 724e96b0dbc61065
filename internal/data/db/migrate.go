package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Course{},
		&types.Segment{},
		&types.Question{},
		&types.ProgressRecord{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
