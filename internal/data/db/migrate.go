package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&drafting.ThreadCheckpoint{},
	)
}
