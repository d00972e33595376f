package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/eduplanner-backend/internal/domain"
	"github.com/yungbote/eduplanner-backend/internal/platform/kvstore"
)

func AutoMigrateAll(db *gorm.DB) error {
	models := append(domain.Models(), kvstore.Models()...)
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
