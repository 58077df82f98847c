package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/cart-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Running auto migrations", "driver", s.driver)
	return AutoMigrateAll(s.db)
}
