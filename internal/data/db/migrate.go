package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/visionforge/classifier-backend/internal/domain"
)

func (s *PostgresService) AutoMigrateAll() error {
	if err := AutoMigrate(s.db); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Dataset{},
		&domain.Label{},
		&domain.Image{},
		&domain.Model{},
		&domain.Operation{},
		&domain.Collaborator{},
	)
}
