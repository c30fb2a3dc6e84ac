package database

import (
	"fmt"

	"taskmanager/backend/models"

	"gorm.io/gorm"
)

// RunMigrations runs database migrations to ensure tables are up to date
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.Event{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
