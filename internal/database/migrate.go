package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/fumi-go-api/internal/models"
)

// Migrate creates or updates the tables of every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Task{},
		&models.Submission{},
		&models.SubmissionStatusHistory{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
