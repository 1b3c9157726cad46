package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/fumi-go-api/internal/models"
)

// Fixture is a consistent set of records loaded together.
type Fixture struct {
	Users       []models.User
	Questions   []models.Question
	Tasks       []models.Task
	Submissions []models.Submission
}

// SeedRepository inserts fixtures, skipping records whose id already exists.
type SeedRepository interface {
	Load(ctx context.Context, fixture Fixture) (int64, error)
}

type seedRepository struct {
	db *gorm.DB
}

// NewSeedRepository instantiates the repository.
func NewSeedRepository(db *gorm.DB) SeedRepository {
	return &seedRepository{db: db}
}

func (r *seedRepository) Load(ctx context.Context, fixture Fixture) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := func(value interface{}, empty bool) error {
			if empty {
				return nil
			}
			result := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(value)
			affected += result.RowsAffected
			return result.Error
		}

		if err := insert(&fixture.Users, len(fixture.Users) == 0); err != nil {
			return err
		}
		if err := insert(&fixture.Questions, len(fixture.Questions) == 0); err != nil {
			return err
		}
		if err := insert(&fixture.Tasks, len(fixture.Tasks) == 0); err != nil {
			return err
		}
		return insert(&fixture.Submissions, len(fixture.Submissions) == 0)
	})
	return affected, err
}
