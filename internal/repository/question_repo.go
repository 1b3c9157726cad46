package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/fumi-go-api/internal/models"
)

// QuestionFilter narrows question listings.
type QuestionFilter struct {
	Difficulty *models.DifficultyLevel
}

// QuestionRepository stores the immutable question bank.
type QuestionRepository interface {
	GetByID(ctx context.Context, id string) (models.Question, error)
	List(ctx context.Context, filter QuestionFilter) ([]models.Question, error)
	Create(ctx context.Context, question *models.Question) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) GetByID(ctx context.Context, id string) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&question).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *questionRepository) List(ctx context.Context, filter QuestionFilter) ([]models.Question, error) {
	query := r.db.WithContext(ctx).Model(&models.Question{})
	if filter.Difficulty != nil {
		query = query.Where("difficulty_level = ?", *filter.Difficulty)
	}

	var questions []models.Question
	if err := query.Order("seq ASC").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}
