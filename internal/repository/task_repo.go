package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/fumi-go-api/internal/models"
)

// TaskFilter narrows task listings.
type TaskFilter struct {
	TeacherID  *string
	QuestionID *string
}

// TaskRepository defines data operations for tasks.
type TaskRepository interface {
	GetByID(ctx context.Context, id string) (models.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository instantiates the repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Task{}).Preload("Question")
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	if err := r.baseQuery(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	query := r.baseQuery(ctx)
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.QuestionID != nil {
		query = query.Where("question_id = ?", *filter.QuestionID)
	}

	var tasks []models.Task
	if err := query.Order("seq ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
