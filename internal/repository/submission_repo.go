package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/fumi-go-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	TaskID    *string
	StudentID *string
	// TeacherID keeps submissions whose task belongs to the teacher.
	TeacherID *string
	Status    *models.SubmissionStatus
	MinStatus *models.SubmissionStatus
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	Count(ctx context.Context, filter SubmissionFilter) (int64, error)
	GetByID(ctx context.Context, id string) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission, history *models.SubmissionStatusHistory) error
	// Transition persists submission only if its stored status still equals
	// from, writing history (when non-nil) in the same transaction. It returns
	// models.ErrConcurrentUpdate when the guard does not match.
	Transition(ctx context.Context, submission *models.Submission, from models.SubmissionStatus, history *models.SubmissionStatusHistory) error
	ListHistory(ctx context.Context, submissionID string) ([]models.SubmissionStatusHistory, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Task").
		Preload("Task.Question").
		Preload("Student")
}

func applySubmissionFilter(query *gorm.DB, filter SubmissionFilter) *gorm.DB {
	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.TeacherID != nil {
		query = query.Where("task_id IN (SELECT id FROM tasks WHERE teacher_id = ?)", *filter.TeacherID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.MinStatus != nil {
		query = query.Where("status >= ?", *filter.MinStatus)
	}
	return query
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := applySubmissionFilter(r.db.WithContext(ctx).Model(&models.Submission{}), filter)

	var submissions []models.Submission
	if err := query.Order("seq ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) Count(ctx context.Context, filter SubmissionFilter) (int64, error) {
	var total int64
	query := applySubmissionFilter(r.db.WithContext(ctx).Model(&models.Submission{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission, history *models.SubmissionStatusHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(submission).Error; err != nil {
			return err
		}
		if history == nil {
			return nil
		}
		history.SubmissionID = submission.ID
		return tx.Create(history).Error
	})
}

func (r *submissionRepository) Transition(ctx context.Context, submission *models.Submission, from models.SubmissionStatus, history *models.SubmissionStatusHistory) error {
	updates := map[string]interface{}{
		"content":          submission.Content,
		"status":           submission.Status,
		"ai_score":         submission.AIScore,
		"ai_feedback":      submission.AIFeedback,
		"teacher_score":    submission.TeacherScore,
		"teacher_feedback": submission.TeacherFeedback,
		"submission_time":  submission.SubmissionTime,
		"updated_at":       submission.UpdatedAt,
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", submission.ID, from).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrConcurrentUpdate
		}
		if history == nil {
			return nil
		}
		history.SubmissionID = submission.ID
		return tx.Create(history).Error
	})
}

func (r *submissionRepository) ListHistory(ctx context.Context, submissionID string) ([]models.SubmissionStatusHistory, error) {
	var history []models.SubmissionStatusHistory
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("id ASC").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}
