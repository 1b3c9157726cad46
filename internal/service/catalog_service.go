package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/fumi-go-api/internal/dto"
	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/repository"
)

// CatalogService manages the question bank and teacher tasks.
type CatalogService interface {
	CreateQuestion(ctx context.Context, payload dto.QuestionCreateRequest, actor Actor) (models.Question, error)
	CreateTask(ctx context.Context, payload dto.TaskCreateRequest, actor Actor) (models.Task, error)
	DeleteTask(ctx context.Context, id string, actor Actor) error
}

type catalogService struct {
	questions   repository.QuestionRepository
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	cache       *taskListCache
	logger      zerolog.Logger
}

// NewCatalogService constructs the catalog service. cache may be nil.
func NewCatalogService(repos QueryRepositories, validate *validator.Validate, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) CatalogService {
	logger = logger.With().Str("component", "catalog_service").Logger()
	return &catalogService{
		questions:   repos.Questions,
		tasks:       repos.Tasks,
		submissions: repos.Submissions,
		validator:   validate,
		cache:       newTaskListCache(cache, cacheTTL, logger),
		logger:      logger,
	}
}

func (s *catalogService) CreateQuestion(ctx context.Context, payload dto.QuestionCreateRequest, actor Actor) (models.Question, error) {
	if !actor.is(models.RoleTeacher) {
		return models.Question{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return models.Question{}, err
	}
	level, ok := models.ParseDifficulty(payload.DifficultyLevel)
	if !ok {
		return models.Question{}, &models.ValidationError{Field: "difficulty_level", Err: fmt.Errorf("unknown difficulty %q", payload.DifficultyLevel)}
	}

	question := models.Question{
		QuestionText:    strings.TrimSpace(payload.QuestionText),
		DifficultyLevel: level,
		CreatedBy:       actor.ID,
	}
	if err := s.questions.Create(context.WithoutCancel(ctx), &question); err != nil {
		return models.Question{}, fmt.Errorf("create question: %w", err)
	}
	return question, nil
}

func (s *catalogService) CreateTask(ctx context.Context, payload dto.TaskCreateRequest, actor Actor) (models.Task, error) {
	if actor.ID == "" || !actor.is(models.RoleTeacher) {
		return models.Task{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return models.Task{}, err
	}

	question, err := s.questions.GetByID(ctx, payload.QuestionID)
	if err != nil {
		return models.Task{}, notFound(err, "question", payload.QuestionID)
	}

	task := models.Task{
		QuestionID: question.ID,
		TeacherID:  actor.ID,
		Deadline:   payload.Deadline.UTC(),
	}
	if len(payload.SubQuestions) > 0 {
		prompts := make([]string, 0, len(payload.SubQuestions))
		for _, prompt := range payload.SubQuestions {
			prompts = append(prompts, strings.TrimSpace(prompt))
		}
		task.SubQuestions = datatypes.JSONSlice[string](prompts)
	}

	if err := s.tasks.Create(context.WithoutCancel(ctx), &task); err != nil {
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.cache.invalidate(ctx, task.TeacherID)

	task.Question = question
	s.logger.Info().Str("task_id", task.ID).Str("teacher_id", task.TeacherID).Msg("task created")
	return task, nil
}

// DeleteTask hard-deletes a task owned by the actor. Tasks that already have
// submissions are kept.
func (s *catalogService) DeleteTask(ctx context.Context, id string, actor Actor) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "task", id)
	}
	if !actor.is(models.RoleTeacher) || (!actor.internal() && task.TeacherID != actor.ID) {
		return ErrForbidden
	}

	count, err := s.submissions.Count(ctx, repository.SubmissionFilter{TaskID: &task.ID})
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("delete task %s: %w", task.ID, models.ErrTaskInUse)
	}

	if err := s.tasks.Delete(context.WithoutCancel(ctx), task.ID); err != nil {
		return notFound(err, "task", id)
	}
	s.cache.invalidate(ctx, task.TeacherID)

	s.logger.Info().Str("task_id", task.ID).Msg("task deleted")
	return nil
}
