package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/repository"
)

var (
	// ErrSubmissionNotFound matches any missing submission in errors.Is.
	ErrSubmissionNotFound = &models.NotFoundError{Entity: "submission"}
	// ErrTaskNotFound matches any missing task in errors.Is.
	ErrTaskNotFound = &models.NotFoundError{Entity: "task"}
	// ErrQuestionNotFound matches any missing question in errors.Is.
	ErrQuestionNotFound = &models.NotFoundError{Entity: "question"}
	// ErrUserNotFound matches any missing user in errors.Is.
	ErrUserNotFound = &models.NotFoundError{Entity: "user"}
)

// QueryService answers read-only lookups. Lists keep insertion order.
type QueryService interface {
	FindTaskByID(ctx context.Context, id string) (models.Task, error)
	FindQuestionByID(ctx context.Context, id string) (models.Question, error)
	FindSubmissionByID(ctx context.Context, id string) (models.Submission, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)
	ListSubmissionsForStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	ListSubmissionsForTask(ctx context.Context, taskID string) ([]models.Submission, error)
	ListSubmissions(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error)
	ListTasksForTeacher(ctx context.Context, teacherID string) ([]models.Task, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
	ListQuestions(ctx context.Context, difficulty *models.DifficultyLevel) ([]models.Question, error)
	FindBestQuestion(ctx context.Context, difficulty models.DifficultyLevel) (models.Question, error)
	ListUsers(ctx context.Context, role *models.Role) ([]models.User, error)
	SubmissionHistory(ctx context.Context, submissionID string) ([]models.SubmissionStatusHistory, error)
}

type queryService struct {
	users       repository.UserRepository
	questions   repository.QuestionRepository
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	cache       *taskListCache
	logger      zerolog.Logger
}

// QueryRepositories groups the repositories read by the query layer.
type QueryRepositories struct {
	Users       repository.UserRepository
	Questions   repository.QuestionRepository
	Tasks       repository.TaskRepository
	Submissions repository.SubmissionRepository
}

// NewQueryService constructs the lookup layer. cache may be nil.
func NewQueryService(repos QueryRepositories, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) QueryService {
	logger = logger.With().Str("component", "query_service").Logger()
	return &queryService{
		users:       repos.Users,
		questions:   repos.Questions,
		tasks:       repos.Tasks,
		submissions: repos.Submissions,
		cache:       newTaskListCache(cache, cacheTTL, logger),
		logger:      logger,
	}
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func (s *queryService) FindTaskByID(ctx context.Context, id string) (models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return models.Task{}, notFound(err, "task", id)
	}
	return task, nil
}

func (s *queryService) FindQuestionByID(ctx context.Context, id string) (models.Question, error) {
	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return models.Question{}, notFound(err, "question", id)
	}
	return question, nil
}

func (s *queryService) FindSubmissionByID(ctx context.Context, id string) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return models.Submission{}, notFound(err, "submission", id)
	}
	return submission, nil
}

func (s *queryService) FindUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, notFound(err, "user", id)
	}
	return user, nil
}

func (s *queryService) ListSubmissionsForStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	return s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
}

func (s *queryService) ListSubmissionsForTask(ctx context.Context, taskID string) ([]models.Submission, error) {
	return s.submissions.List(ctx, repository.SubmissionFilter{TaskID: &taskID})
}

func (s *queryService) ListSubmissions(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	return s.submissions.List(ctx, filter)
}

func (s *queryService) ListTasksForTeacher(ctx context.Context, teacherID string) ([]models.Task, error) {
	if cached, ok := s.cache.fetch(ctx, teacherID); ok {
		return cached, nil
	}

	tasks, err := s.tasks.List(ctx, repository.TaskFilter{TeacherID: &teacherID})
	if err != nil {
		return nil, err
	}
	s.cache.store(ctx, teacherID, tasks)
	return tasks, nil
}

func (s *queryService) ListTasks(ctx context.Context) ([]models.Task, error) {
	return s.tasks.List(ctx, repository.TaskFilter{})
}

func (s *queryService) ListQuestions(ctx context.Context, difficulty *models.DifficultyLevel) ([]models.Question, error) {
	return s.questions.List(ctx, repository.QuestionFilter{Difficulty: difficulty})
}

// FindBestQuestion returns the first question of the requested level, or the
// first question of the bank when that level has none.
func (s *queryService) FindBestQuestion(ctx context.Context, difficulty models.DifficultyLevel) (models.Question, error) {
	matching, err := s.questions.List(ctx, repository.QuestionFilter{Difficulty: &difficulty})
	if err != nil {
		return models.Question{}, err
	}
	if len(matching) > 0 {
		return matching[0], nil
	}

	all, err := s.questions.List(ctx, repository.QuestionFilter{})
	if err != nil {
		return models.Question{}, err
	}
	if len(all) == 0 {
		return models.Question{}, &models.NotFoundError{Entity: "question"}
	}
	return all[0], nil
}

func (s *queryService) ListUsers(ctx context.Context, role *models.Role) ([]models.User, error) {
	return s.users.List(ctx, repository.UserFilter{Role: role})
}

func (s *queryService) SubmissionHistory(ctx context.Context, submissionID string) ([]models.SubmissionStatusHistory, error) {
	return s.submissions.ListHistory(ctx, submissionID)
}
