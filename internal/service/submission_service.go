package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/fumi-go-api/internal/dto"
	"github.com/noah-isme/fumi-go-api/internal/feedback"
	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/observability"
	"github.com/noah-isme/fumi-go-api/internal/repository"
)

const submissionTracer = "github.com/noah-isme/fumi-go-api/internal/service/submission"

// SubmissionEventPublisher receives committed status transitions.
type SubmissionEventPublisher interface {
	Publish(event models.SubmissionEvent)
}

// GradingDispatcher hands freshly submitted work to the AI grading collaborator.
type GradingDispatcher interface {
	Dispatch(ctx context.Context, event models.SubmissionEvent) error
}

// SubmissionConfig tunes the grading workflow.
type SubmissionConfig struct {
	// RequireAIGrade disables teacher grading straight from Submitted.
	RequireAIGrade bool
}

// SubmissionRepositories groups the repositories used by the lifecycle service.
type SubmissionRepositories struct {
	Submissions repository.SubmissionRepository
	Tasks       repository.TaskRepository
	Users       repository.UserRepository
}

// SubmissionService drives submissions through their grading lifecycle.
type SubmissionService interface {
	Create(ctx context.Context, payload dto.SubmissionCreateRequest, actor Actor) (models.Submission, error)
	SaveDraft(ctx context.Context, id string, content string, actor Actor) (models.Submission, error)
	Submit(ctx context.Context, id string, actor Actor) (models.Submission, error)
	DeliverAIGrade(ctx context.Context, id string, score float64, rawFeedback *string, actor Actor) (models.Submission, error)
	Grade(ctx context.Context, id string, score int, teacherFeedback string, actor Actor) (models.Submission, error)
	MarkReviewed(ctx context.Context, id string, actor Actor) (models.Submission, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	tasks       repository.TaskRepository
	users       repository.UserRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	events      SubmissionEventPublisher
	dispatcher  GradingDispatcher
	config      SubmissionConfig
	locks       *keyedMutex
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the lifecycle service. events and
// dispatcher may be nil.
func NewSubmissionService(repos SubmissionRepositories, validate *validator.Validate, events SubmissionEventPublisher, dispatcher GradingDispatcher, cfg SubmissionConfig, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: repos.Submissions,
		tasks:       repos.Tasks,
		users:       repos.Users,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		events:      events,
		dispatcher:  dispatcher,
		config:      cfg,
		locks:       newKeyedMutex(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, payload dto.SubmissionCreateRequest, actor Actor) (models.Submission, error) {
	ctx, span := otel.Tracer(submissionTracer).Start(ctx, "submission.create")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return models.Submission{}, s.reject(span, "create", err)
	}

	studentID := strings.TrimSpace(payload.StudentID)
	if studentID == "" {
		studentID = actor.ID
	}
	if studentID == "" {
		return models.Submission{}, s.reject(span, "create", &models.ValidationError{Field: "student_id", Err: errors.New("student id is required")})
	}
	if !actor.is(models.RoleStudent) || (!actor.internal() && studentID != actor.ID) {
		return models.Submission{}, s.reject(span, "create", ErrForbidden)
	}
	span.SetAttributes(
		attribute.String("submission.task_id", payload.TaskID),
		attribute.String("submission.student_id", studentID),
	)

	task, err := s.tasks.GetByID(ctx, payload.TaskID)
	if err != nil {
		return models.Submission{}, s.reject(span, "create", notFound(err, "task", payload.TaskID))
	}
	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return models.Submission{}, s.reject(span, "create", notFound(err, "user", studentID))
	}
	if student.Role != models.RoleStudent {
		return models.Submission{}, s.reject(span, "create", &models.ValidationError{Field: "student_id", Err: errors.New("user is not a student")})
	}

	now := s.now()
	submission := models.Submission{
		TaskID:    task.ID,
		StudentID: student.ID,
		Content:   payload.Content,
		Status:    models.SubmissionStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if payload.Action == dto.SubmissionActionSubmit {
		if err := submission.Submit(now); err != nil {
			return models.Submission{}, s.reject(span, "create", err)
		}
	}

	history := &models.SubmissionStatusHistory{
		FromStatus: models.SubmissionStatusDraft,
		ToStatus:   submission.Status,
		ActorID:    actor.ID,
		Metadata:   datatypes.JSONMap{"operation": "create"},
		CreatedAt:  now,
	}
	if err := s.submissions.Create(context.WithoutCancel(ctx), &submission, history); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_create_failed")
		return models.Submission{}, fmt.Errorf("create submission: %w", err)
	}

	submission.Task = task
	submission.Student = student
	span.SetAttributes(attribute.String("submission.id", submission.ID))
	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("task_id", task.ID).
		Str("status", submission.Status.String()).
		Msg("submission created")

	if submission.Status != models.SubmissionStatusDraft {
		s.afterCommit(ctx, submission, models.SubmissionStatusDraft)
	}
	return submission, nil
}

func (s *submissionService) SaveDraft(ctx context.Context, id string, content string, actor Actor) (models.Submission, error) {
	return s.mutate(ctx, "save_draft", id, actor, ownerOnly(actor), func(submission *models.Submission) (bool, error) {
		return true, submission.SaveDraft(content, s.now())
	})
}

func (s *submissionService) Submit(ctx context.Context, id string, actor Actor) (models.Submission, error) {
	return s.mutate(ctx, "submit", id, actor, ownerOnly(actor), func(submission *models.Submission) (bool, error) {
		return true, submission.Submit(s.now())
	})
}

func (s *submissionService) DeliverAIGrade(ctx context.Context, id string, score float64, rawFeedback *string, actor Actor) (models.Submission, error) {
	authorize := func(models.Submission) error {
		if !actor.is(models.RoleReviewer, models.RoleTeacher) {
			return ErrForbidden
		}
		return nil
	}

	submission, err := s.mutate(ctx, "ai_grade", id, actor, authorize, func(submission *models.Submission) (bool, error) {
		return true, submission.ApplyAIGrade(score, rawFeedback, s.now())
	})
	if err != nil {
		return submission, err
	}

	if rawFeedback != nil {
		if err := feedback.Validate(*rawFeedback); err != nil {
			observability.FeedbackNonConforming().Inc()
			s.logger.Warn().Err(err).Str("submission_id", id).Msg("ai feedback does not match the feedback schema")
		}
	}
	return submission, nil
}

func (s *submissionService) Grade(ctx context.Context, id string, score int, teacherFeedback string, actor Actor) (models.Submission, error) {
	authorize := func(submission models.Submission) error {
		if !actor.is(models.RoleTeacher) {
			return ErrForbidden
		}
		if !actor.internal() && submission.Task.TeacherID != actor.ID {
			return ErrForbidden
		}
		return nil
	}

	cleaned := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(teacherFeedback)))
	return s.mutate(ctx, "grade", id, actor, authorize, func(submission *models.Submission) (bool, error) {
		if submission.IsTeacherGradeReplay(score, cleaned) {
			return false, nil
		}
		if err := models.ValidateTeacherGrade(score, cleaned); err != nil {
			return false, err
		}
		if s.config.RequireAIGrade && submission.Status == models.SubmissionStatusSubmitted {
			return false, &models.StateError{Op: "grade", Status: submission.Status, Err: models.ErrAIGradePending}
		}
		return true, submission.ApplyTeacherGrade(score, cleaned, s.now())
	})
}

func (s *submissionService) MarkReviewed(ctx context.Context, id string, actor Actor) (models.Submission, error) {
	authorize := func(models.Submission) error {
		if !actor.is(models.RoleReviewer) {
			return ErrForbidden
		}
		return nil
	}
	return s.mutate(ctx, "review", id, actor, authorize, func(submission *models.Submission) (bool, error) {
		return true, submission.MarkReviewed(s.now())
	})
}

// ownerOnly lets a student act on their own submissions.
func ownerOnly(actor Actor) func(models.Submission) error {
	return func(submission models.Submission) error {
		if actor.internal() {
			return nil
		}
		if actor.Role != models.RoleStudent || submission.StudentID != actor.ID {
			return ErrForbidden
		}
		return nil
	}
}

// mutate loads the submission under its lock, applies one transition and
// persists it behind a status guard. apply reports false for a no-op.
func (s *submissionService) mutate(
	ctx context.Context,
	op string,
	id string,
	actor Actor,
	authorize func(models.Submission) error,
	apply func(*models.Submission) (bool, error),
) (models.Submission, error) {
	ctx, span := otel.Tracer(submissionTracer).Start(ctx, "submission."+op)
	span.SetAttributes(
		attribute.String("submission.id", id),
		attribute.String("submission.actor_id", actor.ID),
	)
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return models.Submission{}, s.reject(span, op, notFound(err, "submission", id))
	}
	if err := authorize(current); err != nil {
		return models.Submission{}, s.reject(span, op, err)
	}

	from := current.Status
	next := current
	changed, err := apply(&next)
	if err != nil {
		return models.Submission{}, s.reject(span, op, err)
	}
	if !changed {
		span.SetAttributes(attribute.Bool("submission.idempotent", true))
		return current, nil
	}

	var history *models.SubmissionStatusHistory
	if next.Status != from {
		history = &models.SubmissionStatusHistory{
			FromStatus: from,
			ToStatus:   next.Status,
			ActorID:    actor.ID,
			Metadata:   transitionMetadata(op, next),
			CreatedAt:  next.UpdatedAt,
		}
	}

	if err := s.submissions.Transition(context.WithoutCancel(ctx), &next, from, history); err != nil {
		if errors.Is(err, models.ErrConcurrentUpdate) {
			return models.Submission{}, s.reject(span, op, &models.StateError{Op: op, Status: from, Err: err})
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return models.Submission{}, fmt.Errorf("%s submission %s: %w", op, id, err)
	}

	span.SetAttributes(attribute.String("submission.status", next.Status.String()))
	if next.Status != from {
		s.logger.Info().
			Str("submission_id", id).
			Str("from", from.String()).
			Str("to", next.Status.String()).
			Str("actor_id", actor.ID).
			Msg("submission transitioned")
		s.afterCommit(ctx, next, from)
	}
	return next, nil
}

func (s *submissionService) afterCommit(ctx context.Context, submission models.Submission, from models.SubmissionStatus) {
	observability.SubmissionTransitions().WithLabelValues(from.String(), submission.Status.String()).Inc()

	event := models.SubmissionEvent{
		SubmissionID: submission.ID,
		TaskID:       submission.TaskID,
		StudentID:    submission.StudentID,
		From:         from,
		To:           submission.Status,
		OccurredAt:   submission.UpdatedAt,
	}
	if s.events != nil {
		s.events.Publish(event)
	}
	if submission.Status == models.SubmissionStatusSubmitted && s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), event); err != nil {
			s.logger.Error().Err(err).Str("submission_id", submission.ID).Msg("failed to dispatch grading")
		}
	}
}

func (s *submissionService) reject(span trace.Span, op string, err error) error {
	kind := ErrorKind(err)
	observability.SubmissionRejections().WithLabelValues(op, kind).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)
	return err
}

func transitionMetadata(op string, submission models.Submission) datatypes.JSONMap {
	metadata := datatypes.JSONMap{"operation": op}
	if submission.AIScore != nil && op == "ai_grade" {
		metadata["ai_score"] = *submission.AIScore
	}
	if submission.TeacherScore != nil && op == "grade" {
		metadata["teacher_score"] = *submission.TeacherScore
	}
	return metadata
}

// ErrorKind classifies an error for metrics and transport mapping.
func ErrorKind(err error) string {
	var validationErr *models.ValidationError
	var stateErr *models.StateError
	var notFoundErr *models.NotFoundError
	var fieldErrs validator.ValidationErrors

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr), errors.As(err, &fieldErrs):
		return "validation"
	case errors.As(err, &stateErr), errors.Is(err, models.ErrTaskInUse):
		return "state"
	case errors.As(err, &notFoundErr):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}
