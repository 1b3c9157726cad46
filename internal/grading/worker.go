// Package grading connects submitted work to an AI grader and feeds the
// result back into the submission lifecycle.
package grading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/observability"
	"github.com/noah-isme/fumi-go-api/internal/service"
	"github.com/noah-isme/fumi-go-api/pkg/ai"
)

// SubmittedSubject carries submission.submitted events.
const SubmittedSubject = "fumi.submission.submitted"

// Worker grades one submitted submission per event.
type Worker struct {
	submissions service.SubmissionService
	queries     service.QueryService
	grader      ai.Grader
	timeout     time.Duration
	logger      zerolog.Logger
	inFlight    sync.Map
}

// NewWorker constructs a grading worker.
func NewWorker(submissions service.SubmissionService, queries service.QueryService, grader ai.Grader, timeout time.Duration, logger zerolog.Logger) *Worker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Worker{
		submissions: submissions,
		queries:     queries,
		grader:      grader,
		timeout:     timeout,
		logger:      logger.With().Str("component", "grading_worker").Logger(),
	}
}

// Process grades the submission named by event. Submissions that are no
// longer waiting for an AI grade are skipped.
func (w *Worker) Process(ctx context.Context, event models.SubmissionEvent) error {
	ctx, span := otel.Tracer("github.com/noah-isme/fumi-go-api/internal/grading").Start(ctx, "grading.process")
	span.SetAttributes(
		attribute.String("submission.id", event.SubmissionID),
		attribute.String("grading.grader", w.grader.Name()),
	)
	defer span.End()

	// A sweep may re-deliver an event the worker is still grading.
	if _, busy := w.inFlight.LoadOrStore(event.SubmissionID, struct{}{}); busy {
		w.logger.Debug().Str("submission_id", event.SubmissionID).Msg("grading already in flight")
		return nil
	}
	defer w.inFlight.Delete(event.SubmissionID)

	submission, err := w.queries.FindSubmissionByID(ctx, event.SubmissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return err
	}
	if submission.Status != models.SubmissionStatusSubmitted {
		w.logger.Debug().Str("submission_id", submission.ID).Str("status", submission.Status.String()).Msg("skipping grading")
		return nil
	}

	gradeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	result, err := w.grader.Grade(gradeCtx, ai.GradingInput{
		SubmissionID: submission.ID,
		QuestionText: submission.Task.Question.QuestionText,
		Difficulty:   string(submission.Task.Question.DifficultyLevel),
		Content:      submission.Content,
	})
	observability.GradingDuration().WithLabelValues(w.grader.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.GradingFailures().WithLabelValues(w.grader.Name()).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "grader_failed")
		return fmt.Errorf("grade submission %s: %w", submission.ID, err)
	}

	raw := result.Feedback
	if _, err := w.submissions.DeliverAIGrade(ctx, submission.ID, result.Score, &raw, service.SystemActor); err != nil {
		var stateErr *models.StateError
		if errors.As(err, &stateErr) {
			w.logger.Info().Str("submission_id", submission.ID).Err(err).Msg("ai grade no longer applicable")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "deliver_failed")
		return err
	}

	span.SetAttributes(attribute.Float64("grading.score", result.Score))
	w.logger.Info().Str("submission_id", submission.ID).Float64("score", result.Score).Msg("ai grade delivered")
	return nil
}
