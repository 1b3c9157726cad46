package grading

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/repository"
	"github.com/noah-isme/fumi-go-api/internal/service"
)

// Sweeper re-dispatches submissions that are still waiting for an AI grade,
// which picks up work whose grader call failed or whose event never reached
// a worker.
type Sweeper struct {
	queries    service.QueryService
	dispatcher service.GradingDispatcher
	logger     zerolog.Logger
	now        func() time.Time
}

// NewSweeper constructs a sweeper dispatching through dispatcher.
func NewSweeper(queries service.QueryService, dispatcher service.GradingDispatcher, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		queries:    queries,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "grading_sweeper").Logger(),
		now:        time.Now,
	}
}

// Sweep dispatches every submitted submission once and returns how many
// events were handed off.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	submitted := models.SubmissionStatusSubmitted
	pending, err := s.queries.ListSubmissions(ctx, repository.SubmissionFilter{Status: &submitted})
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, submission := range pending {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		event := models.SubmissionEvent{
			SubmissionID: submission.ID,
			TaskID:       submission.TaskID,
			StudentID:    submission.StudentID,
			From:         models.SubmissionStatusSubmitted,
			To:           models.SubmissionStatusSubmitted,
			OccurredAt:   s.now().UTC(),
		}
		if err := s.dispatcher.Dispatch(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("submission_id", submission.ID).Msg("failed to re-dispatch grading")
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// Run sweeps immediately and then every interval until ctx is done. A
// non-positive interval sweeps only once.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	s.sweepAndLog(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	count, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("grading sweep failed")
		return
	}
	if count > 0 {
		s.logger.Info().Int("dispatched", count).Msg("re-dispatched pending submissions")
	}
}
