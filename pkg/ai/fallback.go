package ai

import (
	"context"

	"github.com/rs/zerolog"
)

// FallbackGrader tries Primary and falls back to Secondary on error.
type FallbackGrader struct {
	primary   Grader
	secondary Grader
	logger    zerolog.Logger
}

// NewFallbackGrader chains two graders.
func NewFallbackGrader(primary, secondary Grader, logger zerolog.Logger) *FallbackGrader {
	return &FallbackGrader{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback_grader").Logger(),
	}
}

// Name reports the primary grader.
func (g *FallbackGrader) Name() string {
	return g.primary.Name()
}

func (g *FallbackGrader) Grade(ctx context.Context, input GradingInput) (GradingResult, error) {
	result, err := g.primary.Grade(ctx, input)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return GradingResult{}, err
	}

	g.logger.Warn().Err(err).
		Str("submission_id", input.SubmissionID).
		Str("fallback", g.secondary.Name()).
		Msg("primary grader failed")
	return g.secondary.Grade(ctx, input)
}
