package ai

import "context"

// GradingInput contains what a grader needs to assess one piece of writing.
type GradingInput struct {
	SubmissionID string
	QuestionText string
	// Difficulty is a JLPT level such as "N5".
	Difficulty string
	Content    string
}

// GradingResult is a score in [0, 100] plus the raw feedback payload.
type GradingResult struct {
	Score    float64
	Feedback string
}

// Grader produces an AI grade for a submission.
type Grader interface {
	Grade(ctx context.Context, input GradingInput) (GradingResult, error)
	Name() string
}
