package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fumi-go-api/internal/feedback"
)

func TestHeuristicGraderShortAnswer(t *testing.T) {
	result, err := NewHeuristicGrader().Grade(context.Background(), GradingInput{Content: "テスト", Difficulty: "N5"})
	require.NoError(t, err)
	require.InDelta(t, 3.7, result.Score, 1e-9)

	view := feedback.DecodeString(result.Feedback)
	require.Equal(t, "D", *view.Grade)
	require.Equal(t, feedback.SchemaVersion, *view.Version)
	require.Contains(t, *view.FeedbackText, "Try to write more content")
	require.Contains(t, *view.FeedbackText, "Try using more complete sentences.")
	require.Len(t, view.ActionPlan, 4)
	require.NoError(t, feedback.Validate(result.Feedback))
}

func TestHeuristicGraderLongAnswerAtHigherLevel(t *testing.T) {
	content := strings.Repeat("私は毎日学校に行きます。", 20)
	view := HeuristicFeedback(content, "n1")

	require.Equal(t, 100.0, *view.OverallScore)
	require.Equal(t, "B", *view.Grade)
	require.Contains(t, *view.FeedbackText, "Good length!")
	require.Contains(t, *view.FeedbackText, "Good use of Japanese characters.")
}

func TestHeuristicGraderMidLengthGradeC(t *testing.T) {
	// 62 * 1.2 * 0.8 = 59.52 at N3, just under the C threshold.
	content := "富士山は日本で一番高い山です。私は春が好きです。桜がきれいです"
	require.Equal(t, 31, len([]rune(content)))

	view := HeuristicFeedback(content, "N3")
	require.InDelta(t, 59.5, *view.OverallScore, 1e-9)
	require.Equal(t, "D", *view.Grade)
}

func TestHeuristicGraderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHeuristicGrader().Grade(ctx, GradingInput{Content: "テスト"})
	require.ErrorIs(t, err, context.Canceled)
}

type failingGrader struct{}

func (failingGrader) Name() string { return "failing" }

func (failingGrader) Grade(context.Context, GradingInput) (GradingResult, error) {
	return GradingResult{}, errors.New("upstream unavailable")
}

func TestFallbackGraderUsesSecondary(t *testing.T) {
	grader := NewFallbackGrader(failingGrader{}, NewHeuristicGrader(), zerolog.Nop())
	require.Equal(t, "failing", grader.Name())

	result, err := grader.Grade(context.Background(), GradingInput{Content: "テスト", Difficulty: "N5"})
	require.NoError(t, err)
	require.InDelta(t, 3.7, result.Score, 1e-9)
}

func TestParseGradingResponse(t *testing.T) {
	result, err := parseGradingResponse(`{"grade":"A","overallScore":120}`)
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Score)
	require.Equal(t, `{"grade":"A","overallScore":120}`, result.Feedback)

	_, err = parseGradingResponse(`{"grade":"A"}`)
	require.Error(t, err)

	_, err = parseGradingResponse(`not json`)
	require.Error(t, err)
}
