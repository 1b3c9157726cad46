package ai

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/fumi-go-api/internal/feedback"
)

var difficultyMultipliers = map[string]float64{
	"N5": 1.0,
	"N4": 1.1,
	"N3": 1.2,
	"N2": 1.3,
	"N1": 1.4,
}

// HeuristicGrader scores writing from length, sentence count and the share of
// Japanese script. It needs no network access.
type HeuristicGrader struct{}

// NewHeuristicGrader constructs the built-in grader.
func NewHeuristicGrader() *HeuristicGrader {
	return &HeuristicGrader{}
}

// Name identifies the grader in metrics.
func (g *HeuristicGrader) Name() string {
	return "heuristic"
}

// Grade never fails for non-cancelled contexts.
func (g *HeuristicGrader) Grade(ctx context.Context, input GradingInput) (GradingResult, error) {
	if err := ctx.Err(); err != nil {
		return GradingResult{}, err
	}

	view := HeuristicFeedback(input.Content, input.Difficulty)
	payload, err := feedback.Encode(view)
	if err != nil {
		return GradingResult{}, err
	}
	return GradingResult{Score: *view.OverallScore, Feedback: payload}, nil
}

// HeuristicFeedback builds the feedback view for content at a difficulty.
func HeuristicFeedback(content, difficulty string) feedback.View {
	length := utf8.RuneCountInString(strings.TrimSpace(content))
	score := math.Min(100, float64(length*2))
	multiplier, ok := difficultyMultipliers[strings.ToUpper(strings.TrimSpace(difficulty))]
	if !ok {
		multiplier = 1.0
	}
	score = math.Min(100, score*multiplier)

	var text strings.Builder
	text.WriteString("Your writing shows good effort. ")
	switch {
	case length < 50:
		text.WriteString("Try to write more content to better express your ideas. ")
		score *= 0.8
	case length > 200:
		text.WriteString("Good length! Your writing is detailed. ")
	default:
		text.WriteString("Good balance of content length. ")
	}

	if len(strings.Split(content, "。")) > 1 {
		text.WriteString("You used proper sentence structure. ")
	} else {
		text.WriteString("Try using more complete sentences. ")
		score *= 0.9
	}

	if countJapanese(content) > 10 {
		text.WriteString("Good use of Japanese characters. ")
	} else {
		text.WriteString("Try incorporating more Japanese vocabulary. ")
		score *= 0.85
	}

	score = math.Round(score*10) / 10
	grade := "D"
	switch {
	case score >= 80:
		grade = "B"
	case score >= 60:
		grade = "C"
	}

	feedbackText := text.String()
	return feedback.View{
		Grade:        &grade,
		FeedbackText: &feedbackText,
		ActionPlan: []string{
			"Practice writing complete sentences in Japanese",
			"Learn more vocabulary related to your topic",
			"Review grammar patterns for better structure",
			"Read example writings to understand different styles",
		},
		PracticeExercises: []feedback.PracticeExercise{
			{
				Title:       "Sentence Building",
				Description: "Create 5 complete sentences using the vocabulary from this lesson",
				Example:     stringPtr("私は学生です。日本語を勉強します。"),
			},
			{
				Title:       "Vocabulary Expansion",
				Description: "Find 10 new words related to your writing topic",
				Example:     stringPtr("学校 (school), 先生 (teacher), 本 (book)"),
			},
		},
		DetailedAnalysis: &feedback.DetailedAnalysis{
			Grammar: &feedback.GrammarAnalysis{
				Score:       floatPtr(75),
				Issues:      []string{"Some particles missing", "Verb conjugation could be improved"},
				Suggestions: []string{"Review particle usage (は、が、を)", "Practice verb forms"},
			},
			Vocabulary: &feedback.VocabularyAnalysis{
				Score:        floatPtr(80),
				Strengths:    []string{"Good basic vocabulary usage"},
				Improvements: []string{"Use more advanced expressions", "Incorporate topic-specific terms"},
			},
			Structure: &feedback.StructureAnalysis{
				Score:    floatPtr(70),
				Comments: []string{"Good paragraph structure but could use better transitions"},
			},
			Fluency: &feedback.NarrativeAnalysis{
				Score:    floatPtr(65),
				Feedback: stringPtr("Writing flows well but could be more natural"),
			},
			Content: &feedback.NarrativeAnalysis{
				Score:    floatPtr(85),
				Feedback: stringPtr("Content is relevant and well-developed"),
			},
		},
		OverallScore: &score,
	}
}

// countJapanese counts hiragana, katakana and CJK ideographs.
func countJapanese(content string) int {
	count := 0
	for _, r := range content {
		switch {
		case r >= 0x3040 && r <= 0x309F, r >= 0x30A0 && r <= 0x30FF, r >= 0x4E00 && r <= 0x9FFF:
			count++
		}
	}
	return count
}

func stringPtr(value string) *string {
	return &value
}

func floatPtr(value float64) *float64 {
	return &value
}
