package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/fumi-go-api/internal/feedback"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fumi",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of AI completion requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fumi",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of AI completion failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI chat completion API.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a new grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIGrader{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/fumi-go-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_grader").Logger(),
	}, nil
}

// Name identifies the grader in metrics.
func (g *OpenAIGrader) Name() string {
	return "openai"
}

// Grade asks the model for a v1 feedback payload and takes its overall score.
func (g *OpenAIGrader) Grade(parent context.Context, input GradingInput) (GradingResult, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.String("submission.id", input.SubmissionID),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: graderSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return g.fail(span, fmt.Errorf("openai grade: %w", err))
	}

	if len(resp.Choices) == 0 {
		return g.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	result, err := parseGradingResponse(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		return g.fail(span, err)
	}

	g.logger.Debug().
		Str("submission_id", input.SubmissionID).
		Int("total_tokens", resp.Usage.TotalTokens).
		Float64("score", result.Score).
		Msg("openai grade received")
	return result, nil
}

func (g *OpenAIGrader) fail(span trace.Span, err error) (GradingResult, error) {
	aiFailures.WithLabelValues(g.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return GradingResult{}, err
}

func graderSystemPrompt() string {
	return "You are a Japanese writing tutor grading a learner's answer. Respond with a JSON object using the keys " +
		"grade (letter grade), feedbackText, actionPlan (array of strings), practiceExercises (array of objects with " +
		"title, description and example), detailedAnalysis (grammar{score,issues,suggestions}, " +
		"vocabulary{score,strengths,improvements}, structure{score,comments}, fluency{score,feedback}, " +
		"content{score,feedback}) and overallScore. All scores are numbers from 0 to 100."
}

func buildUserPrompt(input GradingInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Level\n")
	builder.WriteString(input.Difficulty)
	builder.WriteString("\n\n## Question\n")
	builder.WriteString(input.QuestionText)
	builder.WriteString("\n\n## Answer\n")
	builder.WriteString(input.Content)
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseGradingResponse(content string) (GradingResult, error) {
	if !json.Valid([]byte(content)) {
		return GradingResult{}, fmt.Errorf("parse grading json: invalid json")
	}

	view := feedback.DecodeString(content)
	if view.OverallScore == nil {
		return GradingResult{}, fmt.Errorf("parse grading json: overallScore missing")
	}

	score := math.Max(0, math.Min(100, *view.OverallScore))
	return GradingResult{Score: score, Feedback: content}, nil
}
