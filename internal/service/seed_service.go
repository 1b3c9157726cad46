package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads the demo fixture.
type SeedService interface {
	// SeedDemo loads the fixture on behalf of an operator holding the token.
	SeedDemo(ctx context.Context, token string) (int64, error)
	// LoadDemo loads the fixture unconditionally, used at startup.
	LoadDemo(ctx context.Context) (int64, error)
}

type seedService struct {
	repo    repository.SeedRepository
	enabled bool
	token   string
	logger  zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(repo repository.SeedRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:    repo,
		enabled: enabled,
		token:   token,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedDemo(ctx context.Context, token string) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}
	return s.LoadDemo(ctx)
}

func (s *seedService) LoadDemo(ctx context.Context) (int64, error) {
	fixture := DemoFixture()
	for _, submission := range fixture.Submissions {
		if err := submission.CheckInvariants(); err != nil {
			return 0, fmt.Errorf("demo fixture: %w", err)
		}
	}

	affected, err := s.repo.Load(ctx, fixture)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("affected", affected).Msg("demo fixture seeded")
	return affected, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

const demoFeedbackSub1 = `{"version":"v1","grade":"B+","feedbackText":"Good work! Your kanji usage is accurate and your sentences are well-structured. Consider adding more descriptive details.","actionPlan":["Practice using more adjectives to describe nouns","Work on connecting sentences with conjunctions","Review particle usage, especially は and が"],"practiceExercises":[{"title":"Adjective Practice","description":"Practice using い-adjectives and な-adjectives","example":"高い山、きれいな桜"},{"title":"Sentence Connection","description":"Use conjunctions like そして、でも、だから","example":"春が好きです。そして、桜がきれいです。"}],"detailedAnalysis":{"grammar":{"score":90,"issues":["Particle usage could be improved"],"suggestions":["Review the difference between は and が"]},"vocabulary":{"score":85,"strengths":["Good use of basic vocabulary"],"improvements":["Try using more varied vocabulary"]},"structure":{"score":80,"comments":["Sentences are clear but simple"]},"fluency":{"score":85,"feedback":"Natural flow, but could be more connected"},"content":{"score":85,"feedback":"Addresses the prompt well"}},"overallScore":85}`

const demoFeedbackSub3 = `{"version":"v1","grade":"A-","feedbackText":"Excellent essay! Your description is clear and well-organized. Great use of vocabulary.","actionPlan":["Practice using more complex sentence structures","Add more specific details about family activities","Work on using transitional phrases"],"practiceExercises":[{"title":"Complex Sentences","description":"Practice using subordinate clauses","example":"父は会社員なので、平日は忙しいです。"}],"detailedAnalysis":{"grammar":{"score":90,"issues":[],"suggestions":["Try using more complex grammar patterns"]},"vocabulary":{"score":88,"strengths":["Good variety of family-related vocabulary"],"improvements":["Add more descriptive adjectives"]},"structure":{"score":85,"comments":["Well-organized and logical flow"]},"fluency":{"score":90,"feedback":"Very natural and easy to read"},"content":{"score":88,"feedback":"Comprehensive description of family"}},"overallScore":88}`

// DemoFixture returns the demo users, questions, tasks and submissions.
func DemoFixture() repository.Fixture {
	at := func(value string) time.Time {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			panic(err)
		}
		return parsed
	}
	ptrTime := func(value string) *time.Time {
		parsed := at(value)
		return &parsed
	}
	ptrFloat := func(value float64) *float64 { return &value }
	ptrInt := func(value int) *int { return &value }
	ptrString := func(value string) *string { return &value }

	return repository.Fixture{
		Users: []models.User{
			{ID: "student1", Name: "student1", Role: models.RoleStudent},
			{ID: "student2", Name: "student2", Role: models.RoleStudent},
			{ID: "teacher1", Name: "teacher1", Role: models.RoleTeacher},
			{ID: "reviewer1", Name: "reviewer1", Role: models.RoleReviewer},
		},
		Questions: []models.Question{
			{ID: "q1", QuestionText: "「山」という漢字を使って、短い文を書いてください。", DifficultyLevel: models.DifficultyN5},
			{ID: "q2", QuestionText: "あなたの好きな季節について書いてください。", DifficultyLevel: models.DifficultyN4},
			{ID: "q3", QuestionText: `Translate: "I go to school every day"`, DifficultyLevel: models.DifficultyN4},
			{ID: "q4", QuestionText: "あなたの家族について200字で書いてください。", DifficultyLevel: models.DifficultyN3},
		},
		Tasks: []models.Task{
			{ID: "task1", QuestionID: "q1", TeacherID: "teacher1", Deadline: at("2025-01-15T23:59:59Z")},
			{ID: "task2", QuestionID: "q2", TeacherID: "teacher1", Deadline: at("2025-01-20T23:59:59Z")},
			{ID: "task3", QuestionID: "q4", TeacherID: "teacher1", Deadline: at("2025-01-25T23:59:59Z")},
		},
		Submissions: []models.Submission{
			{
				ID:              "sub1",
				TaskID:          "task1",
				StudentID:       "student1",
				Content:         "富士山は日本で一番高い山です。私は春が好きです。桜がとてもきれいだからです。",
				Status:          models.SubmissionStatusTeacherGraded,
				AIScore:         ptrFloat(85),
				AIFeedback:      ptrString(demoFeedbackSub1),
				TeacherScore:    ptrInt(88),
				TeacherFeedback: ptrString("Excellent effort! Your kanji is very neat."),
				SubmissionTime:  ptrTime("2025-01-05T10:30:00Z"),
				CreatedAt:       at("2025-01-05T10:30:00Z"),
				UpdatedAt:       at("2025-01-05T14:20:00Z"),
			},
			{
				ID:             "sub2",
				TaskID:         "task2",
				StudentID:      "student1",
				Content:        "私は毎日学校に行きます。",
				Status:         models.SubmissionStatusAIGraded,
				AIScore:        ptrFloat(92),
				AIFeedback:     ptrString("Perfect translation!"),
				SubmissionTime: ptrTime("2025-01-06T09:15:00Z"),
				CreatedAt:      at("2025-01-06T09:15:00Z"),
				UpdatedAt:      at("2025-01-06T09:15:00Z"),
			},
			{
				ID:              "sub3",
				TaskID:          "task3",
				StudentID:       "student1",
				Content:         "私の家族は四人です。父と母と弟がいます。父は会社員です。母は先生です。弟は高校生です。私たちはとても仲がいいです。週末によく一緒に出かけます。",
				Status:          models.SubmissionStatusTeacherGraded,
				AIScore:         ptrFloat(88),
				AIFeedback:      ptrString(demoFeedbackSub3),
				TeacherScore:    ptrInt(90),
				TeacherFeedback: ptrString("Great work! Your essay is well-written and engaging."),
				SubmissionTime:  ptrTime("2025-01-07T11:00:00Z"),
				CreatedAt:       at("2025-01-07T11:00:00Z"),
				UpdatedAt:       at("2025-01-07T16:30:00Z"),
			},
			{
				ID:        "sub4",
				TaskID:    "task1",
				StudentID: "student2",
				Content:   "山は高いです。春はいいです。",
				Status:    models.SubmissionStatusDraft,
				CreatedAt: at("2025-01-08T08:00:00Z"),
				UpdatedAt: at("2025-01-08T08:30:00Z"),
			},
		},
	}
}
