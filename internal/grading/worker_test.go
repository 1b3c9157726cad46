package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/fumi-go-api/internal/dto"
	"github.com/noah-isme/fumi-go-api/internal/feedback"
	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/repository"
	"github.com/noah-isme/fumi-go-api/internal/service"
	"github.com/noah-isme/fumi-go-api/pkg/ai"
)

type gradingFixture struct {
	submissions service.SubmissionService
	queries     service.QueryService
	dispatcher  *LocalDispatcher
}

func newGradingFixture(t *testing.T, grader func(service.SubmissionService) ai.Grader) gradingFixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:grading_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Question{}, &models.Task{}, &models.Submission{}, &models.SubmissionStatusHistory{}))

	_, err = repository.NewSeedRepository(db).Load(context.Background(), service.DemoFixture())
	require.NoError(t, err)

	repos := service.QueryRepositories{
		Users:       repository.NewUserRepository(db),
		Questions:   repository.NewQuestionRepository(db),
		Tasks:       repository.NewTaskRepository(db),
		Submissions: repository.NewSubmissionRepository(db),
	}
	dispatcher := NewLocalDispatcher(zerolog.Nop())
	submissions := service.NewSubmissionService(service.SubmissionRepositories{
		Submissions: repos.Submissions,
		Tasks:       repos.Tasks,
		Users:       repos.Users,
	}, validator.New(), nil, dispatcher, service.SubmissionConfig{}, zerolog.Nop())
	queries := service.NewQueryService(repos, nil, time.Minute, zerolog.Nop())

	dispatcher.Bind(NewWorker(submissions, queries, grader(submissions), time.Second, zerolog.Nop()))
	return gradingFixture{submissions: submissions, queries: queries, dispatcher: dispatcher}
}

func heuristic(service.SubmissionService) ai.Grader {
	return ai.NewHeuristicGrader()
}

var student1 = service.Actor{ID: "student1", Role: models.RoleStudent}

func TestWorkerGradesSubmittedWork(t *testing.T) {
	f := newGradingFixture(t, heuristic)
	ctx := context.Background()

	created, err := f.submissions.Create(ctx, dto.SubmissionCreateRequest{TaskID: "task1", Content: "テスト", Action: dto.SubmissionActionSubmit}, student1)
	require.NoError(t, err)
	f.dispatcher.Wait()

	graded, err := f.queries.FindSubmissionByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusAIGraded, graded.Status)
	require.InDelta(t, 3.7, *graded.AIScore, 1e-9)

	view := feedback.Decode(graded.AIFeedback)
	require.Equal(t, "D", *view.Grade)
	require.NotNil(t, view.DetailedAnalysis)
}

func TestWorkerSkipsSubmissionsNotAwaitingGrade(t *testing.T) {
	f := newGradingFixture(t, heuristic)
	ctx := context.Background()
	worker := f.dispatcher.worker

	require.NoError(t, worker.Process(ctx, models.SubmissionEvent{SubmissionID: "sub1"}))
	require.NoError(t, worker.Process(ctx, models.SubmissionEvent{SubmissionID: "sub4"}))

	sub4, err := f.queries.FindSubmissionByID(ctx, "sub4")
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusDraft, sub4.Status)

	err = worker.Process(ctx, models.SubmissionEvent{SubmissionID: "missing"})
	require.ErrorIs(t, err, service.ErrSubmissionNotFound)
}

type brokenGrader struct{}

func (brokenGrader) Name() string { return "broken" }

func (brokenGrader) Grade(context.Context, ai.GradingInput) (ai.GradingResult, error) {
	return ai.GradingResult{}, errors.New("model unavailable")
}

func TestWorkerLeavesSubmissionOnGraderFailure(t *testing.T) {
	f := newGradingFixture(t, func(service.SubmissionService) ai.Grader { return brokenGrader{} })
	ctx := context.Background()

	created, err := f.submissions.Create(ctx, dto.SubmissionCreateRequest{TaskID: "task1", Content: "テスト", Action: dto.SubmissionActionSubmit}, student1)
	require.NoError(t, err)
	f.dispatcher.Wait()

	err = f.dispatcher.worker.Process(ctx, models.SubmissionEvent{SubmissionID: created.ID})
	require.ErrorContains(t, err, "model unavailable")

	stored, err := f.queries.FindSubmissionByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	require.Nil(t, stored.AIScore)
}

// recoveringGrader fails until healthy is set, then grades heuristically.
type recoveringGrader struct {
	healthy *atomic.Bool
}

func (g recoveringGrader) Name() string { return "recovering" }

func (g recoveringGrader) Grade(ctx context.Context, input ai.GradingInput) (ai.GradingResult, error) {
	if !g.healthy.Load() {
		return ai.GradingResult{}, errors.New("model unavailable")
	}
	return ai.NewHeuristicGrader().Grade(ctx, input)
}

func TestSweeperRedispatchesAfterGraderFailure(t *testing.T) {
	healthy := &atomic.Bool{}
	f := newGradingFixture(t, func(service.SubmissionService) ai.Grader { return recoveringGrader{healthy: healthy} })
	ctx := context.Background()

	created, err := f.submissions.Create(ctx, dto.SubmissionCreateRequest{TaskID: "task1", Content: "テスト", Action: dto.SubmissionActionSubmit}, student1)
	require.NoError(t, err)
	f.dispatcher.Wait()

	stored, err := f.queries.FindSubmissionByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)

	healthy.Store(true)
	sweeper := NewSweeper(f.queries, f.dispatcher, zerolog.Nop())
	count, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	f.dispatcher.Wait()

	stored, err = f.queries.FindSubmissionByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusAIGraded, stored.Status)
	require.NotNil(t, stored.AIScore)

	// Nothing is left waiting, so a second sweep is a no-op.
	count, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSweeperSkipsUndispatchableWork(t *testing.T) {
	f := newGradingFixture(t, func(service.SubmissionService) ai.Grader { return brokenGrader{} })
	ctx := context.Background()

	_, err := f.submissions.Create(ctx, dto.SubmissionCreateRequest{TaskID: "task1", Content: "テスト", Action: dto.SubmissionActionSubmit}, student1)
	require.NoError(t, err)
	f.dispatcher.Wait()

	count, err := NewSweeper(f.queries, NewLocalDispatcher(zerolog.Nop()), zerolog.Nop()).Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

// teacherFirstGrader simulates a teacher grading while the model is running.
type teacherFirstGrader struct {
	submissions service.SubmissionService
}

func (g teacherFirstGrader) Name() string { return "slow" }

func (g teacherFirstGrader) Grade(ctx context.Context, input ai.GradingInput) (ai.GradingResult, error) {
	teacher := service.Actor{ID: "teacher1", Role: models.RoleTeacher}
	if _, err := g.submissions.Grade(ctx, input.SubmissionID, 75, "Graded by hand", teacher); err != nil {
		return ai.GradingResult{}, err
	}
	return ai.GradingResult{Score: 50, Feedback: `{"grade":"C"}`}, nil
}

func TestWorkerIgnoresLateAIGrade(t *testing.T) {
	f := newGradingFixture(t, func(svc service.SubmissionService) ai.Grader { return teacherFirstGrader{submissions: svc} })
	ctx := context.Background()

	created, err := f.submissions.Create(ctx, dto.SubmissionCreateRequest{TaskID: "task1", Content: "テスト", Action: dto.SubmissionActionSubmit}, student1)
	require.NoError(t, err)
	f.dispatcher.Wait()

	stored, err := f.queries.FindSubmissionByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusTeacherGraded, stored.Status)
	require.Nil(t, stored.AIScore)
	require.Equal(t, 75, *stored.TeacherScore)
}

func TestLocalDispatcherRequiresWorker(t *testing.T) {
	dispatcher := NewLocalDispatcher(zerolog.Nop())
	err := dispatcher.Dispatch(context.Background(), models.SubmissionEvent{SubmissionID: "sub1"})
	require.ErrorIs(t, err, ErrWorkerUnbound)
}
