package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fumi-go-api/internal/dto"
	"github.com/noah-isme/fumi-go-api/internal/models"
)

func TestCatalogServiceCreateTask(t *testing.T) {
	f := newServiceFixture(t, SubmissionConfig{})
	catalog := NewCatalogService(f.repos, validator.New(), nil, time.Minute, testLogger())
	ctx := context.Background()

	task, err := catalog.CreateTask(ctx, dto.TaskCreateRequest{
		QuestionID:   "q2",
		Deadline:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		SubQuestions: []string{" 好きな季節は何ですか。", "どうしてですか。"},
	}, teacher1)
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	require.Equal(t, "teacher1", task.TeacherID)
	require.Equal(t, "q2", task.Question.ID)

	stored, err := f.queries.FindTaskByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"好きな季節は何ですか。", "どうしてですか。"}, []string(stored.SubQuestions))

	_, err = catalog.CreateTask(ctx, dto.TaskCreateRequest{QuestionID: "missing", Deadline: time.Now()}, teacher1)
	require.ErrorIs(t, err, ErrQuestionNotFound)

	_, err = catalog.CreateTask(ctx, dto.TaskCreateRequest{QuestionID: "q2", Deadline: time.Now()}, student1)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = catalog.CreateTask(ctx, dto.TaskCreateRequest{Deadline: time.Now()}, teacher1)
	require.Error(t, err)
	require.Equal(t, "validation", ErrorKind(err))
}

func TestCatalogServiceDeleteTask(t *testing.T) {
	f := newServiceFixture(t, SubmissionConfig{})
	catalog := NewCatalogService(f.repos, validator.New(), nil, time.Minute, testLogger())
	ctx := context.Background()

	err := catalog.DeleteTask(ctx, "task1", teacher1)
	require.ErrorIs(t, err, models.ErrTaskInUse)
	require.Equal(t, "state", ErrorKind(err))

	task, err := catalog.CreateTask(ctx, dto.TaskCreateRequest{QuestionID: "q3", Deadline: time.Now().Add(time.Hour)}, teacher1)
	require.NoError(t, err)

	err = catalog.DeleteTask(ctx, task.ID, Actor{ID: "teacher2", Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, catalog.DeleteTask(ctx, task.ID, teacher1))
	_, err = f.queries.FindTaskByID(ctx, task.ID)
	require.ErrorIs(t, err, ErrTaskNotFound)

	err = catalog.DeleteTask(ctx, task.ID, teacher1)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCatalogServiceCreateQuestion(t *testing.T) {
	f := newServiceFixture(t, SubmissionConfig{})
	catalog := NewCatalogService(f.repos, validator.New(), nil, time.Minute, testLogger())
	ctx := context.Background()

	question, err := catalog.CreateQuestion(ctx, dto.QuestionCreateRequest{QuestionText: "日本の食べ物について書いてください。", DifficultyLevel: "N2"}, teacher1)
	require.NoError(t, err)
	require.Equal(t, models.DifficultyN2, question.DifficultyLevel)
	require.Equal(t, "teacher1", question.CreatedBy)

	_, err = catalog.CreateQuestion(ctx, dto.QuestionCreateRequest{QuestionText: "x", DifficultyLevel: "N9"}, teacher1)
	require.Equal(t, "validation", ErrorKind(err))

	_, err = catalog.CreateQuestion(ctx, dto.QuestionCreateRequest{QuestionText: "x", DifficultyLevel: "N5"}, reviewer1)
	require.ErrorIs(t, err, ErrForbidden)
}
