package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/fumi-go-api/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Task{},
		&models.Submission{},
		&models.SubmissionStatusHistory{},
	))
	return db
}

func seedTaskFixture(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{ID: "student1", Name: "Student A", Role: models.RoleStudent}).Error)
	require.NoError(t, db.Create(&models.User{ID: "student2", Name: "Student B", Role: models.RoleStudent}).Error)
	require.NoError(t, db.Create(&models.User{ID: "teacher1", Name: "Teacher A", Role: models.RoleTeacher}).Error)
	require.NoError(t, db.Create(&models.Question{ID: "q1", QuestionText: "「山」という漢字を使って、短い文を書いてください。", DifficultyLevel: models.DifficultyN5}).Error)
	require.NoError(t, db.Create(&models.Task{ID: "task1", QuestionID: "q1", TeacherID: "teacher1", Deadline: time.Date(2025, 1, 15, 23, 59, 59, 0, time.UTC)}).Error)
	require.NoError(t, db.Create(&models.Task{ID: "task2", QuestionID: "q1", TeacherID: "teacher1", Deadline: time.Date(2025, 1, 20, 23, 59, 59, 0, time.UTC)}).Error)
}

func TestSubmissionRepositoryListPreservesInsertionOrder(t *testing.T) {
	db := openTestDB(t)
	seedTaskFixture(t, db)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	fixtures := []models.Submission{
		{ID: "sub3", TaskID: "task2", StudentID: "student1", Content: "c"},
		{ID: "sub1", TaskID: "task1", StudentID: "student1", Content: "a"},
		{ID: "sub4", TaskID: "task1", StudentID: "student2", Content: "d"},
		{ID: "sub2", TaskID: "task1", StudentID: "student1", Content: "b"},
	}
	for i := range fixtures {
		require.NoError(t, repo.Create(ctx, &fixtures[i], nil))
	}

	student := "student1"
	submissions, err := repo.List(ctx, SubmissionFilter{StudentID: &student})
	require.NoError(t, err)
	require.Len(t, submissions, 3)
	require.Equal(t, []string{"sub3", "sub1", "sub2"}, []string{submissions[0].ID, submissions[1].ID, submissions[2].ID})

	task := "task1"
	count, err := repo.Count(ctx, SubmissionFilter{TaskID: &task})
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestSubmissionRepositoryFiltersByTeacherAndMinimumStatus(t *testing.T) {
	db := openTestDB(t)
	seedTaskFixture(t, db)
	require.NoError(t, db.Create(&models.User{ID: "teacher2", Name: "Teacher B", Role: models.RoleTeacher}).Error)
	require.NoError(t, db.Create(&models.Task{ID: "task3", QuestionID: "q1", TeacherID: "teacher2", Deadline: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}).Error)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	fixtures := []models.Submission{
		{ID: "sub1", TaskID: "task1", StudentID: "student1", Content: "a", Status: models.SubmissionStatusSubmitted},
		{ID: "sub2", TaskID: "task2", StudentID: "student1", Content: "b", Status: models.SubmissionStatusDraft},
		{ID: "sub3", TaskID: "task3", StudentID: "student2", Content: "c", Status: models.SubmissionStatusReviewed},
		{ID: "sub4", TaskID: "task2", StudentID: "student2", Content: "d", Status: models.SubmissionStatusTeacherGraded},
	}
	for i := range fixtures {
		require.NoError(t, repo.Create(ctx, &fixtures[i], nil))
	}

	teacher := "teacher1"
	submitted := models.SubmissionStatusSubmitted
	submissions, err := repo.List(ctx, SubmissionFilter{TeacherID: &teacher, MinStatus: &submitted})
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	require.Equal(t, "sub1", submissions[0].ID)
	require.Equal(t, "sub4", submissions[1].ID)

	other := "teacher2"
	count, err := repo.Count(ctx, SubmissionFilter{TeacherID: &other})
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestSubmissionRepositoryGetByIDAttachesTaskAndStudent(t *testing.T) {
	db := openTestDB(t)
	seedTaskFixture(t, db)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	submission := models.Submission{TaskID: "task1", StudentID: "student1", Content: "テスト"}
	require.NoError(t, repo.Create(ctx, &submission, nil))
	require.NotEmpty(t, submission.ID)

	loaded, err := repo.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, "task1", loaded.Task.ID)
	require.Equal(t, "q1", loaded.Task.Question.ID)
	require.Equal(t, "Student A", loaded.Student.Name)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryTransitionGuardsStatus(t *testing.T) {
	db := openTestDB(t)
	seedTaskFixture(t, db)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	submission := models.Submission{ID: "sub1", TaskID: "task1", StudentID: "student1", Content: "テスト"}
	require.NoError(t, repo.Create(ctx, &submission, nil))

	now := time.Now().UTC()
	require.NoError(t, submission.Submit(now))
	history := &models.SubmissionStatusHistory{FromStatus: models.SubmissionStatusDraft, ToStatus: models.SubmissionStatusSubmitted, ActorID: "student1"}
	require.NoError(t, repo.Transition(ctx, &submission, models.SubmissionStatusDraft, history))

	stale := submission
	stale.Content = "stale write"
	err := repo.Transition(ctx, &stale, models.SubmissionStatusDraft, &models.SubmissionStatusHistory{})
	require.ErrorIs(t, err, models.ErrConcurrentUpdate)

	loaded, err := repo.GetByID(ctx, "sub1")
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, loaded.Status)
	require.Equal(t, "テスト", loaded.Content)
	require.NotNil(t, loaded.SubmissionTime)

	entries, err := repo.ListHistory(ctx, "sub1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.SubmissionStatusSubmitted, entries[0].ToStatus)
}

func TestTaskRepositoryListAndDelete(t *testing.T) {
	db := openTestDB(t)
	seedTaskFixture(t, db)
	require.NoError(t, db.Create(&models.User{ID: "teacher2", Name: "Teacher B", Role: models.RoleTeacher}).Error)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	task := models.Task{QuestionID: "q1", TeacherID: "teacher2", Deadline: time.Now().Add(time.Hour), SubQuestions: []string{"一", "二"}}
	require.NoError(t, repo.Create(ctx, &task))

	teacher := "teacher1"
	tasks, err := repo.List(ctx, TaskFilter{TeacherID: &teacher})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, "task1", tasks[0].ID)
	require.Equal(t, "q1", tasks[0].Question.ID)

	loaded, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"一", "二"}, []string(loaded.SubQuestions))

	require.NoError(t, repo.Delete(ctx, task.ID))
	require.ErrorIs(t, repo.Delete(ctx, task.ID), gorm.ErrRecordNotFound)
}

func TestQuestionAndUserRepositoryFilters(t *testing.T) {
	db := openTestDB(t)
	seedTaskFixture(t, db)
	questions := NewQuestionRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, questions.Create(ctx, &models.Question{QuestionText: "あなたの好きな季節について書いてください。", DifficultyLevel: models.DifficultyN4}))

	level := models.DifficultyN4
	found, err := questions.List(ctx, QuestionFilter{Difficulty: &level})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NotEmpty(t, found[0].ID)

	role := models.RoleStudent
	students, err := users.List(ctx, UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "student1", students[0].ID)
}
