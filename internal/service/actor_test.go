package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/repository"
)

func TestCanRead(t *testing.T) {
	submission := func(status models.SubmissionStatus) models.Submission {
		return models.Submission{
			ID:        "sub1",
			StudentID: "student1",
			Status:    status,
			Task:      models.Task{ID: "task1", TeacherID: "teacher1"},
		}
	}

	cases := []struct {
		name   string
		actor  Actor
		status models.SubmissionStatus
		want   bool
	}{
		{"owner reads own draft", Actor{ID: "student1", Role: models.RoleStudent}, models.SubmissionStatusDraft, true},
		{"other student", Actor{ID: "student2", Role: models.RoleStudent}, models.SubmissionStatusReviewed, false},
		{"task teacher before submit", Actor{ID: "teacher1", Role: models.RoleTeacher}, models.SubmissionStatusDraft, false},
		{"task teacher after submit", Actor{ID: "teacher1", Role: models.RoleTeacher}, models.SubmissionStatusSubmitted, true},
		{"other teacher", Actor{ID: "teacher9", Role: models.RoleTeacher}, models.SubmissionStatusTeacherGraded, false},
		{"reviewer before review", Actor{ID: "reviewer1", Role: models.RoleReviewer}, models.SubmissionStatusAIGraded, false},
		{"reviewer after review", Actor{ID: "reviewer1", Role: models.RoleReviewer}, models.SubmissionStatusReviewed, true},
		{"internal caller", SystemActor, models.SubmissionStatusDraft, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CanRead(tc.actor, submission(tc.status)))
		})
	}
}

func TestReadableFilter(t *testing.T) {
	other := "student2"
	base := repository.SubmissionFilter{StudentID: &other}

	student := ReadableFilter(Actor{ID: "student1", Role: models.RoleStudent}, base)
	require.Equal(t, "student1", *student.StudentID)

	teacher := ReadableFilter(Actor{ID: "teacher1", Role: models.RoleTeacher}, base)
	require.Equal(t, "student2", *teacher.StudentID)
	require.Equal(t, "teacher1", *teacher.TeacherID)
	require.Equal(t, models.SubmissionStatusSubmitted, *teacher.MinStatus)

	reviewer := ReadableFilter(Actor{ID: "reviewer1", Role: models.RoleReviewer}, base)
	require.Equal(t, models.SubmissionStatusReviewed, *reviewer.Status)

	require.Equal(t, base, ReadableFilter(SystemActor, base))
	require.Nil(t, base.TeacherID)
}
