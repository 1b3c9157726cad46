package service

import (
	"errors"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/repository"
)

// ErrForbidden indicates the actor may not act on the requested resource.
var ErrForbidden = errors.New("forbidden")

// Actor identifies who performs a mutation. A zero Role marks a trusted
// internal caller such as the grading worker.
type Actor struct {
	ID   string
	Role models.Role
}

// SystemActor is used by background components.
var SystemActor = Actor{ID: "system"}

func (a Actor) internal() bool {
	return a.Role == ""
}

func (a Actor) is(roles ...models.Role) bool {
	if a.internal() {
		return true
	}
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// CanRead reports whether the actor may see the submission. The owning
// student always can; the task's teacher once it has been submitted; any
// reviewer once it has been reviewed. submission.Task must be loaded.
func CanRead(actor Actor, submission models.Submission) bool {
	if actor.internal() {
		return true
	}
	switch actor.Role {
	case models.RoleStudent:
		return submission.StudentID == actor.ID
	case models.RoleTeacher:
		return submission.Task.TeacherID == actor.ID && submission.Status >= models.SubmissionStatusSubmitted
	case models.RoleReviewer:
		return submission.Status == models.SubmissionStatusReviewed
	default:
		return false
	}
}

// ReadableFilter narrows filter to the submissions CanRead would allow.
func ReadableFilter(actor Actor, filter repository.SubmissionFilter) repository.SubmissionFilter {
	if actor.internal() {
		return filter
	}
	switch actor.Role {
	case models.RoleStudent:
		own := actor.ID
		filter.StudentID = &own
	case models.RoleTeacher:
		own := actor.ID
		submitted := models.SubmissionStatusSubmitted
		filter.TeacherID = &own
		filter.MinStatus = &submitted
	case models.RoleReviewer:
		reviewed := models.SubmissionStatusReviewed
		filter.Status = &reviewed
	default:
		nobody := ""
		filter.StudentID = &nobody
	}
	return filter
}
