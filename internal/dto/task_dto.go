package dto

import (
	"time"

	"github.com/noah-isme/fumi-go-api/internal/models"
)

// TaskCreateRequest describes the payload for creating a task.
type TaskCreateRequest struct {
	QuestionID   string    `json:"question_id" validate:"required,max=64"`
	Deadline     time.Time `json:"deadline" validate:"required"`
	SubQuestions []string  `json:"sub_questions" validate:"omitempty,dive,required,max=2000"`
}

// TaskResponse is returned to API clients when viewing tasks.
type TaskResponse struct {
	ID           string            `json:"id"`
	QuestionID   string            `json:"question_id"`
	TeacherID    string            `json:"teacher_id"`
	Deadline     time.Time         `json:"deadline"`
	PastDue      bool              `json:"past_due"`
	SubQuestions []string          `json:"sub_questions,omitempty"`
	Question     *QuestionResponse `json:"question,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewTaskResponse converts a Task model into a DTO.
func NewTaskResponse(model models.Task, reference time.Time) TaskResponse {
	response := TaskResponse{
		ID:           model.ID,
		QuestionID:   model.QuestionID,
		TeacherID:    model.TeacherID,
		Deadline:     model.Deadline,
		PastDue:      model.IsPastDue(reference),
		SubQuestions: []string(model.SubQuestions),
		CreatedAt:    model.CreatedAt,
	}
	if model.Question.ID != "" {
		question := NewQuestionResponse(model.Question)
		response.Question = &question
	}
	return response
}

// NewTaskResponseSlice converts task models into DTOs.
func NewTaskResponseSlice(items []models.Task, reference time.Time) []TaskResponse {
	responses := make([]TaskResponse, 0, len(items))
	for _, task := range items {
		responses = append(responses, NewTaskResponse(task, reference))
	}
	return responses
}
