package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/noah-isme/fumi-go-api/internal/feedback"
	"github.com/noah-isme/fumi-go-api/internal/models"
)

// Submission actions accepted on creation.
const (
	SubmissionActionSave   = "save"
	SubmissionActionSubmit = "submit"
)

// SubmissionCreateRequest starts a new submission. StudentID defaults to the
// authenticated student.
type SubmissionCreateRequest struct {
	TaskID    string `json:"task_id" validate:"required,max=64"`
	StudentID string `json:"student_id" validate:"omitempty,max=64"`
	Content   string `json:"content"`
	Action    string `json:"action" validate:"omitempty,oneof=save submit"`
}

// SubmissionDraftRequest replaces the content of a draft.
type SubmissionDraftRequest struct {
	Content string `json:"content"`
}

// SubmissionGradeRequest carries a teacher grade. The score range is checked
// by the submission itself so the caller gets the domain message.
type SubmissionGradeRequest struct {
	TeacherScore    *int   `json:"teacher_score" validate:"required"`
	TeacherFeedback string `json:"teacher_feedback"`
}

// AIGradeRequest is delivered by the external grading collaborator.
// AIFeedback may be a JSON string holding the payload or the payload itself.
type AIGradeRequest struct {
	AIScore    *float64        `json:"ai_score" validate:"required"`
	AIFeedback json.RawMessage `json:"ai_feedback"`
}

// FeedbackPayload returns the opaque feedback to store, or nil when absent.
func (r AIGradeRequest) FeedbackPayload() *string {
	trimmed := bytes.TrimSpace(r.AIFeedback)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return &text
	}
	raw := string(trimmed)
	return &raw
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	StudentID *string `query:"student_id" validate:"omitempty,max=64"`
	TaskID    *string `query:"task_id" validate:"omitempty,max=64"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              string                     `json:"id"`
	TaskID          string                     `json:"task_id"`
	StudentID       string                     `json:"student_id"`
	Content         string                     `json:"content"`
	Status          models.SubmissionStatus    `json:"status"`
	StatusLabel     string                     `json:"status_label"`
	AIScore         *float64                   `json:"ai_score,omitempty"`
	AIFeedback      *string                    `json:"ai_feedback,omitempty"`
	TeacherScore    *int                       `json:"teacher_score,omitempty"`
	TeacherFeedback *string                    `json:"teacher_feedback,omitempty"`
	SubmissionTime  *time.Time                 `json:"submission_time,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
	Task            *TaskLite                  `json:"task,omitempty"`
	Student         *UserLite                  `json:"student,omitempty"`
	Feedback        *feedback.View             `json:"feedback,omitempty"`
	History         []SubmissionHistoryResponse `json:"history,omitempty"`
}

// TaskLite summarizes a task in submission responses.
type TaskLite struct {
	ID           string                 `json:"id"`
	QuestionID   string                 `json:"question_id"`
	QuestionText string                 `json:"question_text,omitempty"`
	Difficulty   models.DifficultyLevel `json:"difficulty_level,omitempty"`
	TeacherID    string                 `json:"teacher_id"`
	Deadline     time.Time              `json:"deadline"`
}

// UserLite summarizes a user without exposing anything else.
type UserLite struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

// SubmissionHistoryResponse serializes one status transition.
type SubmissionHistoryResponse struct {
	From      models.SubmissionStatus `json:"from"`
	To        models.SubmissionStatus `json:"to"`
	ActorID   string                  `json:"actor_id,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:              model.ID,
		TaskID:          model.TaskID,
		StudentID:       model.StudentID,
		Content:         model.Content,
		Status:          model.Status,
		StatusLabel:     model.Status.String(),
		AIScore:         model.AIScore,
		AIFeedback:      model.AIFeedback,
		TeacherScore:    model.TeacherScore,
		TeacherFeedback: model.TeacherFeedback,
		SubmissionTime:  model.SubmissionTime,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}

	if model.Task.ID != "" {
		task := TaskLite{
			ID:           model.Task.ID,
			QuestionID:   model.Task.QuestionID,
			QuestionText: model.Task.Question.QuestionText,
			Difficulty:   model.Task.Question.DifficultyLevel,
			TeacherID:    model.Task.TeacherID,
			Deadline:     model.Task.Deadline,
		}
		response.Task = &task
	}

	if model.Student.ID != "" {
		response.Student = &UserLite{
			ID:   model.Student.ID,
			Name: model.Student.Name,
			Role: model.Student.Role,
		}
	}

	return response
}

// NewSubmissionDetailResponse adds the decoded feedback and status history.
func NewSubmissionDetailResponse(model models.Submission, history []models.SubmissionStatusHistory) SubmissionResponse {
	response := NewSubmissionResponse(model)
	view := feedback.Decode(model.AIFeedback)
	if !view.IsZero() {
		response.Feedback = &view
	}

	if len(history) > 0 {
		entries := make([]SubmissionHistoryResponse, 0, len(history))
		for _, entry := range history {
			entries = append(entries, SubmissionHistoryResponse{
				From:      entry.FromStatus,
				To:        entry.ToStatus,
				ActorID:   entry.ActorID,
				CreatedAt: entry.CreatedAt,
			})
		}
		response.History = entries
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
