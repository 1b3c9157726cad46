package dto

import "github.com/noah-isme/fumi-go-api/internal/models"

// QuestionCreateRequest describes the payload for adding a question.
type QuestionCreateRequest struct {
	QuestionText    string `json:"question_text" validate:"required,max=4000"`
	DifficultyLevel string `json:"difficulty_level" validate:"required,oneof=N5 N4 N3 N2 N1"`
}

// QuestionResponse is returned to API clients when viewing questions.
type QuestionResponse struct {
	ID              string                 `json:"id"`
	QuestionText    string                 `json:"question_text"`
	DifficultyLevel models.DifficultyLevel `json:"difficulty_level"`
}

// NewQuestionResponse converts a Question model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	return QuestionResponse{
		ID:              model.ID,
		QuestionText:    model.QuestionText,
		DifficultyLevel: model.DifficultyLevel,
	}
}

// NewQuestionResponseSlice converts question models into DTOs.
func NewQuestionResponseSlice(items []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(items))
	for _, question := range items {
		responses = append(responses, NewQuestionResponse(question))
	}
	return responses
}

// UserResponse is returned when listing users.
type UserResponse = UserLite

// NewUserResponseSlice converts user models into DTOs.
func NewUserResponseSlice(items []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(items))
	for _, user := range items {
		responses = append(responses, UserResponse{ID: user.ID, Name: user.Name, Role: user.Role})
	}
	return responses
}
