package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task assigns one question to students with a deadline. SubQuestions holds
// the optional multi-prompt variant of a task.
type Task struct {
	Seq          uint                        `gorm:"primaryKey" json:"-"`
	ID           string                      `gorm:"size:64;uniqueIndex;not null" json:"id"`
	QuestionID   string                      `gorm:"size:64;index;not null" json:"question_id"`
	TeacherID    string                      `gorm:"size:64;index;not null" json:"teacher_id"`
	Deadline     time.Time                   `gorm:"not null" json:"deadline"`
	SubQuestions datatypes.JSONSlice[string] `json:"sub_questions,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	Question     Question                    `gorm:"foreignKey:QuestionID;references:ID" json:"-"`
}

// BeforeCreate assigns an identifier when the caller did not provide one.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsPastDue returns true when the task deadline has already passed.
func (t Task) IsPastDue(reference time.Time) bool {
	return reference.After(t.Deadline)
}
