package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// MinScore and MaxScore bound both AI and teacher scores, inclusive.
	MinScore = 0
	MaxScore = 100
)

// Submission is a student's answer to a task together with its grading state.
// Fields are only changed through the transition methods below, each of
// which either applies completely or leaves the value untouched.
type Submission struct {
	Seq             uint             `gorm:"primaryKey" json:"-"`
	ID              string           `gorm:"size:64;uniqueIndex;not null" json:"id"`
	TaskID          string           `gorm:"size:64;index;not null" json:"task_id"`
	StudentID       string           `gorm:"size:64;index;not null" json:"student_id"`
	Content         string           `gorm:"type:text" json:"content"`
	Status          SubmissionStatus `gorm:"not null;index" json:"status"`
	AIScore         *float64         `json:"ai_score,omitempty"`
	AIFeedback      *string          `gorm:"type:text" json:"ai_feedback,omitempty"`
	TeacherScore    *int             `json:"teacher_score,omitempty"`
	TeacherFeedback *string          `gorm:"type:text" json:"teacher_feedback,omitempty"`
	SubmissionTime  *time.Time       `json:"submission_time,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Task            Task             `gorm:"foreignKey:TaskID;references:ID" json:"-"`
	Student         User             `gorm:"foreignKey:StudentID;references:ID" json:"-"`
}

// BeforeCreate assigns an identifier when the caller did not provide one.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(s.ID) == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SaveDraft replaces the content of a draft. The status is never changed.
func (s *Submission) SaveDraft(content string, now time.Time) error {
	if s.Status != SubmissionStatusDraft {
		return stateError("save draft", s.Status, ErrSubmissionLocked)
	}
	s.Content = content
	s.UpdatedAt = now
	return nil
}

// Submit moves a draft to Submitted, stamps the submission time and freezes
// the content.
func (s *Submission) Submit(now time.Time) error {
	if s.Status != SubmissionStatusDraft || s.SubmissionTime != nil {
		return stateError("submit", s.Status, ErrAlreadySubmitted)
	}
	if strings.TrimSpace(s.Content) == "" {
		return validationError("content", ErrEmptySubmission)
	}
	submitted := now
	s.Status = SubmissionStatusSubmitted
	s.SubmissionTime = &submitted
	s.UpdatedAt = now
	return nil
}

// ApplyAIGrade records the externally computed score and raw feedback.
func (s *Submission) ApplyAIGrade(score float64, feedback *string, now time.Time) error {
	if math.IsNaN(score) || score < MinScore || score > MaxScore {
		return validationError("ai_score", ErrScoreOutOfRange)
	}
	if s.Status != SubmissionStatusSubmitted {
		return stateError("apply ai grade", s.Status, ErrInvalidTransition)
	}
	aiScore := score
	s.AIScore = &aiScore
	if feedback != nil {
		raw := *feedback
		s.AIFeedback = &raw
	} else {
		s.AIFeedback = nil
	}
	s.Status = SubmissionStatusAIGraded
	s.UpdatedAt = now
	return nil
}

// ApplyTeacherGrade records the authoritative teacher score and feedback.
// Input is validated before the status so a bad score is always reported as
// a validation problem.
func (s *Submission) ApplyTeacherGrade(score int, feedback string, now time.Time) error {
	if err := ValidateTeacherGrade(score, feedback); err != nil {
		return err
	}
	feedback = strings.TrimSpace(feedback)
	if !s.Status.CanTransitionTo(SubmissionStatusTeacherGraded) {
		return stateError("grade", s.Status, ErrInvalidTransition)
	}
	teacherScore := score
	s.TeacherScore = &teacherScore
	s.TeacherFeedback = &feedback
	s.Status = SubmissionStatusTeacherGraded
	s.UpdatedAt = now
	return nil
}

// ValidateTeacherGrade checks a teacher grade independently of any status.
func ValidateTeacherGrade(score int, feedback string) error {
	if score < MinScore || score > MaxScore {
		return validationError("teacher_score", ErrScoreOutOfRange)
	}
	if strings.TrimSpace(feedback) == "" {
		return validationError("teacher_feedback", ErrEmptyFeedback)
	}
	return nil
}

// IsTeacherGradeReplay reports whether the submission already carries exactly
// this teacher grade.
func (s Submission) IsTeacherGradeReplay(score int, feedback string) bool {
	if s.Status != SubmissionStatusTeacherGraded || s.TeacherScore == nil || s.TeacherFeedback == nil {
		return false
	}
	return *s.TeacherScore == score && *s.TeacherFeedback == strings.TrimSpace(feedback)
}

// MarkReviewed moves a teacher-graded submission to the terminal state.
func (s *Submission) MarkReviewed(now time.Time) error {
	if !s.Status.CanTransitionTo(SubmissionStatusReviewed) {
		return stateError("review", s.Status, ErrInvalidTransition)
	}
	s.Status = SubmissionStatusReviewed
	s.UpdatedAt = now
	return nil
}

// CheckInvariants verifies the field/status relationships of a loaded or
// seeded record.
func (s Submission) CheckInvariants() error {
	if !s.Status.Valid() {
		return fmt.Errorf("submission %s: unknown status %d", s.ID, int(s.Status))
	}
	if (s.AIScore != nil || s.AIFeedback != nil) && s.Status < SubmissionStatusAIGraded {
		return fmt.Errorf("submission %s: ai grade present in status %s", s.ID, s.Status)
	}
	if (s.TeacherScore != nil || s.TeacherFeedback != nil) && s.Status < SubmissionStatusTeacherGraded {
		return fmt.Errorf("submission %s: teacher grade present in status %s", s.ID, s.Status)
	}
	if s.Status >= SubmissionStatusSubmitted && s.SubmissionTime == nil {
		return fmt.Errorf("submission %s: missing submission time in status %s", s.ID, s.Status)
	}
	if s.AIScore != nil && (*s.AIScore < MinScore || *s.AIScore > MaxScore) {
		return fmt.Errorf("submission %s: ai score out of range", s.ID)
	}
	if s.TeacherScore != nil && (*s.TeacherScore < MinScore || *s.TeacherScore > MaxScore) {
		return fmt.Errorf("submission %s: teacher score out of range", s.ID)
	}
	return nil
}
