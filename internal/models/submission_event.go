package models

import "time"

// SubmissionEvent announces a committed status transition.
type SubmissionEvent struct {
	SubmissionID string           `json:"submission_id"`
	TaskID       string           `json:"task_id"`
	StudentID    string           `json:"student_id"`
	From         SubmissionStatus `json:"from"`
	To           SubmissionStatus `json:"to"`
	OccurredAt   time.Time        `json:"occurred_at"`
}
