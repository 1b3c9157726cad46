package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatusHistory records one committed status transition.
type SubmissionStatusHistory struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubmissionID string            `gorm:"size:64;index;not null" json:"submission_id"`
	FromStatus   SubmissionStatus  `gorm:"not null" json:"from_status"`
	ToStatus     SubmissionStatus  `gorm:"not null" json:"to_status"`
	ActorID      string            `gorm:"size:64" json:"actor_id,omitempty"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// TableName keeps the singular history table name.
func (SubmissionStatusHistory) TableName() string {
	return "submission_status_history"
}
