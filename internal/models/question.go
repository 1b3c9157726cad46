package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DifficultyLevel is a JLPT-style proficiency tag. N5 is the easiest level.
type DifficultyLevel string

const (
	DifficultyN5 DifficultyLevel = "N5"
	DifficultyN4 DifficultyLevel = "N4"
	DifficultyN3 DifficultyLevel = "N3"
	DifficultyN2 DifficultyLevel = "N2"
	DifficultyN1 DifficultyLevel = "N1"
)

// DifficultyLevels lists every level from easiest to hardest.
var DifficultyLevels = []DifficultyLevel{DifficultyN5, DifficultyN4, DifficultyN3, DifficultyN2, DifficultyN1}

// ParseDifficulty normalises a level such as "n3" into DifficultyN3.
func ParseDifficulty(value string) (DifficultyLevel, bool) {
	level := DifficultyLevel(strings.ToUpper(strings.TrimSpace(value)))
	if level.Rank() < 0 {
		return "", false
	}
	return level, true
}

// Rank orders levels from 0 (N5) to 4 (N1). Unknown levels rank -1.
func (d DifficultyLevel) Rank() int {
	for i, level := range DifficultyLevels {
		if level == d {
			return i
		}
	}
	return -1
}

// Question is an immutable writing prompt authored by a teacher.
type Question struct {
	Seq             uint            `gorm:"primaryKey" json:"-"`
	ID              string          `gorm:"size:64;uniqueIndex;not null" json:"id"`
	QuestionText    string          `gorm:"type:text;not null" json:"question_text"`
	DifficultyLevel DifficultyLevel `gorm:"size:4;index;not null" json:"difficulty_level"`
	CreatedBy       string          `gorm:"size:64" json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// BeforeCreate assigns an identifier when the caller did not provide one.
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(q.ID) == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
