package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role identifies what a user may do on the platform.
type Role string

const (
	RoleStudent  Role = "student"
	RoleTeacher  Role = "teacher"
	RoleReviewer Role = "reviewer"
)

// ParseRole normalises a role string, returning false for unknown roles.
func ParseRole(value string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleStudent, RoleTeacher, RoleReviewer:
		return role, true
	default:
		return "", false
	}
}

// User is an identity owned by the external identity provider. Records are
// never updated after creation.
type User struct {
	Seq       uint      `gorm:"primaryKey" json:"-"`
	ID        string    `gorm:"size:64;uniqueIndex;not null" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Role      Role      `gorm:"size:16;index;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns an identifier when the caller did not provide one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(u.ID) == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
