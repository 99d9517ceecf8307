package models

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleJudge UserRole = "judge"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleJudge:
		return true
	}
	return false
}

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
