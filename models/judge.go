package models

import "time"

type JudgeStatus string

const (
	JudgeStatusPending      JudgeStatus = "pending"
	JudgeStatusActive       JudgeStatus = "active"
	JudgeStatusInactive     JudgeStatus = "inactive"
	JudgeStatusInviteFailed JudgeStatus = "invite_failed"
)

func (s JudgeStatus) Valid() bool {
	switch s {
	case JudgeStatusPending, JudgeStatusActive, JudgeStatusInactive, JudgeStatusInviteFailed:
		return true
	}
	return false
}

// Judge shares its primary key with the users table: judges.id references users.id.
type Judge struct {
	ID          int         `json:"id"`
	Email       string      `json:"email"`
	Status      JudgeStatus `json:"status"`
	InvitedAt   time.Time   `json:"invited_at"`
	ActivatedAt *time.Time  `json:"activated_at,omitempty"`
}

// JudgeProgress is a judge together with scoring progress for the admin list.
type JudgeProgress struct {
	Judge
	ScoredEntries int `json:"scored_entries"`
	TotalEntries  int `json:"total_entries"`
}
