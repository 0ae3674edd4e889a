package models

import (
	"time"
)

// Invite is the token-gated permission record letting one candidate
// submit the form and later start one interview.
type Invite struct {
	ID                 string         `json:"id,omitempty" bson:"_id,omitempty"`
	Email              string         `json:"email" bson:"email" binding:"required,email"`
	Token              string         `json:"token" bson:"token"`
	FormData           map[string]any `json:"form_data,omitempty" bson:"form_data,omitempty"`
	CreatedAt          time.Time      `json:"created_at" bson:"created_at"`
	ExpiresAt          time.Time      `json:"expires_at" bson:"expires_at"`
	IsUsed             bool           `json:"is_used" bson:"is_used"`
	InterviewCompleted bool           `json:"interview_completed" bson:"interview_completed"`
	InterviewResults   string         `json:"interview_results,omitempty" bson:"interview_results,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// Actionable reports whether an interview may still be started from
// this invite: not consumed and not past its deadline.
func (inv *Invite) Actionable(now time.Time) bool {
	return !inv.IsUsed && now.Before(inv.ExpiresAt)
}

type SendInviteRequest struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

// CandidateRow is one entry of a bulk CSV/JSON candidate upload.
type CandidateRow struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
