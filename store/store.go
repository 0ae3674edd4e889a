// Package store persists invite records behind one contract with
// interchangeable backings: Postgres, MongoDB, or in-memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/talentops/interview-api/models"
)

var (
	ErrNotFound = errors.New("invite not found")
	ErrExpired  = errors.New("invite link has expired")
	ErrConsumed = errors.New("invite has already been used")
)

// ConsumePolicy pins down when is_used flips: at interview start, when
// a session binds to the token. Form resubmission stays possible after
// a partial upstream failure; once the interview starts the token is
// dead.
const ConsumePolicy = "consume_on_interview_start"

// InviteStore is the invite persistence contract.
type InviteStore interface {
	// Create inserts a freshly issued invite.
	Create(ctx context.Context, inv *models.Invite) error

	// GetByToken looks an invite up by its opaque token.
	// Returns ErrNotFound for unknown tokens.
	GetByToken(ctx context.Context, token string) (*models.Invite, error)

	// SaveForm writes the merged form payload and the recomputed
	// deadline after a successful form submission.
	SaveForm(ctx context.Context, token string, formData map[string]any, expiresAt time.Time) error

	// Consume atomically flips is_used on an actionable invite.
	// Exactly one caller wins; the rest get ErrConsumed (or ErrExpired
	// past the deadline, ErrNotFound for unknown tokens).
	Consume(ctx context.Context, token string) error

	// Complete records the terminal interview-completed transition.
	Complete(ctx context.Context, token, results string, completedAt time.Time) error

	Close(ctx context.Context) error
}

// ValidateAndOpen resolves a token to an actionable invite, mapping
// dead links to ErrExpired.
func ValidateAndOpen(ctx context.Context, s InviteStore, token string, now time.Time) (*models.Invite, error) {
	inv, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !inv.Actionable(now) {
		return nil, ErrExpired
	}
	return inv, nil
}
