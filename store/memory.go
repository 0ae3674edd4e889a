package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talentops/interview-api/models"
)

// MemoryStore is the in-process backing used by tests and local runs
// without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	byToken map[string]*models.Invite
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byToken: make(map[string]*models.Invite)}
}

func (s *MemoryStore) Create(ctx context.Context, inv *models.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	cp := *inv
	s.byToken[inv.Token] = &cp
	return nil
}

func (s *MemoryStore) GetByToken(ctx context.Context, token string) (*models.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *MemoryStore) SaveForm(ctx context.Context, token string, formData map[string]any, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.byToken[token]
	if !ok {
		return ErrNotFound
	}
	inv.FormData = formData
	inv.ExpiresAt = expiresAt
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.byToken[token]
	if !ok {
		return ErrNotFound
	}
	if inv.IsUsed {
		return ErrConsumed
	}
	if !time.Now().Before(inv.ExpiresAt) {
		return ErrExpired
	}
	inv.IsUsed = true
	return nil
}

func (s *MemoryStore) Complete(ctx context.Context, token, results string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.byToken[token]
	if !ok {
		return ErrNotFound
	}
	inv.InterviewCompleted = true
	inv.InterviewResults = results
	inv.CompletedAt = &completedAt
	inv.IsUsed = true
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
