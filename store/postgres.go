package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/talentops/interview-api/models"
)

// PostgresStore keeps invites in the invites table created by
// config.RunMigrations. Form data lives in a JSONB column.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Create(ctx context.Context, inv *models.Invite) error {
	formJSON, err := marshalForm(inv.FormData)
	if err != nil {
		return err
	}

	err = s.DB.QueryRowContext(ctx, `
		INSERT INTO invites (email, token, form_data, created_at, expires_at, is_used, interview_completed)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE)
		RETURNING id
	`, inv.Email, inv.Token, formJSON, inv.CreatedAt, inv.ExpiresAt).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByToken(ctx context.Context, token string) (*models.Invite, error) {
	var (
		inv         models.Invite
		formJSON    []byte
		results     sql.NullString
		completedAt sql.NullTime
	)

	err := s.DB.QueryRowContext(ctx, `
		SELECT id, email, token, form_data, created_at, expires_at,
		       is_used, interview_completed, interview_results, completed_at
		FROM invites
		WHERE token = $1
	`, token).Scan(&inv.ID, &inv.Email, &inv.Token, &formJSON, &inv.CreatedAt,
		&inv.ExpiresAt, &inv.IsUsed, &inv.InterviewCompleted, &results, &completedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invite: %w", err)
	}

	if len(formJSON) > 0 {
		if err := json.Unmarshal(formJSON, &inv.FormData); err != nil {
			return nil, fmt.Errorf("failed to decode form data: %w", err)
		}
	}
	if results.Valid {
		inv.InterviewResults = results.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		inv.CompletedAt = &t
	}

	return &inv, nil
}

func (s *PostgresStore) SaveForm(ctx context.Context, token string, formData map[string]any, expiresAt time.Time) error {
	formJSON, err := marshalForm(formData)
	if err != nil {
		return err
	}

	result, err := s.DB.ExecContext(ctx, `
		UPDATE invites
		SET form_data = $2, expires_at = $3
		WHERE token = $1
	`, token, formJSON, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save form: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) Consume(ctx context.Context, token string) error {
	result, err := s.DB.ExecContext(ctx, `
		UPDATE invites
		SET is_used = TRUE
		WHERE token = $1 AND is_used = FALSE AND expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("failed to consume invite: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	// Lost the compare-and-set: distinguish why.
	inv, err := s.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if inv.IsUsed {
		return ErrConsumed
	}
	return ErrExpired
}

func (s *PostgresStore) Complete(ctx context.Context, token, results string, completedAt time.Time) error {
	result, err := s.DB.ExecContext(ctx, `
		UPDATE invites
		SET interview_completed = TRUE, interview_results = $2, completed_at = $3, is_used = TRUE
		WHERE token = $1
	`, token, results, completedAt)
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) Close(ctx context.Context) error {
	return s.DB.Close()
}

func marshalForm(formData map[string]any) ([]byte, error) {
	if formData == nil {
		return nil, nil
	}
	b, err := json.Marshal(formData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode form data: %w", err)
	}
	return b, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
