package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/talentops/interview-api/models"
)

// ErrArtifactExists means a record was already persisted for this
// conversation id. Artifacts are append-only, never overwritten.
var ErrArtifactExists = errors.New("interview record already exists")

// ArtifactWriter persists final interview records.
type ArtifactWriter interface {
	Write(conversationID string, record *models.InterviewRecord) error
}

// ArtifactStore writes one JSON file per conversation under dir.
type ArtifactStore struct {
	dir string
}

func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create records dir: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

func (s *ArtifactStore) Write(conversationID string, record *models.InterviewRecord) error {
	path := filepath.Join(s.dir, fmt.Sprintf("interview_%s.json", conversationID))

	// O_EXCL makes the exactly-once guarantee hold even if two enders
	// race past the session guard.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return ErrArtifactExists
	}
	if err != nil {
		return fmt.Errorf("create interview record: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode interview record: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync interview record: %w", err)
	}
	return f.Close()
}

// Path returns where the record for a conversation id lives.
func (s *ArtifactStore) Path(conversationID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("interview_%s.json", conversationID))
}
