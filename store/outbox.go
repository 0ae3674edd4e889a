package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/talentops/interview-api/models"
)

// Pending operation kinds replayed by the reconciler.
const (
	OpCreate   = "create"
	OpComplete = "complete"
)

// PendingOp is one queued write that could not reach the primary store.
type PendingOp struct {
	Kind        string         `json:"kind"`
	Invite      *models.Invite `json:"invite,omitempty"`
	Token       string         `json:"token,omitempty"`
	Results     string         `json:"results,omitempty"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
	QueuedAt    time.Time      `json:"queued_at"`
}

// Outbox is an append-only JSON-lines log of pending operations, the
// durable fallback used while the primary invite store is unreachable.
type Outbox struct {
	mu   sync.Mutex
	path string
}

func NewOutbox(path string) *Outbox {
	return &Outbox{path: path}
}

// Append durably queues one operation.
func (o *Outbox) Append(op PendingOp) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.appendLocked(op)
}

func (o *Outbox) appendLocked(op PendingOp) error {
	line, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to encode pending op: %w", err)
	}

	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open pending queue: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append pending op: %w", err)
	}
	return f.Sync()
}

// Drain removes and returns every queued operation. Operations that
// fail replay must be re-appended by the caller.
func (o *Outbox) Drain() ([]PendingOp, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := os.Open(o.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open pending queue: %w", err)
	}

	var ops []PendingOp
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var op PendingOp
		if err := json.Unmarshal(scanner.Bytes(), &op); err != nil {
			log.Printf("⚠️ Skipping unreadable pending op: %v", err)
			continue
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pending queue: %w", err)
	}
	f.Close()

	if err := os.Remove(o.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to clear pending queue: %w", err)
	}
	return ops, nil
}

// Len reports how many operations are currently queued.
func (o *Outbox) Len() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := os.Open(o.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			n++
		}
	}
	return n, scanner.Err()
}

// FallbackStore wraps a primary InviteStore. Failed Create/Complete
// writes degrade to the outbox instead of surfacing to the caller;
// reads and the consume CAS always hit the primary.
type FallbackStore struct {
	Primary InviteStore
	Queue   *Outbox
}

func NewFallbackStore(primary InviteStore, queue *Outbox) *FallbackStore {
	return &FallbackStore{Primary: primary, Queue: queue}
}

func (s *FallbackStore) Create(ctx context.Context, inv *models.Invite) error {
	if err := s.Primary.Create(ctx, inv); err != nil {
		log.Printf("⚠️ Invite store unreachable, queueing create for %s: %v", inv.Token, err)
		return s.Queue.Append(PendingOp{Kind: OpCreate, Invite: inv, QueuedAt: time.Now().UTC()})
	}
	return nil
}

func (s *FallbackStore) GetByToken(ctx context.Context, token string) (*models.Invite, error) {
	return s.Primary.GetByToken(ctx, token)
}

func (s *FallbackStore) SaveForm(ctx context.Context, token string, formData map[string]any, expiresAt time.Time) error {
	return s.Primary.SaveForm(ctx, token, formData, expiresAt)
}

func (s *FallbackStore) Consume(ctx context.Context, token string) error {
	// Consumption is a correctness guard, never degraded to the queue.
	return s.Primary.Consume(ctx, token)
}

func (s *FallbackStore) Complete(ctx context.Context, token, results string, completedAt time.Time) error {
	if err := s.Primary.Complete(ctx, token, results, completedAt); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("⚠️ Invite store unreachable, queueing completion for %s: %v", token, err)
		return s.Queue.Append(PendingOp{
			Kind:        OpComplete,
			Token:       token,
			Results:     results,
			CompletedAt: completedAt,
			QueuedAt:    time.Now().UTC(),
		})
	}
	return nil
}

func (s *FallbackStore) Close(ctx context.Context) error {
	return s.Primary.Close(ctx)
}

// Reconciler replays queued operations against the primary store.
type Reconciler struct {
	Store InviteStore
	Queue *Outbox
}

// Run replays the queue once. Operations that still fail after retries
// go back onto the queue for the next cycle.
func (r *Reconciler) Run(ctx context.Context) error {
	ops, err := r.Queue.Drain()
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	log.Printf("🔁 Reconciling %d pending invite operation(s)", len(ops))

	var requeued int
	for _, op := range ops {
		if err := r.replay(ctx, op); err != nil {
			requeued++
			if qerr := r.Queue.Append(op); qerr != nil {
				log.Printf("❌ Failed to requeue pending op: %v", qerr)
			}
		}
	}
	if requeued > 0 {
		log.Printf("⚠️ %d pending operation(s) still unreconciled", requeued)
	}
	return nil
}

func (r *Reconciler) replay(ctx context.Context, op PendingOp) error {
	return retry.Do(
		func() error {
			switch op.Kind {
			case OpCreate:
				return r.Store.Create(ctx, op.Invite)
			case OpComplete:
				err := r.Store.Complete(ctx, op.Token, op.Results, op.CompletedAt)
				if errors.Is(err, ErrNotFound) {
					// The invite never made it to the primary; drop the
					// completion rather than retrying forever.
					log.Printf("⚠️ Dropping completion for unknown token %s", op.Token)
					return nil
				}
				return err
			default:
				log.Printf("⚠️ Dropping pending op of unknown kind %q", op.Kind)
				return nil
			}
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
