// Package interview runs the timed, voice-driven interview session:
// conversation lifecycle, transcript capture, the duration watchdog and
// the end-of-session evaluation record.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talentops/interview-api/models"
	"github.com/talentops/interview-api/services"
)

var (
	ErrStartFailed    = errors.New("failed to start interview session")
	ErrAlreadyStarted = errors.New("interview session already started")
	ErrAlreadyEnded   = errors.New("interview session already ended")
	ErrNoConversation = errors.New("no live conversation for this session")
)

// State is the session lifecycle position.
// Created -> Active <-> Paused -> Ended. Ended is terminal.
type State int8

const (
	StateCreated State = iota
	StateActive
	StatePaused
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

const (
	DefaultMaxDuration      = 600 * time.Second
	DefaultWatchdogInterval = 10 * time.Second
)

// Option overrides session timing, mainly for tests.
type Option func(*Session)

func WithMaxDuration(d time.Duration) Option {
	return func(s *Session) { s.maxDuration = d }
}

func WithWatchdogInterval(d time.Duration) Option {
	return func(s *Session) { s.watchdogInterval = d }
}

// WithOnEnd registers the completion relay, invoked exactly once by the
// End winner after the record is assembled.
func WithOnEnd(fn func(*models.InterviewRecord)) Option {
	return func(s *Session) { s.onEnd = fn }
}

// Session is one live interview. At most one exists per process, which
// the Registry enforces.
type Session struct {
	ID    string
	Token string

	mu           sync.Mutex
	state        State
	candidate    models.CandidateContext
	conversation services.Conversation
	transcript   []models.TranscriptEntry
	startTime    time.Time
	endTime      time.Time
	stopWatchdog chan struct{}

	maxDuration      time.Duration
	watchdogInterval time.Duration
	onEnd            func(*models.InterviewRecord)
}

// New builds a session in the Created state from the candidate context
// assembled out of the invite's form data.
func New(token string, candidate models.CandidateContext, opts ...Option) *Session {
	s := &Session{
		ID:               uuid.NewString(),
		Token:            token,
		state:            StateCreated,
		candidate:        candidate,
		transcript:       []models.TranscriptEntry{},
		maxDuration:      DefaultMaxDuration,
		watchdogInterval: DefaultWatchdogInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the vendor conversation with transcript callbacks, stamps
// the start time and launches the watchdog. On connect failure the
// session stays Created and no watchdog runs.
func (s *Session) Start(ctx context.Context, conversations services.ConversationService) error {
	s.mu.Lock()
	if s.state != StateCreated {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	// The vendor may start streaming utterances before Open returns,
	// so the lock cannot be held across the call.
	conv, err := conversations.Open(ctx, s.candidate, services.Callbacks{
		OnAgentUtterance: func(text string) {
			s.appendTranscript(models.SpeakerAgent, text)
		},
		OnCandidateUtterance: func(text string) {
			s.appendTranscript(models.SpeakerCandidate, text)
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	s.mu.Lock()
	s.conversation = conv
	s.startTime = time.Now()
	s.state = StateActive
	s.stopWatchdog = make(chan struct{})
	s.mu.Unlock()

	go s.watchdog()
	return nil
}

func (s *Session) appendTranscript(speaker, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, models.TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// Transcript returns a snapshot in arrival order.
func (s *Session) Transcript() []models.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pause forwards to the vendor handle and flips the observability flag.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEnded {
		return ErrAlreadyEnded
	}
	if s.conversation == nil {
		return ErrNoConversation
	}
	if err := s.conversation.Pause(); err != nil {
		return err
	}
	s.state = StatePaused
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEnded {
		return ErrAlreadyEnded
	}
	if s.conversation == nil {
		return ErrNoConversation
	}
	if err := s.conversation.Resume(); err != nil {
		return err
	}
	s.state = StateActive
	return nil
}

// watchdog enforces the maximum interview duration. It polls coarsely;
// end-of-interview timing has up to one interval of slack, which is
// accepted policy.
func (s *Session) watchdog() {
	ticker := time.NewTicker(s.watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopWatchdog:
			return
		case <-ticker.C:
			s.mu.Lock()
			elapsed := time.Since(s.startTime)
			limit := s.maxDuration
			s.mu.Unlock()

			if elapsed >= limit {
				log.Printf("⏰ Interview session %s hit the %s cap, ending", s.ID, limit)
				if _, err := s.End(); err != nil && !errors.Is(err, ErrAlreadyEnded) {
					log.Printf("❌ Watchdog failed to end session %s: %v", s.ID, err)
				}
				return
			}
		}
	}
}

// End performs the terminal transition. Exactly one caller wins the
// guard; the watchdog or an explicit end racing in second observes
// ErrAlreadyEnded and must treat it as a no-op. The winner closes the
// vendor conversation, builds the evaluation record and fires the
// completion relay.
func (s *Session) End() (*models.InterviewRecord, error) {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return nil, ErrAlreadyEnded
	}
	if s.conversation == nil {
		s.mu.Unlock()
		return nil, ErrNoConversation
	}

	s.state = StateEnded
	close(s.stopWatchdog)
	s.endTime = time.Now()
	conv := s.conversation
	startTime := s.startTime
	endTime := s.endTime
	s.mu.Unlock()

	conversationID, err := conv.Close()
	if err != nil {
		// Failed completion: the state stays Ended (no retrying a dead
		// conversation) but no record is produced.
		return nil, fmt.Errorf("failed to close conversation: %w", err)
	}

	record := &models.InterviewRecord{
		ConversationID:      conversationID,
		Timestamp:           endTime,
		CandidateInfo:       s.candidate,
		ConversationHistory: s.Transcript(),
		DurationSeconds:     int64(endTime.Sub(startTime).Seconds()),
		Evaluation:          s.evaluate(),
	}

	if s.onEnd != nil {
		s.onEnd(record)
	}
	return record, nil
}

// Abort tears the session down without producing a record or firing
// the completion relay; used when the invite is lost between
// validation and start.
func (s *Session) Abort() {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	if s.stopWatchdog != nil {
		close(s.stopWatchdog)
	}
	conv := s.conversation
	s.mu.Unlock()

	if conv != nil {
		if _, err := conv.Close(); err != nil {
			log.Printf("⚠️ Error closing aborted conversation: %v", err)
		}
	}
}

// evaluate produces the fixed-shape placeholder. It runs exactly once
// per session, after transcript and timing are final.
func (s *Session) evaluate() models.Evaluation {
	return models.NewEvaluation()
}

// Elapsed reports how long the session has been running.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return 0
	}
	if s.state == StateEnded {
		return s.endTime.Sub(s.startTime)
	}
	return time.Since(s.startTime)
}
