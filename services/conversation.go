package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talentops/interview-api/models"
)

// Callbacks receive utterances streamed by the conversational-AI
// vendor. They are invoked in arrival order.
type Callbacks struct {
	OnAgentUtterance     func(text string)
	OnCandidateUtterance func(text string)
}

// Conversation is an opaque handle to one live vendor conversation.
type Conversation interface {
	Pause() error
	Resume() error
	// Close ends the conversation and returns the vendor-assigned
	// conversation id.
	Close() (string, error)
}

// ConversationService opens voice interview conversations. The vendor
// protocol is a black box behind this contract; tests use a fake.
type ConversationService interface {
	Open(ctx context.Context, candidate models.CandidateContext, cb Callbacks) (Conversation, error)
}

// ElevenLabsService drives the ElevenLabs conversational-AI agent over
// its signed-URL websocket.
type ElevenLabsService struct {
	apiKey     string
	agentID    string
	httpClient *http.Client
}

func NewElevenLabsService(apiKey, agentID string, timeout time.Duration) *ElevenLabsService {
	return &ElevenLabsService{
		apiKey:     apiKey,
		agentID:    agentID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *ElevenLabsService) Open(ctx context.Context, candidate models.CandidateContext, cb Callbacks) (Conversation, error) {
	if s.apiKey == "" || s.agentID == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY and AGENT_ID must be configured")
	}

	signedURL, err := s.signedURL(ctx)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, signedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation socket: %w", err)
	}

	init := map[string]any{
		"type": "conversation_initiation_client_data",
		"dynamic_variables": map[string]any{
			"candidate_experience": candidate.Experience,
			"technical_skills":     candidate.Skills,
			"education":            candidate.Education,
			"candidate_name":       candidate.Name,
		},
	}
	if err := conn.WriteJSON(init); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send conversation context: %w", err)
	}

	c := &elevenConversation{conn: conn, cb: cb, done: make(chan struct{})}
	go c.readLoop()
	return c, nil
}

func (s *ElevenLabsService) signedURL(ctx context.Context) (string, error) {
	url := fmt.Sprintf("https://api.elevenlabs.io/v1/convai/conversation/get-signed-url?agent_id=%s", s.agentID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request signed URL: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signed URL request returned status %d", resp.StatusCode)
	}

	var out struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.SignedURL == "" {
		return "", fmt.Errorf("signed URL missing from vendor response")
	}
	return out.SignedURL, nil
}

type elevenConversation struct {
	conn *websocket.Conn
	cb   Callbacks

	mu             sync.Mutex
	conversationID string
	closed         bool
	done           chan struct{}
}

type vendorEvent struct {
	Type                  string `json:"type"`
	ConversationID        string `json:"conversation_id"`
	AgentResponseEvent    struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event"`
	UserTranscriptionEvent struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event"`
	ConversationInitiationMetadataEvent struct {
		ConversationID string `json:"conversation_id"`
	} `json:"conversation_initiation_metadata_event"`
}

func (c *elevenConversation) readLoop() {
	defer close(c.done)
	for {
		var ev vendorEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Printf("🔌 Conversation stream closed: %v", err)
			}
			return
		}

		switch ev.Type {
		case "conversation_initiation_metadata":
			c.mu.Lock()
			c.conversationID = ev.ConversationInitiationMetadataEvent.ConversationID
			c.mu.Unlock()
		case "agent_response":
			if c.cb.OnAgentUtterance != nil {
				c.cb.OnAgentUtterance(ev.AgentResponseEvent.AgentResponse)
			}
		case "user_transcript":
			if c.cb.OnCandidateUtterance != nil {
				c.cb.OnCandidateUtterance(ev.UserTranscriptionEvent.UserTranscript)
			}
		case "ping":
			_ = c.conn.WriteJSON(map[string]string{"type": "pong"})
		}
	}
}

func (c *elevenConversation) Pause() error {
	return c.conn.WriteJSON(map[string]string{"type": "pause"})
}

func (c *elevenConversation) Resume() error {
	return c.conn.WriteJSON(map[string]string{"type": "resume"})
}

func (c *elevenConversation) Close() (string, error) {
	c.mu.Lock()
	if c.closed {
		id := c.conversationID
		c.mu.Unlock()
		return id, nil
	}
	c.closed = true
	c.mu.Unlock()

	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
	err := c.conn.Close()

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conversationID == "" {
		// The vendor never sent metadata; key the artifact locally so
		// the completion relay still has a stable id.
		c.conversationID = "local-" + uuid.NewString()
	}
	return c.conversationID, err
}
