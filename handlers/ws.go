package handlers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/talentops/interview-api/interview"
)

// WSHandler is the live interview control socket. The browser sends
// "pause"/"resume" text events; a disconnect ends the session, racing
// the watchdog (the session end guard settles who wins).
type WSHandler struct {
	M        *melody.Melody
	Registry *interview.Registry
}

func NewWSHandler(registry *interview.Registry) *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 64 * 1024

	// Keep-alive for cloud hosting that drops idle sockets
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &WSHandler{M: m, Registry: registry}

	m.HandleMessage(func(s *melody.Session, msg []byte) {
		h.handleControl(s, strings.TrimSpace(string(msg)))
	})

	m.HandleDisconnect(func(s *melody.Session) {
		token, _ := s.Get("token")
		log.Printf("🔌 Interview client disconnected (token %v)", token)
		h.endOnDisconnect(s)
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket error: %v", err)
	})

	return h
}

// HandleWS upgrades the request and pins the invite token to the
// socket session.
func (h *WSHandler) HandleWS(c *gin.Context) {
	token := c.Query("token")
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{
		"token": token,
	}); err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

func (h *WSHandler) handleControl(s *melody.Session, msg string) {
	sess, err := h.sessionFor(s)
	if err != nil {
		_ = s.Write([]byte(`{"status": "error", "message": "no active interview session"}`))
		return
	}

	switch msg {
	case "pause_interview", "pause":
		if err := sess.Pause(); err != nil {
			log.Printf("⚠️ Pause failed: %v", err)
			return
		}
		_ = s.Write([]byte(`{"event": "interview_paused", "status": "paused"}`))
	case "resume_interview", "resume":
		if err := sess.Resume(); err != nil {
			log.Printf("⚠️ Resume failed: %v", err)
			return
		}
		_ = s.Write([]byte(`{"event": "interview_resumed", "status": "resumed"}`))
	default:
		log.Printf("⚠️ Ignoring unknown interview event %q", msg)
	}
}

func (h *WSHandler) endOnDisconnect(s *melody.Session) {
	sess, err := h.sessionFor(s)
	if err != nil {
		return
	}

	if _, err := sess.End(); err != nil {
		if errors.Is(err, interview.ErrAlreadyEnded) {
			return
		}
		log.Printf("❌ Error during interview completion: %v", err)
	}
}

func (h *WSHandler) sessionFor(s *melody.Session) (*interview.Session, error) {
	if token, ok := s.Get("token"); ok {
		if tok, ok := token.(string); ok && tok != "" {
			return h.Registry.Get(tok)
		}
	}
	return h.Registry.Current()
}
