package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talentops/interview-api/config"
	"github.com/talentops/interview-api/interview"
	"github.com/talentops/interview-api/models"
	"github.com/talentops/interview-api/services"
	"github.com/talentops/interview-api/store"
	"github.com/talentops/interview-api/utils"
)

// InterviewHandler drives the session lifecycle: start, pause/resume,
// end and the completion relay back to the invite store.
type InterviewHandler struct {
	Store         store.InviteStore
	Registry      *interview.Registry
	Conversations services.ConversationService
	Artifacts     services.ArtifactWriter
	Cfg           *config.Config
}

// StartInterview validates the invite, binds the single session slot,
// opens the vendor conversation and consumes the token. The token is
// consumed only after the conversation opens, so a vendor connect
// failure leaves the invite retryable.
func (h *InterviewHandler) StartInterview(c *gin.Context) {
	token := c.Param("token")
	ctx := c.Request.Context()

	inv, err := store.ValidateAndOpen(ctx, h.Store, token, time.Now())
	if err != nil {
		respondInviteError(c, err)
		return
	}

	candidate := candidateContextFrom(inv)

	var sess *interview.Session
	sess = interview.New(token, candidate,
		interview.WithMaxDuration(h.Cfg.MaxInterviewDuration),
		interview.WithWatchdogInterval(h.Cfg.WatchdogInterval),
		interview.WithOnEnd(func(record *models.InterviewRecord) {
			h.relayCompletion(sess, record)
		}),
	)

	if err := h.Registry.Bind(sess); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "An interview is already in progress"})
		return
	}

	if err := sess.Start(ctx, h.Conversations); err != nil {
		h.Registry.Release(sess)
		log.Printf("❌ Failed to start interview session for %s: %v", utils.MaskToken(token), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to start interview session"})
		return
	}

	if err := h.Store.Consume(ctx, token); err != nil {
		// Lost the invite between validation and start: tear down
		// without relaying a completion.
		sess.Abort()
		h.Registry.Release(sess)
		respondInviteError(c, err)
		return
	}

	log.Printf("🎤 Interview session %s started for %s", sess.ID, utils.MaskEmail(inv.Email))
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"message":    "Interview session started",
		"session_id": sess.ID,
	})
}

// PauseInterview forwards a pause to the live conversation.
func (h *InterviewHandler) PauseInterview(c *gin.Context) {
	h.forward(c, func(sess *interview.Session) error { return sess.Pause() }, "paused")
}

// ResumeInterview forwards a resume to the live conversation.
func (h *InterviewHandler) ResumeInterview(c *gin.Context) {
	h.forward(c, func(sess *interview.Session) error { return sess.Resume() }, "resumed")
}

func (h *InterviewHandler) forward(c *gin.Context, op func(*interview.Session) error, status string) {
	sess, err := h.Registry.Get(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active interview session"})
		return
	}

	if err := op(sess); err != nil {
		if errors.Is(err, interview.ErrAlreadyEnded) {
			c.JSON(http.StatusConflict, gin.H{"error": "Interview already ended"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// EndInterview explicitly ends the session. The watchdog may race this
// call; the loser observes an already-ended session and no-ops.
func (h *InterviewHandler) EndInterview(c *gin.Context) {
	sess, err := h.Registry.Get(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active interview session"})
		return
	}

	record, err := sess.End()
	if err != nil {
		if errors.Is(err, interview.ErrAlreadyEnded) {
			c.JSON(http.StatusConflict, gin.H{"status": "completed", "message": "Interview already ended"})
			return
		}
		h.Registry.Release(sess)
		log.Printf("❌ Error during interview completion: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Interview ended with errors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "completed",
		"message":         "Thank you for completing the interview",
		"conversation_id": record.ConversationID,
	})
}

// relayCompletion persists the artifact and closes the loop on the
// invite record. Runs exactly once, from the End winner. The registry
// slot is released no matter what happens here.
func (h *InterviewHandler) relayCompletion(sess *interview.Session, record *models.InterviewRecord) {
	defer h.Registry.Release(sess)

	if err := h.Artifacts.Write(record.ConversationID, record); err != nil {
		if errors.Is(err, services.ErrArtifactExists) {
			log.Printf("⚠️ Interview record for %s already persisted", record.ConversationID)
		} else {
			log.Printf("❌ Failed to persist interview record %s: %v", record.ConversationID, err)
		}
	}

	results, err := json.Marshal(record)
	if err != nil {
		log.Printf("❌ Failed to serialize interview results: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// FallbackStore queues this on a dead primary; never dropped.
	if err := h.Store.Complete(ctx, sess.Token, string(results), record.Timestamp); err != nil {
		log.Printf("❌ Failed to update invite after interview %s: %v", record.ConversationID, err)
		return
	}

	log.Printf("✅ Interview %s completed and processed", record.ConversationID)
}

// SaveCode stores a code snippet submitted during the interview.
func (h *InterviewHandler) SaveCode(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := os.MkdirAll(h.Cfg.UploadsDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	filename := fmt.Sprintf("saved_code_%s.txt", time.Now().Format("20060102_150405"))
	path := filepath.Join(h.Cfg.UploadsDir, filename)
	if err := os.WriteFile(path, []byte(req.Code), 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": fmt.Sprintf("Code saved as %s", filename)})
}

// candidateContextFrom flattens the stored form payload (including the
// parsed resume) into the profile the interview agent is primed with.
func candidateContextFrom(inv *models.Invite) models.CandidateContext {
	ctx := models.CandidateContext{
		Email: inv.Email,
		Raw:   inv.FormData,
	}

	if inv.FormData == nil {
		return ctx
	}

	if name, ok := inv.FormData["name"].(string); ok {
		ctx.Name = name
	}
	if summary, ok := inv.FormData["summary"].(string); ok {
		ctx.Summary = summary
	}

	parsed, _ := inv.FormData["parsed_resume"].(map[string]any)
	ctx.Experience = stringSlice(parsed["experience"])
	ctx.Skills = stringSlice(parsed["skills"])
	ctx.Education = stringSlice(parsed["education"])
	ctx.Links = stringSlice(parsed["links"])

	return ctx
}

func stringSlice(v any) []string {
	out := []string{}
	switch vv := v.(type) {
	case []string:
		out = append(out, vv...)
	case []any:
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		if vv != "" {
			out = append(out, vv)
		}
	}
	return out
}
