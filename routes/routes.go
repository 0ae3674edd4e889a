package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talentops/interview-api/handlers"
)

// SetupInviteRoutes wires the invite service: candidate upload, invite
// issuance, form intake and the interview redirect.
func SetupInviteRoutes(r *gin.Engine, h *handlers.InviteHandler) {
	r.GET("/", h.UploadPage)
	r.POST("/", h.UploadCandidates)
	r.POST("/send_invite", h.SendInvite)
	r.GET("/fill_form/:token", h.ShowForm)
	r.POST("/fill_form/:token", h.SubmitForm)
	r.GET("/interview/:token", h.InterviewRedirect)

	registerHealth(r)
}

// SetupInterviewRoutes wires the interview service: session lifecycle
// endpoints, the live control socket and code capture.
func SetupInterviewRoutes(r *gin.Engine, h *handlers.InterviewHandler, ws *handlers.WSHandler) {
	r.GET("/interview/:token", h.StartInterview)
	r.POST("/interview/:token/pause", h.PauseInterview)
	r.POST("/interview/:token/resume", h.ResumeInterview)
	r.POST("/interview/:token/end", h.EndInterview)
	r.GET("/ws/interview", ws.HandleWS)
	r.POST("/save_code", h.SaveCode)

	registerHealth(r)
}

func registerHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}
