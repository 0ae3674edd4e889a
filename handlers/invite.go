package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talentops/interview-api/config"
	"github.com/talentops/interview-api/models"
	"github.com/talentops/interview-api/services"
	"github.com/talentops/interview-api/store"
	"github.com/talentops/interview-api/utils"
)

const uploadPageHTML = `<!DOCTYPE html>
<html>
<head><title>Upload Candidates File</title></head>
<body>
    <h2>Upload CSV or JSON File</h2>
    <form method="post" enctype="multipart/form-data">
        <input type="file" name="file" accept=".csv,.json" required>
        <input type="submit" value="Upload">
    </form>
    %s
</body>
</html>`

const inviteFormHTML = `<!DOCTYPE html>
<html>
<body>
<form method="post" enctype="multipart/form-data">
    Name: <input type="text" name="name" required><br>
    Phone: <input type="text" name="phone" required><br>
    Resume: <input type="file" name="resume" accept=".pdf,.doc,.docx" required><br>
    Select Interview Time: <input type="datetime-local" name="interview_time" required><br>
    <input type="submit" value="Submit">
</form>
</body>
</html>`

// Accepted layouts for the interview_time form field. datetime-local
// submits without seconds; API clients tend to include them.
var interviewTimeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04"}

// InviteHandler serves invite issuance and form intake.
type InviteHandler struct {
	Store  store.InviteStore
	Email  services.EmailSender
	Resume services.ResumeProcessor
	Cfg    *config.Config
}

// UploadPage renders the bulk candidate upload form.
func (h *InviteHandler) UploadPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(uploadPageHTML, "")))
}

// UploadCandidates ingests a CSV or JSON file of candidates and issues
// one invite per email found.
func (h *InviteHandler) UploadCandidates(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.renderUploadResult(c, "No file uploaded.")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.renderUploadResult(c, "Could not read uploaded file.")
		return
	}
	defer f.Close()

	var (
		candidates []models.CandidateRow
		filename   = strings.ToLower(fileHeader.Filename)
	)

	switch {
	case strings.HasSuffix(filename, ".json"):
		if err := json.NewDecoder(f).Decode(&candidates); err != nil {
			h.renderUploadResult(c, fmt.Sprintf("Error reading JSON: %v", err))
			return
		}
	case strings.HasSuffix(filename, ".csv"):
		candidates, err = readCandidateCSV(f)
		if err != nil {
			h.renderUploadResult(c, fmt.Sprintf("Error reading CSV: %v", err))
			return
		}
	default:
		h.renderUploadResult(c, "Unsupported file type.")
		return
	}

	sent := 0
	for _, candidate := range candidates {
		if candidate.Email == "" {
			continue
		}
		if _, err := h.issueInvite(c, candidate.Email); err != nil {
			log.Printf("❌ Failed to invite %s: %v", utils.MaskEmail(candidate.Email), err)
			continue
		}
		sent++
	}

	h.renderUploadResult(c, fmt.Sprintf("Successfully uploaded %d candidates. Sent %d invites.", len(candidates), sent))
}

func (h *InviteHandler) renderUploadResult(c *gin.Context, message string) {
	body := fmt.Sprintf(uploadPageHTML, "<p>"+message+"</p>")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

func readCandidateCSV(r io.Reader) ([]models.CandidateRow, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	emailCol := -1
	for i, col := range records[0] {
		if strings.EqualFold(strings.TrimSpace(col), "email") {
			emailCol = i
		}
	}
	if emailCol == -1 {
		return nil, fmt.Errorf("no email column found")
	}

	var rows []models.CandidateRow
	for _, record := range records[1:] {
		if emailCol < len(record) {
			rows = append(rows, models.CandidateRow{Email: strings.TrimSpace(record[emailCol])})
		}
	}
	return rows, nil
}

// SendInvite issues a single invite from a form or JSON body.
func (h *InviteHandler) SendInvite(c *gin.Context) {
	var req models.SendInviteRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.issueInvite(c, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invite"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invite sent.", "token": token})
}

// issueInvite generates the token, persists the record (degrading to
// the pending queue when the store is down) and emails the form link.
// Email failure never blocks issuance.
func (h *InviteHandler) issueInvite(c *gin.Context, email string) (string, error) {
	token, err := utils.NewToken()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	inv := &models.Invite{
		Email:     email,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(h.Cfg.InviteTTL),
	}

	if err := h.Store.Create(c.Request.Context(), inv); err != nil {
		return "", err
	}

	link := fmt.Sprintf("%s/fill_form/%s", h.Cfg.InviteBaseURL, token)
	if err := h.Email.SendInvite(email, link); err != nil {
		log.Printf("⚠️ Invite created but email to %s failed: %v", utils.MaskEmail(email), err)
	}

	return token, nil
}

// ShowForm validates the token and renders the candidate form.
func (h *InviteHandler) ShowForm(c *gin.Context) {
	token := c.Param("token")

	if _, err := store.ValidateAndOpen(c.Request.Context(), h.Store, token, time.Now()); err != nil {
		respondInviteError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(inviteFormHTML))
}

// SubmitForm accepts the candidate's details plus resume, runs the
// upload/parse pipeline, recomputes the link deadline from the chosen
// interview time and emails the interview link.
func (h *InviteHandler) SubmitForm(c *gin.Context) {
	token := c.Param("token")
	ctx := c.Request.Context()

	inv, err := store.ValidateAndOpen(ctx, h.Store, token, time.Now())
	if err != nil {
		respondInviteError(c, err)
		return
	}

	interviewTime, err := parseInterviewTime(c.PostForm("interview_time"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interview_time is required in YYYY-MM-DDTHH:MM format"})
		return
	}

	formData := map[string]any{}
	if form, err := c.MultipartForm(); err == nil {
		for key, values := range form.Value {
			if len(values) > 0 {
				formData[key] = values[0]
			}
		}
	}

	fileHeader, err := c.FormFile("resume")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resume file is required"})
		return
	}

	resumeBytes, err := readMultipartFile(fileHeader.Open())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read resume file"})
		return
	}

	// Keep a local copy alongside the remote upload.
	if path, err := h.saveResumeLocally(token, fileHeader.Filename, resumeBytes); err == nil {
		formData["resume_path"] = path
	} else {
		log.Printf("⚠️ Could not save local resume copy: %v", err)
	}

	signedURL, err := h.Resume.Upload(ctx, fileHeader.Filename, resumeBytes)
	if err != nil {
		// Record left untouched so the candidate can retry.
		respondUpstreamError(c, err)
		return
	}

	parsed, err := h.Resume.Parse(ctx, signedURL)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	formData["parsed_resume"] = parsed
	formData["resume_url"] = signedURL

	expiresAt := interviewTime.Add(h.Cfg.PostSubmitTTL)
	if err := h.Store.SaveForm(ctx, token, formData, expiresAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save form"})
		return
	}

	interviewLink := fmt.Sprintf("%s/interview/%s", h.Cfg.InterviewBaseURL, token)
	if err := h.Email.SendInterviewLink(inv.Email, interviewLink); err != nil {
		log.Printf("⚠️ Interview link email to %s failed: %v", utils.MaskEmail(inv.Email), err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Form submitted. Check your email for the interview link."})
}

func (h *InviteHandler) saveResumeLocally(token, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(h.Cfg.UploadsDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(h.Cfg.UploadsDir, fmt.Sprintf("%s_%s", token, filepath.Base(filename)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// InterviewRedirect bounces the candidate to the interview service.
func (h *InviteHandler) InterviewRedirect(c *gin.Context) {
	token := c.Param("token")
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/interview/%s", h.Cfg.InterviewBaseURL, token))
}

func parseInterviewTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("interview_time missing")
	}
	for _, layout := range interviewTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable interview_time %q", value)
}

func readMultipartFile(f multipart.File, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func respondInviteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
	case errors.Is(err, store.ErrExpired), errors.Is(err, store.ErrConsumed):
		c.JSON(http.StatusForbidden, gin.H{"error": "Link expired or already used."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func respondUpstreamError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNoSignedURL) {
		c.JSON(http.StatusBadGateway, gin.H{"error": services.ErrNoSignedURL.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Resume upload failed: %v", err)})
}
