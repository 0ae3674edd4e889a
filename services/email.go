package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EmailSender is what handlers depend on; tests swap in a fake.
type EmailSender interface {
	SendInvite(to, link string) error
	SendInterviewLink(to, link string) error
}

// EmailService sends candidate emails through the Resend HTTP API.
// Sending is best-effort: callers log failures and keep going.
type EmailService struct {
	apiKey     string
	fromEmail  string
	httpClient *http.Client
}

func NewEmailService(apiKey, fromEmail string, timeout time.Duration) *EmailService {
	return &EmailService{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendInvite emails the form link to a freshly invited candidate.
func (s *EmailService) SendInvite(to, link string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
    <h2>Interview Invite</h2>
    <p>You have been invited to interview with us.</p>
    <p>Click <a href="%s">here</a> to fill in your details and pick an interview slot.</p>
    <p style="color: #e74c3c;">⚠️ This link expires in 24 hours.</p>
</body>
</html>
	`, link)

	return s.send(to, "Interview Invite", htmlBody)
}

// SendInterviewLink emails the interview-room link after a successful
// form submission.
func (s *EmailService) SendInterviewLink(to, link string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
    <h2>Your Interview Link</h2>
    <p>Your interview link: <a href="%s">Here</a></p>
    <p>The link opens 30 minutes around your selected start time.</p>
</body>
</html>
	`, link)

	return s.send(to, "Interview Link", htmlBody)
}

func (s *EmailService) send(to, subject, htmlBody string) error {
	if s.apiKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	payload := map[string]interface{}{
		"from":    fmt.Sprintf("TalentOps <%s>", s.fromEmail),
		"to":      []string{to},
		"subject": subject,
		"html":    htmlBody,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("failed to send email: status %d", resp.StatusCode)
	}

	return nil
}
