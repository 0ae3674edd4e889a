package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentops/interview-api/config"
	"github.com/talentops/interview-api/models"
	"github.com/talentops/interview-api/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEmail struct {
	mu             sync.Mutex
	inviteLinks    []string
	interviewLinks []string
	err            error
}

func (f *fakeEmail) SendInvite(to, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inviteLinks = append(f.inviteLinks, link)
	return nil
}

func (f *fakeEmail) SendInterviewLink(to, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.interviewLinks = append(f.interviewLinks, link)
	return nil
}

type fakeResume struct {
	uploadErr error
	parseErr  error
	signedURL string
	parsed    map[string]any
	uploads   int
}

func (f *fakeResume) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	f.uploads++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.signedURL, nil
}

func (f *fakeResume) Parse(ctx context.Context, signedURL string) (map[string]any, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.parsed, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		InviteBaseURL:    "http://localhost:5000",
		InterviewBaseURL: "http://localhost:5001",
		UploadsDir:       dir,
		RecordsDir:       dir,
		InviteTTL:        24 * time.Hour,
		PostSubmitTTL:    30 * time.Minute,
	}
}

func newInviteRouter(h *InviteHandler) *gin.Engine {
	r := gin.New()
	r.GET("/", h.UploadPage)
	r.POST("/", h.UploadCandidates)
	r.POST("/send_invite", h.SendInvite)
	r.GET("/fill_form/:token", h.ShowForm)
	r.POST("/fill_form/:token", h.SubmitForm)
	r.GET("/interview/:token", h.InterviewRedirect)
	return r
}

func seedInvite(t *testing.T, s store.InviteStore, token string, expiresAt time.Time) {
	t.Helper()
	err := s.Create(context.Background(), &models.Invite{
		Email:     "candidate@example.com",
		Token:     token,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
}

func multipartForm(t *testing.T, fields map[string]string, fileField, filename string, fileBody []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(fileBody)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestSendInvite_CreatesActionableInvite(t *testing.T) {
	s := store.NewMemoryStore()
	email := &fakeEmail{}
	h := &InviteHandler{Store: s, Email: email, Resume: &fakeResume{}, Cfg: testConfig(t)}
	router := newInviteRouter(h)

	body := bytes.NewBufferString(`{"email":"candidate@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/send_invite", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	inv, err := s.GetByToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "candidate@example.com", inv.Email)
	assert.False(t, inv.IsUsed)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), inv.ExpiresAt, time.Minute)

	require.Len(t, email.inviteLinks, 1)
	assert.Contains(t, email.inviteLinks[0], "/fill_form/"+resp.Token)
}

func TestSendInvite_EmailFailureDoesNotBlockIssuance(t *testing.T) {
	s := store.NewMemoryStore()
	h := &InviteHandler{
		Store:  s,
		Email:  &fakeEmail{err: errors.New("smtp down")},
		Resume: &fakeResume{},
		Cfg:    testConfig(t),
	}
	router := newInviteRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/send_invite", bytes.NewBufferString(`{"email":"candidate@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err := s.GetByToken(context.Background(), resp.Token)
	assert.NoError(t, err)
}

func TestSendInvite_RejectsInvalidEmail(t *testing.T) {
	h := &InviteHandler{Store: store.NewMemoryStore(), Email: &fakeEmail{}, Resume: &fakeResume{}, Cfg: testConfig(t)}
	router := newInviteRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/send_invite", bytes.NewBufferString(`{"email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowForm_TokenStates(t *testing.T) {
	s := store.NewMemoryStore()
	seedInvite(t, s, "live-token", time.Now().Add(time.Hour))
	seedInvite(t, s, "dead-token", time.Now().Add(-time.Hour))

	h := &InviteHandler{Store: s, Email: &fakeEmail{}, Resume: &fakeResume{}, Cfg: testConfig(t)}
	router := newInviteRouter(h)

	cases := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"valid token renders the form", "live-token", http.StatusOK},
		{"unknown token", "ghost-token", http.StatusNotFound},
		{"expired token", "dead-token", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/fill_form/"+tc.token, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestShowForm_ConsumedTokenIsForbidden(t *testing.T) {
	s := store.NewMemoryStore()
	seedInvite(t, s, "used-token", time.Now().Add(time.Hour))
	require.NoError(t, s.Consume(context.Background(), "used-token"))

	h := &InviteHandler{Store: s, Email: &fakeEmail{}, Resume: &fakeResume{}, Cfg: testConfig(t)}
	router := newInviteRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/fill_form/used-token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Link expired or already used.")
}

func TestSubmitForm_SetsDeadlineFromInterviewTime(t *testing.T) {
	s := store.NewMemoryStore()
	seedInvite(t, s, "form-token", time.Now().Add(24*time.Hour))

	email := &fakeEmail{}
	resume := &fakeResume{
		signedURL: "https://files.example.com/resume.pdf",
		parsed:    map[string]any{"skills": []any{"go", "sql"}},
	}
	h := &InviteHandler{Store: s, Email: email, Resume: resume, Cfg: testConfig(t)}
	router := newInviteRouter(h)

	body, contentType := multipartForm(t, map[string]string{
		"name":           "Ada Lovelace",
		"phone":          "+15550100",
		"interview_time": "2025-01-01T10:00",
	}, "resume", "resume.pdf", []byte("%PDF-1.4 fake"))

	req := httptest.NewRequest(http.MethodPost, "/fill_form/form-token", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	inv, err := s.GetByToken(context.Background(), "form-token")
	require.NoError(t, err)

	wantExpiry := time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC)
	assert.True(t, inv.ExpiresAt.Equal(wantExpiry), "expected expiry %v, got %v", wantExpiry, inv.ExpiresAt)
	assert.False(t, inv.IsUsed, "form submission must not consume the invite")
	assert.Equal(t, "Ada Lovelace", inv.FormData["name"])
	assert.Equal(t, resume.signedURL, inv.FormData["resume_url"])
	assert.NotNil(t, inv.FormData["parsed_resume"])

	require.Len(t, email.interviewLinks, 1)
	assert.Contains(t, email.interviewLinks[0], "/interview/form-token")
}

func TestSubmitForm_UpstreamFailureLeavesRecordRetryable(t *testing.T) {
	s := store.NewMemoryStore()
	seedInvite(t, s, "retry-token", time.Now().Add(24*time.Hour))

	resume := &fakeResume{uploadErr: errors.New("storage API down")}
	h := &InviteHandler{Store: s, Email: &fakeEmail{}, Resume: resume, Cfg: testConfig(t)}
	router := newInviteRouter(h)

	submit := func() *httptest.ResponseRecorder {
		body, contentType := multipartForm(t, map[string]string{
			"name":           "Ada Lovelace",
			"interview_time": "2025-01-01T10:00",
		}, "resume", "resume.pdf", []byte("fake"))
		req := httptest.NewRequest(http.MethodPost, "/fill_form/retry-token", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := submit()
	require.Equal(t, http.StatusBadGateway, rec.Code)

	inv, err := s.GetByToken(context.Background(), "retry-token")
	require.NoError(t, err)
	assert.Nil(t, inv.FormData, "failed submission must not persist form data")

	// The same link works again once the upstream recovers.
	resume.uploadErr = nil
	resume.signedURL = "https://files.example.com/resume.pdf"
	resume.parsed = map[string]any{}

	rec = submit()
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSubmitForm_ValidationErrors(t *testing.T) {
	s := store.NewMemoryStore()
	seedInvite(t, s, "val-token", time.Now().Add(24*time.Hour))

	h := &InviteHandler{Store: s, Email: &fakeEmail{}, Resume: &fakeResume{}, Cfg: testConfig(t)}
	router := newInviteRouter(h)

	t.Run("missing interview_time", func(t *testing.T) {
		body, contentType := multipartForm(t, map[string]string{"name": "Ada"}, "resume", "resume.pdf", []byte("fake"))
		req := httptest.NewRequest(http.MethodPost, "/fill_form/val-token", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing resume file", func(t *testing.T) {
		body, contentType := multipartForm(t, map[string]string{
			"name":           "Ada",
			"interview_time": "2025-01-01T10:00",
		}, "", "", nil)
		req := httptest.NewRequest(http.MethodPost, "/fill_form/val-token", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUploadCandidates_CSV(t *testing.T) {
	s := store.NewMemoryStore()
	email := &fakeEmail{}
	h := &InviteHandler{Store: s, Email: email, Resume: &fakeResume{}, Cfg: testConfig(t)}
	router := newInviteRouter(h)

	csvBody := "name,email\nAda,ada@example.com\nAlan,alan@example.com\n"
	body, contentType := multipartForm(t, nil, "file", "candidates.csv", []byte(csvBody))

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sent 2 invites")
	assert.Len(t, email.inviteLinks, 2)
}

func TestInterviewRedirect(t *testing.T) {
	h := &InviteHandler{Store: store.NewMemoryStore(), Email: &fakeEmail{}, Resume: &fakeResume{}, Cfg: testConfig(t)}
	router := newInviteRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/interview/some-token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:5001/interview/some-token", rec.Header().Get("Location"))
}
