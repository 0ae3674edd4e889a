package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

var (
	// ErrUpstream wraps any failure of the resume upload/parse API.
	ErrUpstream = errors.New("resume processing failed upstream")
	// ErrNoSignedURL means the upload succeeded but the API returned no
	// file URL to parse.
	ErrNoSignedURL = errors.New("resume upload failed: no URL returned from API")
)

// ResumeProcessor is the two-step remote contract: upload the raw file,
// then parse the uploaded URL into structured resume data.
type ResumeProcessor interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
	Parse(ctx context.Context, signedURL string) (map[string]any, error)
}

// ResumeService calls the external storage/parsing API.
type ResumeService struct {
	uploadURL  string
	parseURL   string
	authToken  string
	httpClient *http.Client
}

func NewResumeService(uploadURL, parseURL, authToken string, timeout time.Duration) *ResumeService {
	return &ResumeService{
		uploadURL:  uploadURL,
		parseURL:   parseURL,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type resumeAPIResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// Upload pushes the resume file to cloud storage and returns the signed
// URL assigned by the API.
func (s *ResumeService) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	apiResp, err := s.execute(req)
	if err != nil {
		return "", err
	}

	signedURL, _ := apiResp.Data["signedUrl"].(string)
	if signedURL == "" {
		return "", ErrNoSignedURL
	}
	return signedURL, nil
}

// Parse asks the parsing API for structured resume data. The uploaded
// URL is base64-encoded into the request path, as the API expects.
func (s *ResumeService) Parse(ctx context.Context, signedURL string) (map[string]any, error) {
	encoded := base64.StdEncoding.EncodeToString([]byte(signedURL))

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/%s", s.parseURL, encoded), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.authToken)

	apiResp, err := s.execute(req)
	if err != nil {
		return nil, err
	}
	return apiResp.Data, nil
}

func (s *ResumeService) execute(req *http.Request) (*resumeAPIResponse, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var apiResp resumeAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: status %d, unreadable body", ErrUpstream, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || !apiResp.Success {
		msg := apiResp.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	return &apiResp, nil
}
