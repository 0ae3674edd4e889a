package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestResumeService_UploadReturnsSignedURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not a multipart body: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"signedUrl": "https://files.example.com/r.pdf"},
		})
	}))
	defer srv.Close()

	svc := NewResumeService(srv.URL, srv.URL, "test-token", 5*time.Second)
	url, err := svc.Upload(context.Background(), "resume.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if url != "https://files.example.com/r.pdf" {
		t.Fatalf("unexpected signed URL %q", url)
	}
}

func TestResumeService_UploadWithoutSignedURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{}})
	}))
	defer srv.Close()

	svc := NewResumeService(srv.URL, srv.URL, "test-token", 5*time.Second)
	_, err := svc.Upload(context.Background(), "resume.pdf", []byte("%PDF"))
	if !errors.Is(err, ErrNoSignedURL) {
		t.Fatalf("expected ErrNoSignedURL, got %v", err)
	}
}

func TestResumeService_UpstreamFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "bucket unavailable"})
	}))
	defer srv.Close()

	svc := NewResumeService(srv.URL, srv.URL, "test-token", 5*time.Second)
	_, err := svc.Upload(context.Background(), "resume.pdf", []byte("%PDF"))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "bucket unavailable") {
		t.Fatalf("expected API message in error, got %v", err)
	}
}

func TestResumeService_ParseEncodesURLInPath(t *testing.T) {
	t.Parallel()

	signedURL := "https://files.example.com/r.pdf?sig=abc"
	parsed := map[string]any{"skills": []any{"go"}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantSuffix := "/" + base64.StdEncoding.EncodeToString([]byte(signedURL))
		if !strings.HasSuffix(r.URL.Path, wantSuffix) {
			t.Errorf("expected base64 signed URL in path, got %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": parsed})
	}))
	defer srv.Close()

	svc := NewResumeService(srv.URL, srv.URL, "test-token", 5*time.Second)
	got, err := svc.Parse(context.Background(), signedURL)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	skills, ok := got["skills"].([]any)
	if !ok || len(skills) != 1 || skills[0] != "go" {
		t.Fatalf("unexpected parsed data %+v", got)
	}
}
