package config

import (
	"testing"
	"time"
)

func TestLoad_MemoryBackendNeedsNoDatabase(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.InviteAddr != ":5000" || cfg.InterviewAddr != ":5001" {
		t.Fatalf("unexpected addresses %q / %q", cfg.InviteAddr, cfg.InterviewAddr)
	}
	if cfg.InviteTTL != 24*time.Hour {
		t.Fatalf("unexpected invite TTL %v", cfg.InviteTTL)
	}
	if cfg.PostSubmitTTL != 30*time.Minute {
		t.Fatalf("unexpected post-submit TTL %v", cfg.PostSubmitTTL)
	}
	if cfg.MaxInterviewDuration != 600*time.Second {
		t.Fatalf("unexpected interview cap %v", cfg.MaxInterviewDuration)
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error without DATABASE_URL")
	}
}

func TestGetDuration_AcceptsBareSeconds(t *testing.T) {
	t.Setenv("MAX_INTERVIEW_DURATION", "600")
	if got := getDuration("MAX_INTERVIEW_DURATION", time.Minute); got != 600*time.Second {
		t.Fatalf("bare seconds not honored, got %v", got)
	}

	t.Setenv("MAX_INTERVIEW_DURATION", "15m")
	if got := getDuration("MAX_INTERVIEW_DURATION", time.Minute); got != 15*time.Minute {
		t.Fatalf("duration string not honored, got %v", got)
	}

	t.Setenv("MAX_INTERVIEW_DURATION", "garbage")
	if got := getDuration("MAX_INTERVIEW_DURATION", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on unparsable value, got %v", got)
	}
}
