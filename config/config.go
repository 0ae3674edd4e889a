package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything both services read from the environment.
// Loaded once at startup, treated as immutable afterwards.
type Config struct {
	// Servers
	InviteAddr    string
	InterviewAddr string

	// Invite store
	StoreBackend     string // postgres | mongo | memory
	DatabaseURL      string
	MongoURI         string
	MongoDatabase    string
	PendingQueuePath string

	// Interview artifacts
	RecordsDir string
	UploadsDir string

	// Email (Resend API)
	ResendAPIKey string
	FromEmail    string

	// Link bases embedded in outgoing emails
	InviteBaseURL    string
	InterviewBaseURL string

	// Resume upload/parse API
	UploadAPIURL   string
	ParseAPIURL    string
	ResumeAPIToken string

	// Conversational AI vendor
	ElevenAPIKey string
	AgentID      string

	// Lifecycle policy
	InviteTTL            time.Duration // issuance -> form deadline
	PostSubmitTTL        time.Duration // interview start -> link deadline
	MaxInterviewDuration time.Duration // hard cap enforced by the watchdog
	WatchdogInterval     time.Duration // watchdog poll resolution

	// Outbound HTTP
	HTTPTimeout time.Duration
}

// Load reads the configuration from environment variables.
// DATABASE_URL (or MONGO_URI, depending on STORE_BACKEND) is the only
// hard requirement; everything else has a workable default.
func Load() (*Config, error) {
	cfg := &Config{
		InviteAddr:    getEnv("INVITE_ADDR", ":5000"),
		InterviewAddr: getEnv("INTERVIEW_ADDR", ":5001"),

		StoreBackend:     getEnv("STORE_BACKEND", "postgres"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "invite_send"),
		PendingQueuePath: getEnv("PENDING_QUEUE_PATH", "pending_invites.jsonl"),

		RecordsDir: getEnv("RECORDS_DIR", "interview_records"),
		UploadsDir: getEnv("UPLOADS_DIR", "uploads"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@talentops.dev"),

		InviteBaseURL:    getEnv("INVITE_BASE_URL", "http://localhost:5000"),
		InterviewBaseURL: getEnv("INTERVIEW_BASE_URL", "http://localhost:5001"),

		UploadAPIURL:   os.Getenv("RESUME_UPLOAD_API_URL"),
		ParseAPIURL:    os.Getenv("RESUME_PARSE_API_URL"),
		ResumeAPIToken: os.Getenv("RESUME_API_TOKEN"),

		ElevenAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		AgentID:      os.Getenv("AGENT_ID"),

		InviteTTL:            getDuration("INVITE_TTL", 24*time.Hour),
		PostSubmitTTL:        getDuration("POST_SUBMIT_TTL", 30*time.Minute),
		MaxInterviewDuration: getDuration("MAX_INTERVIEW_DURATION", 600*time.Second),
		WatchdogInterval:     getDuration("WATCHDOG_INTERVAL", 10*time.Second),

		HTTPTimeout: getDuration("HTTP_TIMEOUT", 60*time.Second),
	}

	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case "mongo":
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required when STORE_BACKEND=mongo")
		}
	case "memory":
		// no external store needed
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want postgres, mongo or memory)", cfg.StoreBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are treated as seconds (MAX_INTERVIEW_DURATION=600)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
