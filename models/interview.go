package models

import "time"

// Transcript speakers. Entries are stored in callback-arrival order;
// no reordering or deduplication is ever applied.
const (
	SpeakerAgent     = "agent"
	SpeakerCandidate = "candidate"
)

type TranscriptEntry struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CandidateContext is the flattened candidate profile the interview
// agent is primed with, assembled from the invite's form data.
type CandidateContext struct {
	Name       string         `json:"name,omitempty"`
	Email      string         `json:"email,omitempty"`
	Experience []string       `json:"candidate_experience"`
	Skills     []string       `json:"technical_skills"`
	Education  []string       `json:"education,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Links      []string       `json:"links,omitempty"`
	Raw        map[string]any `json:"raw,omitempty"`
}

// Evaluation is a structurally fixed placeholder. The shape is the
// contract; real scoring is produced elsewhere and slotted in later.
type Evaluation struct {
	ResumeValidation struct {
		ExperienceVerified bool     `json:"experience_verified"`
		SkillsVerified     bool     `json:"skills_verified"`
		Discrepancies      []string `json:"discrepancies"`
	} `json:"resume_validation"`
	TechnicalAssessment struct {
		ProficiencyLevel    string   `json:"proficiency_level"`
		Strengths           []string `json:"strengths"`
		AreasForImprovement []string `json:"areas_for_improvement"`
	} `json:"technical_assessment"`
	CommunicationAssessment struct {
		PronunciationClarity string `json:"pronunciation_clarity"`
		ResponseQuality      string `json:"response_quality"`
		Articulation         string `json:"articulation"`
	} `json:"communication_assessment"`
	OverallScore int `json:"overall_score"`
}

// NewEvaluation returns the stub evaluation with all slices non-nil so
// the persisted JSON always carries the full shape.
func NewEvaluation() Evaluation {
	var ev Evaluation
	ev.ResumeValidation.Discrepancies = []string{}
	ev.TechnicalAssessment.Strengths = []string{}
	ev.TechnicalAssessment.AreasForImprovement = []string{}
	return ev
}

// InterviewRecord is the durable artifact written once per conversation
// when a session ends.
type InterviewRecord struct {
	ConversationID      string            `json:"conversation_id"`
	Timestamp           time.Time         `json:"timestamp"`
	CandidateInfo       CandidateContext  `json:"candidate_info"`
	ConversationHistory []TranscriptEntry `json:"conversation_history"`
	DurationSeconds     int64             `json:"duration_seconds"`
	Evaluation          Evaluation        `json:"evaluation"`
}
