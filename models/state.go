package models

import "strings"

// Mode selects the tutoring style used in the LLM instructions
type Mode string

const (
	ModeTutor   Mode = "Tutor"
	ModeDirecto Mode = "Directo"
	ModeRepaso  Mode = "Repaso"
	ModeLab     Mode = "Lab"
	ModeQuiz    Mode = "Quiz"
)

// ParseMode maps free text to a Mode, case-insensitively
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tutor":
		return ModeTutor, true
	case "directo":
		return ModeDirecto, true
	case "repaso":
		return ModeRepaso, true
	case "lab":
		return ModeLab, true
	case "quiz":
		return ModeQuiz, true
	}
	return ModeTutor, false
}

// ResponseSize controls the requested answer length
type ResponseSize string

const (
	SizeShort  ResponseSize = "corta"
	SizeNormal ResponseSize = "normal"
	SizeLong   ResponseSize = "larga"
)

// ParseResponseSize accepts the Spanish names and their English aliases.
// Anything else is normal.
func ParseResponseSize(s string) ResponseSize {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "corta", "short":
		return SizeShort
	case "larga", "long":
		return SizeLong
	}
	return SizeNormal
}

const (
	DefaultSubject = "General"
	DefaultTopic   = "-"
	DefaultUser    = "Invitado"
)

// SessionState is the per-session tutoring context
type SessionState struct {
	Subject      string
	Topic        string
	Mode         Mode
	UseMemory    bool
	ResponseSize ResponseSize
}

// NewSessionState returns the defaults used for a fresh user
func NewSessionState() SessionState {
	return SessionState{
		Subject:      DefaultSubject,
		Topic:        DefaultTopic,
		Mode:         ModeTutor,
		UseMemory:    true,
		ResponseSize: SizeNormal,
	}
}

// QuizState is the in-memory quiz progress of a session.
// LastCorrectIndex and LastOptions are meaningful only while Active and a
// question has been committed.
type QuizState struct {
	Active           bool
	SessionID        *int64
	QIndex           int
	LastCorrectIndex *int
	LastQuestionText string
	LastOptions      []string
	// Answered is set once the current question has a recorded answer
	Answered bool
}

// Pending reports whether a question is waiting for an answer
func (q QuizState) Pending() bool {
	return q.Active && q.LastCorrectIndex != nil && q.LastQuestionText != ""
}

// StateSnapshot is what presentation layers receive after state changes
type StateSnapshot struct {
	User         string       `json:"user"`
	Subject      string       `json:"subject"`
	Topic        string       `json:"topic"`
	Mode         Mode         `json:"mode"`
	UseMemory    bool         `json:"use_memory"`
	ResponseSize ResponseSize `json:"response_size"`
	QuizActive   bool         `json:"quiz_active"`
}
