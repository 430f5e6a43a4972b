// Package quiz runs multiple-choice quizzes: question generation through
// the LLM with local repair and a deterministic fallback, answer checking
// and persistence of every question.
package quiz

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/korjavin/profesorbot/ai"
	"github.com/korjavin/profesorbot/models"
)

// QuestionsPerSession is the target recorded for every quiz session
const QuestionsPerSession = 10

const (
	ResetText      = "Quiz reiniciado. Si quieres empezar: `/quiz start`"
	NoQuestionText = "No tengo una pregunta activa. Escribe **siguiente**."
	ChoiceHelpText = "Responde con **A, B, C o D** (o escribe **siguiente**).\nEjemplo: `B`"
	InvalidText    = "No pude generar una pregunta válida. Escribe **siguiente** para reintentar."
	NoSessionText  = "No pude iniciar quiz (session_id vacío). Usa `/quiz start`."
	InactiveText   = "Quiz no está activo. Usa `/quiz start`."
	AnsweredText   = "Ya respondiste esta pregunta. Escribe **siguiente** para otra."
)

const letters = "ABCD"

// Store is the persistence the engine writes to
type Store interface {
	GetOrCreateTopic(subject, topic string) (int64, error)
	StartQuizSession(userID, topicID int64, difficulty string, nQuestions int) (int64, error)
	FinishQuizSession(sessionID int64) error
	LogQuizQuestion(q models.QuizQuestion) (int64, error)
	UpdateQuizAnswer(sessionID int64, qIndex, userAnswerIndex int, isCorrect bool, explanation string) (bool, error)
}

// Context identifies who is quizzed and on what
type Context struct {
	UserID   int64
	UserName string
	Subject  string
	Topic    string
	Size     models.ResponseSize
}

// Engine holds the quiz state of one session. It is not safe for
// concurrent use; the owning session serializes calls.
type Engine struct {
	store Store
	llm   *ai.Client
	log   *zap.SugaredLogger
	state models.QuizState

	// fallback is swappable so tests can force an invalid payload
	fallback func(sessionID int64, index int, subject, topic string) Payload
}

// NewEngine creates an engine. llm may be nil, in which case every question
// comes from the local fallback.
func NewEngine(store Store, llm *ai.Client, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{store: store, llm: llm, log: logger, fallback: Fallback}
}

// State returns a copy of the current quiz state
func (e *Engine) State() models.QuizState {
	s := e.state
	s.LastOptions = append([]string(nil), e.state.LastOptions...)
	return s
}

// Active reports whether a quiz is running
func (e *Engine) Active() bool {
	return e.state.Active
}

// Start opens a new persisted quiz session and generates its first question.
// A session still running is finished first.
func (e *Engine) Start(ctx context.Context, qc Context) (string, error) {
	if e.state.Active {
		e.Reset()
	}
	topicID, err := e.store.GetOrCreateTopic(qc.Subject, qc.Topic)
	if err != nil {
		return "", fmt.Errorf("failed to resolve topic: %w", err)
	}
	sessionID, err := e.store.StartQuizSession(qc.UserID, topicID, string(qc.Size), QuestionsPerSession)
	if err != nil {
		return "", err
	}
	e.state = models.QuizState{Active: true, SessionID: &sessionID}
	e.log.Infof("Quiz session %d started for user %d on %s / %s", sessionID, qc.UserID, qc.Subject, qc.Topic)
	return e.Next(ctx, qc)
}

// Reset finishes the running session, best effort, and clears the state
func (e *Engine) Reset() {
	if e.state.SessionID != nil {
		if err := e.store.FinishQuizSession(*e.state.SessionID); err != nil {
			e.log.Warnf("Failed to finish quiz session %d: %v", *e.state.SessionID, err)
		}
	}
	e.state = models.QuizState{}
}

// Clear drops the in-memory state without touching the store
func (e *Engine) Clear() {
	e.state = models.QuizState{}
}

// HandleInput interprets a message sent while the quiz is running: a
// request for the next question or an answer
func (e *Engine) HandleInput(ctx context.Context, qc Context, text string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "siguiente", "otra", "next":
		return e.Next(ctx, qc)
	}
	return e.Answer(text)
}

// ParseChoice maps A-D or 1-4, case-insensitively, to 0..3
func ParseChoice(text string) (int, bool) {
	t := strings.ToUpper(strings.TrimSpace(text))
	if len(t) != 1 {
		return 0, false
	}
	if i := strings.Index(letters, t); i >= 0 {
		return i, true
	}
	if t[0] >= '1' && t[0] <= '4' {
		return int(t[0] - '1'), true
	}
	return 0, false
}

// Answer checks a choice against the pending question and records it
func (e *Engine) Answer(text string) (string, error) {
	ans, ok := ParseChoice(text)
	if !ok {
		return ChoiceHelpText, nil
	}
	if !e.state.Pending() {
		return NoQuestionText, nil
	}
	if e.state.Answered {
		return AnsweredText, nil
	}
	correct := *e.state.LastCorrectIndex
	isCorrect := ans == correct

	if e.state.SessionID != nil {
		if _, err := e.store.UpdateQuizAnswer(*e.state.SessionID, e.state.QIndex, ans, isCorrect, ""); err != nil {
			return "", err
		}
	}
	e.state.Answered = true

	feedback := "Correcto."
	if !isCorrect {
		feedback = fmt.Sprintf("Incorrecto. La correcta era **%c**.", letters[correct])
	}
	return fmt.Sprintf("%s\nTu respuesta: **%c**.\nEscribe **siguiente** para otra pregunta.", feedback, letters[ans]), nil
}

// Next generates and commits the following question. The index only
// advances once a valid question has been stored.
func (e *Engine) Next(ctx context.Context, qc Context) (string, error) {
	if e.state.SessionID == nil {
		return NoSessionText, nil
	}
	if !e.state.Active {
		return InactiveText, nil
	}
	sessionID := *e.state.SessionID
	next := e.state.QIndex + 1

	p, err := e.generate(ctx, qc, sessionID, next)
	if err != nil {
		e.log.Infof("Quiz %d question %d falls back to a local question: %v", sessionID, next, err)
		p = e.fallback(sessionID, next, qc.Subject, qc.Topic)
	}
	if !p.valid() {
		e.log.Warnf("Quiz %d question %d payload is invalid: %+v", sessionID, next, p)
		return InvalidText, nil
	}

	_, err = e.store.LogQuizQuestion(models.QuizQuestion{
		SessionID:    sessionID,
		Index:        next,
		Question:     p.Question,
		Options:      p.Options,
		CorrectIndex: p.CorrectIndex,
		Explanation:  p.Explanation,
	})
	if err != nil {
		return "", err
	}

	correct := p.CorrectIndex
	e.state.QIndex = next
	e.state.LastQuestionText = p.Question
	e.state.LastOptions = append([]string(nil), p.Options...)
	e.state.LastCorrectIndex = &correct
	e.state.Answered = false

	return formatQuestion(next, qc, p), nil
}

func formatQuestion(index int, qc Context, p Payload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 **Quiz #%d**  (%s · %s)\n\n", index, qc.Subject, qc.Topic)
	fmt.Fprintf(&b, "**%s**\n\n", p.Question)
	for i, o := range p.Options {
		fmt.Fprintf(&b, "%c) %s\n", letters[i], o)
	}
	b.WriteString("\nResponde con **A/B/C/D**.")
	return b.String()
}

func difficultyHint(size models.ResponseSize) string {
	switch size {
	case models.SizeShort:
		return "fácil"
	case models.SizeLong:
		return "difícil"
	}
	return "media"
}

const schemaLine = `{"question":"...","options":["...","...","...","..."],"correct_index":2,"explanation":"..."}`

func f32(v float32) *float32 { return &v }
func intp(v int) *int        { return &v }

func questionPrompt(qc Context, sessionID int64, next int) string {
	seed := fmt.Sprintf("%s:%s:%s:%d:%d", qc.UserName, qc.Subject, qc.Topic, sessionID, next)
	return "Devuelve SOLO un JSON válido (sin markdown, sin texto extra).\n" +
		"Esquema:\n" + schemaLine + "\n\n" +
		fmt.Sprintf("Materia: %s\n", qc.Subject) +
		fmt.Sprintf("Tema: %s\n", qc.Topic) +
		fmt.Sprintf("Dificultad: %s\n", difficultyHint(qc.Size)) +
		fmt.Sprintf("Seed: %s\n\n", seed) +
		"Reglas:\n" +
		"- options EXACTAMENTE 4 strings\n" +
		"- correct_index 0..3\n" +
		"- explanation 1–2 líneas\n"
}

func repairPrompt(raw string, size models.ResponseSize) string {
	return "Convierte el siguiente texto en UN SOLO JSON válido del esquema:\n" +
		schemaLine + "\n\n" +
		"Reglas:\n" +
		"- Devuelve SOLO JSON\n" +
		"- options EXACTAMENTE 4\n" +
		"- correct_index 0..3\n" +
		"- explanation 1–2 líneas\n\n" +
		fmt.Sprintf("Dificultad: %s\n\n", difficultyHint(size)) +
		"Texto:\n" + raw + "\n"
}

// generate asks the model for a question and repairs its output once
func (e *Engine) generate(ctx context.Context, qc Context, sessionID int64, next int) (Payload, error) {
	if e.llm == nil {
		return Payload{}, fmt.Errorf("no LLM configured")
	}
	text, err := e.llm.Complete(ctx, questionPrompt(qc, sessionID, next), ai.AskOptions{
		Temperature:     f32(0.35),
		TopP:            f32(0.9),
		TopK:            intp(40),
		MaxOutputTokens: 420,
		ReasoningBudget: intp(0),
		JSON:            true,
	})
	if err != nil {
		return Payload{}, err
	}
	p, err := Parse(text)
	if err == nil {
		return p, nil
	}
	e.log.Debugf("Quiz payload did not validate (%v), asking for a repair", err)

	repaired, rerr := e.llm.Complete(ctx, repairPrompt(text, qc.Size), ai.AskOptions{
		Temperature:     f32(0),
		TopP:            f32(1),
		TopK:            intp(1),
		MaxOutputTokens: 420,
		ReasoningBudget: intp(0),
		JSON:            true,
	})
	if rerr != nil {
		e.log.Warnf("Quiz repair call failed: %v", rerr)
		repaired = text
	}
	return Parse(repaired)
}
