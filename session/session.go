// Package session orchestrates one tutoring conversation: commands, tool
// autodetection, the quiz flow and LLM questions with memory.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/korjavin/profesorbot/ai"
	"github.com/korjavin/profesorbot/commands"
	"github.com/korjavin/profesorbot/database"
	"github.com/korjavin/profesorbot/models"
	"github.com/korjavin/profesorbot/quiz"
	"github.com/korjavin/profesorbot/tools"
)

const memoryDepth = 3

// ProgressBlockSize is the number of quiz answers per progress block
const ProgressBlockSize = 5

// Store is the persistence a session needs
type Store interface {
	quiz.Store
	GetOrCreateUser(name string) (int64, error)
	ListUsers() ([]string, error)
	LogDoubt(userID, topicID int64, question, answer string) (int64, error)
	RecentDoubts(userID, topicID int64, limit int) ([]models.Doubt, error)
	LastContextForUser(userID int64) (*models.LastContext, error)
	TopicStats(userID, topicID int64) (models.TopicStats, error)
	ProgressBlocks(userID, topicID int64, blockSize int) ([]models.ProgressBlock, error)
}

// Emitter receives everything a session wants to show
type Emitter interface {
	Message(text string)
	State(models.StateSnapshot)
	Users(names []string)
}

// Deps are the collaborators shared by every session of a process
type Deps struct {
	Store Store
	// LLM is nil when no API key is configured
	LLM   *ai.Client
	Tools *tools.Registry
}

// Session is the single owner of a conversation's state. It is not safe for
// concurrent use; Worker runs it on one goroutine.
type Session struct {
	store Store
	llm   *ai.Client
	tools *tools.Registry
	quiz  *quiz.Engine
	emit  Emitter
	log   *zap.SugaredLogger

	userName string
	userID   int64
	state    models.SessionState
}

// New creates a session for userName and emits its initial state
func New(deps Deps, emit Emitter, userName string, logger *zap.SugaredLogger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if deps.Tools == nil {
		deps.Tools = tools.NewRegistry(logger)
	}
	userName = normalizeName(userName)
	uid, err := deps.Store.GetOrCreateUser(userName)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userName, err)
	}
	if deps.LLM == nil {
		logger.Warnf("No LLM configured, questions will get the missing API key notice")
	}
	s := &Session{
		store:    deps.Store,
		llm:      deps.LLM,
		tools:    deps.Tools,
		quiz:     quiz.NewEngine(deps.Store, deps.LLM, logger),
		emit:     emit,
		log:      logger,
		userName: userName,
		userID:   uid,
		state:    models.NewSessionState(),
	}
	s.emitState()
	return s, nil
}

func normalizeName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return models.DefaultUser
	}
	return name
}

// Snapshot returns the presentation view of the current state
func (s *Session) Snapshot() models.StateSnapshot {
	return models.StateSnapshot{
		User:         s.userName,
		Subject:      s.state.Subject,
		Topic:        s.state.Topic,
		Mode:         s.state.Mode,
		UseMemory:    s.state.UseMemory,
		ResponseSize: s.state.ResponseSize,
		QuizActive:   s.quiz.Active(),
	}
}

// QuizState returns a copy of the quiz progress
func (s *Session) QuizState() models.QuizState {
	return s.quiz.State()
}

func (s *Session) emitState() {
	s.emit.State(s.Snapshot())
}

func (s *Session) dbError(op string, err error) {
	s.log.Errorf("Database error while %s for %s: %v", op, s.userName, err)
	s.emit.Message(fmt.Sprintf("Error de base de datos: %v", err))
}

func (s *Session) quizContext() quiz.Context {
	return quiz.Context{
		UserID:   s.userID,
		UserName: s.userName,
		Subject:  s.state.Subject,
		Topic:    s.state.Topic,
		Size:     s.state.ResponseSize,
	}
}

// logDoubt stores an interaction under the current subject and topic
func (s *Session) logDoubt(question, answer string) {
	tid, err := s.store.GetOrCreateTopic(s.state.Subject, s.state.Topic)
	if err == nil {
		_, err = s.store.LogDoubt(s.userID, tid, question, answer)
	}
	if err != nil {
		s.dbError("logging a doubt", err)
	}
}

// HandleMessage processes one line of user input. Commands win, then tool
// autodetection, then quiz answers while a quiz runs in quiz mode, and
// finally the LLM.
func (s *Session) HandleMessage(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.log.Infof("Received message from %s: %q", s.userName, text)

	if cmd, ok := commands.Parse(text); ok {
		s.handleCommand(ctx, cmd)
		return
	}

	if name, payload, ok := tools.Autodetect(text); ok {
		out := s.tools.Run(ctx, name, payload)
		s.emit.Message(out)
		s.logDoubt(text, out)
		return
	}

	if s.state.Mode == models.ModeQuiz && s.quiz.Active() {
		out, err := s.quiz.HandleInput(ctx, s.quizContext(), text)
		if err != nil {
			s.dbError("handling a quiz answer", err)
			return
		}
		s.emit.Message(out)
		return
	}

	s.askLLM(ctx, text)
}

func (s *Session) askLLM(ctx context.Context, text string) {
	if s.state.Subject == models.DefaultSubject {
		s.state.Subject = guessSubject(text)
	}
	if needsTopic(s.state.Topic) {
		s.state.Topic = guessTopic(text)
	}

	var memory string
	if s.state.UseMemory {
		tid, err := s.store.GetOrCreateTopic(s.state.Subject, s.state.Topic)
		if err == nil {
			var doubts []models.Doubt
			if doubts, err = s.store.RecentDoubts(s.userID, tid, memoryDepth); err == nil {
				memory = memoryBlock(doubts)
			}
		}
		if err != nil {
			s.log.Warnf("Failed to load memory for %s: %v", s.userName, err)
		}
	}

	answer := ai.MissingCredentialText
	if s.llm != nil {
		answer = s.llm.Ask(ctx, tutorPrompt(s.userName, s.state, memory, text), ai.AskOptions{})
	}

	s.logDoubt(text, answer)
	s.emit.Message(answer)
	s.emitState()
}

func (s *Session) handleCommand(ctx context.Context, cmd *commands.Command) {
	switch cmd.Type {
	case commands.TypeHelp:
		s.emit.Message(helpText(cmd.Unknown))
	case commands.TypeSetSubject:
		s.state.Subject = cmd.Subject
		s.emitState()
		s.emit.Message(fmt.Sprintf("Materia: **%s**", s.state.Subject))
	case commands.TypeSetTopic:
		s.state.Topic = cmd.Topic
		s.emitState()
		s.emit.Message(fmt.Sprintf("Tema: **%s**", s.state.Topic))
	case commands.TypeQuizStart:
		s.QuizStart(ctx)
	case commands.TypeQuizReset:
		s.QuizReset()
	case commands.TypeSetMode:
		s.SetMode(cmd.Mode)
		s.emit.Message(fmt.Sprintf("Modo: **%s**", s.state.Mode))
	case commands.TypeSetMemory:
		s.SetUseMemory(cmd.UseMemory)
		if cmd.UseMemory {
			s.emit.Message("Memoria: **activada**")
		} else {
			s.emit.Message("Memoria: **desactivada**")
		}
	case commands.TypeSetSize:
		s.SetResponseSize(string(cmd.Size))
		s.emit.Message(fmt.Sprintf("Tamaño de respuesta: **%s**", s.state.ResponseSize))
	case commands.TypeProgress:
		s.Progress()
	case commands.TypeSwitchUser:
		s.ChangeUser(ctx, cmd.User)
	case commands.TypeListUsers:
		if names := s.ListUsers(); names != nil {
			s.emit.Message("Usuarios: " + strings.Join(names, ", "))
		}
	case commands.TypeTool:
		out := s.tools.Run(ctx, cmd.Tool, cmd.Payload)
		s.emit.Message(out)
		s.logDoubt(cmd.Raw, out)
	default:
		s.emit.Message("Comando no reconocido. Usa /help")
	}
}

// ChangeUser switches the session to another student. A returning student
// gets the subject and topic of their last question back; a new one starts
// from defaults. Any running quiz is dropped.
func (s *Session) ChangeUser(_ context.Context, name string) {
	name = normalizeName(name)
	uid, err := s.store.GetOrCreateUser(name)
	if err != nil {
		s.dbError("switching user", err)
		return
	}
	s.userName, s.userID = name, uid
	s.quiz.Reset()

	var msg string
	last, err := s.store.LastContextForUser(uid)
	switch {
	case err == nil:
		s.state.Subject = last.Subject
		s.state.Topic = last.Topic
		msg = fmt.Sprintf("Bienvenido de vuelta, **%s**.\n", name) +
			fmt.Sprintf("Última sesión: **%s / %s**.\n", last.Subject, last.Topic) +
			fmt.Sprintf("Tu última pregunta fue: “%s”.", last.Question)
	case errors.Is(err, database.ErrNotFound):
		s.state = models.NewSessionState()
		msg = fmt.Sprintf("Hola, **%s**.\n", name) +
			"Puedes fijar contexto con:\n" +
			"• `/materia Calculo`\n" +
			"• `/tema Limites laterales`"
	default:
		s.dbError("restoring the last context", err)
		s.state = models.NewSessionState()
		s.emitState()
		return
	}
	s.log.Infof("Session switched to user %s (%d)", name, uid)
	s.emit.Message(msg)
	s.emitState()
}

// ListUsers emits and returns every known user name. It returns nil on a
// store failure.
func (s *Session) ListUsers() []string {
	names, err := s.store.ListUsers()
	if err != nil {
		s.dbError("listing users", err)
		return nil
	}
	if names == nil {
		names = []string{}
	}
	s.emit.Users(names)
	return names
}

// SetMode changes the tutoring style
func (s *Session) SetMode(mode models.Mode) {
	if mode == "" {
		mode = models.ModeTutor
	}
	s.state.Mode = mode
	s.emitState()
}

// SetUseMemory toggles recent doubts in LLM prompts
func (s *Session) SetUseMemory(on bool) {
	s.state.UseMemory = on
	s.emitState()
}

// SetResponseSize accepts corta/normal/larga and short/long aliases
func (s *Session) SetResponseSize(size string) {
	s.state.ResponseSize = models.ParseResponseSize(size)
	s.emitState()
}

// SetContext sets subject and topic at once, falling back to defaults for
// blank values
func (s *Session) SetContext(subject, topic string) {
	if subject = strings.TrimSpace(subject); subject == "" {
		subject = models.DefaultSubject
	}
	if topic = strings.TrimSpace(topic); topic == "" {
		topic = models.DefaultTopic
	}
	s.state.Subject, s.state.Topic = subject, topic
	s.emitState()
	s.emit.Message(fmt.Sprintf("Contexto actualizado → **Materia:** %s · **Tema:** %s", subject, topic))
}

// QuizStart switches to quiz mode and asks the first question
func (s *Session) QuizStart(ctx context.Context) {
	s.state.Mode = models.ModeQuiz
	out, err := s.quiz.Start(ctx, s.quizContext())
	if err != nil {
		s.dbError("starting a quiz", err)
		s.emitState()
		return
	}
	s.emit.Message(out)
	s.emitState()
}

// QuizReset ends the running quiz and returns to tutor mode
func (s *Session) QuizReset() {
	s.quiz.Reset()
	s.state.Mode = models.ModeTutor
	s.emitState()
	s.emit.Message(quiz.ResetText)
}

// Progress reports quiz accuracy on the current subject and topic
func (s *Session) Progress() {
	tid, err := s.store.GetOrCreateTopic(s.state.Subject, s.state.Topic)
	if err != nil {
		s.dbError("loading progress", err)
		return
	}
	stats, err := s.store.TopicStats(s.userID, tid)
	if err != nil {
		s.dbError("loading progress", err)
		return
	}
	if stats.Total == 0 {
		s.emit.Message(fmt.Sprintf("Aún no hay preguntas de quiz en **%s / %s**. Usa `/quiz start`.", s.state.Subject, s.state.Topic))
		return
	}
	blocks, err := s.store.ProgressBlocks(s.userID, tid, ProgressBlockSize)
	if err != nil {
		s.dbError("loading progress", err)
		return
	}
	s.emit.Message(FormatProgress(s.state.Subject, s.state.Topic, stats, blocks))
}

// FormatProgress renders topic stats and per-block accuracy
func FormatProgress(subject, topic string, stats models.TopicStats, blocks []models.ProgressBlock) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 Progreso en **%s / %s**\n", subject, topic)
	fmt.Fprintf(&b, "Preguntas: %d · Correctas: %d · Precisión: %.1f%%", stats.Total, stats.Correct, stats.Accuracy)
	if len(blocks) > 0 {
		parts := make([]string, len(blocks))
		for i, bl := range blocks {
			parts[i] = fmt.Sprintf("#%d %.0f%%", bl.Block, bl.Accuracy)
		}
		fmt.Fprintf(&b, "\nBloques de %d: %s", ProgressBlockSize, strings.Join(parts, " · "))
	}
	return b.String()
}
