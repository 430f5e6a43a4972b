package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/korjavin/profesorbot/models"
)

// DefaultStopTimeout bounds how long Stop waits for queued work
const DefaultStopTimeout = 1500 * time.Millisecond

// RequestKind selects the session entry point a Request is routed to
type RequestKind int

const (
	RequestText RequestKind = iota
	RequestChangeUser
	RequestListUsers
	RequestSetMode
	RequestSetMemory
	RequestSetSize
	RequestSetContext
	RequestQuizStart
	RequestQuizReset
	RequestProgress
)

// Request is one unit of inbound work
type Request struct {
	Kind    RequestKind
	Text    string
	Name    string
	Mode    models.Mode
	On      bool
	Size    string
	Subject string
	Topic   string
}

// EventKind tells which field of an Event is set
type EventKind int

const (
	EventMessage EventKind = iota
	EventState
	EventUsers
)

// Event is one outbound notification
type Event struct {
	Kind  EventKind
	Text  string
	State models.StateSnapshot
	Users []string
}

// chanEmitter publishes session output as events
type chanEmitter chan<- Event

func (c chanEmitter) Message(text string) { c <- Event{Kind: EventMessage, Text: text} }

func (c chanEmitter) State(st models.StateSnapshot) { c <- Event{Kind: EventState, State: st} }

func (c chanEmitter) Users(names []string) { c <- Event{Kind: EventUsers, Users: names} }

// Worker runs a Session on its own goroutine. Requests are handled one at
// a time in submission order.
type Worker struct {
	session  *Session
	requests chan Request
	events   chan Event
	done     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	name     string
	log      *zap.SugaredLogger

	// mu guards closing requests against in-flight sends
	mu     sync.RWMutex
	closed bool
}

// NewWorker creates the session for userName and starts its goroutine. ctx
// is passed to every request.
func NewWorker(ctx context.Context, deps Deps, userName string, logger *zap.SugaredLogger) (*Worker, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	w := &Worker{
		requests: make(chan Request, 32),
		events:   make(chan Event, 128),
		done:     make(chan struct{}),
		quit:     make(chan struct{}),
		name:     userName,
		log:      logger,
	}
	s, err := New(deps, chanEmitter(w.events), userName, logger)
	if err != nil {
		return nil, err
	}
	w.session = s
	go w.run(ctx)
	return w, nil
}

// Events yields session output. The channel is closed once the worker has
// stopped.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Submit queues a request. It blocks while the queue is full and reports
// false once the worker is stopping.
func (w *Worker) Submit(req Request) bool {
	return w.SubmitContext(context.Background(), req)
}

// SubmitContext is Submit that also gives up when ctx is done
func (w *Worker) SubmitContext(ctx context.Context, req Request) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.requests <- req:
		return true
	case <-w.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

// Stop closes intake, lets queued requests finish and waits up to timeout
// for the goroutine to exit. It reports whether the worker exited in time.
// Blocked submitters are released before intake is closed.
func (w *Worker) Stop(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	w.quitOnce.Do(func() { close(w.quit) })

	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.requests)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return true
	case <-time.After(timeout):
		w.log.Warnf("Session worker for %s did not stop within %v", w.name, timeout)
		return false
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer close(w.events)
	for req := range w.requests {
		w.handle(ctx, req)
	}
}

func (w *Worker) handle(ctx context.Context, req Request) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Errorf("Session request %d panicked: %v", req.Kind, r)
			w.events <- Event{Kind: EventMessage, Text: fmt.Sprintf("Error interno: %v", r)}
		}
	}()

	s := w.session
	switch req.Kind {
	case RequestText:
		s.HandleMessage(ctx, req.Text)
	case RequestChangeUser:
		s.ChangeUser(ctx, req.Name)
	case RequestListUsers:
		s.ListUsers()
	case RequestSetMode:
		s.SetMode(req.Mode)
	case RequestSetMemory:
		s.SetUseMemory(req.On)
	case RequestSetSize:
		s.SetResponseSize(req.Size)
	case RequestSetContext:
		s.SetContext(req.Subject, req.Topic)
	case RequestQuizStart:
		s.QuizStart(ctx)
	case RequestQuizReset:
		s.QuizReset()
	case RequestProgress:
		s.Progress()
	default:
		w.log.Warnf("Unknown session request kind %d", req.Kind)
	}
}
