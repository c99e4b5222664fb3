package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"quiz-night-service/internal/domain"
)

// QuizRepository loads quiz documents from the library (cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Notifier is the transport collaborator: room-addressed broadcast plus unicast.
// Implementations must not block.
type Notifier interface {
	Join(code, connID string)
	Leave(code, connID string)
	ToRoom(code string, ev domain.Event)
	ToConn(connID string, ev domain.Event)
	Close(code string)
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(s *QuizService) { s.clock = c }
}

// WithCodeGenerator replaces the random room code source.
func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *QuizService) { s.codes = g }
}

// WithIdleTimeout closes rooms that saw no activity for d. Zero disables reaping.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *QuizService) { s.idleTimeout = d }
}

type op struct {
	fn   func() error
	done chan error
}

// QuizService orchestrates every room. All state changes run one at a time on
// the loop started by Run; public methods enqueue work and wait for it.
type QuizService struct {
	registry    *Registry
	quizzes     QuizRepository
	notifier    Notifier
	clock       Clock
	codes       CodeGenerator
	idleTimeout time.Duration

	// members maps a player connection to the room it joined.
	members map[string]string

	inbox   chan op
	stopped chan struct{}
}

func NewQuizService(rooms RoomStore, quizzes QuizRepository, notifier Notifier, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:  quizzes,
		notifier: notifier,
		clock:    SystemClock(),
		members:  make(map[string]string),
		inbox:    make(chan op),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = NewRegistry(rooms, s.codes)
	return s
}

const minReapInterval = time.Second

// Run processes operations until ctx is done. It must be called exactly once.
func (s *QuizService) Run(ctx context.Context) error {
	defer close(s.stopped)

	var tick <-chan time.Time
	if s.idleTimeout > 0 {
		ticker := time.NewTicker(max(s.idleTimeout/2, minReapInterval))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-s.inbox:
			err := s.invoke(o.fn)
			if o.done != nil {
				o.done <- err
			}
		case <-tick:
			_ = s.invoke(func() error {
				s.reapIdle()
				return nil
			})
		}
	}
}

// invoke isolates a panicking operation so the loop and other rooms survive.
func (s *QuizService) invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered from fault in room operation: %v", r)
			err = fmt.Errorf("%w: %v", domain.ErrInternal, r)
		}
	}()
	return fn()
}

func (s *QuizService) do(ctx context.Context, fn func() error) error {
	o := op{fn: fn, done: make(chan error, 1)}
	select {
	case s.inbox <- o:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return domain.ErrServiceStopped
	}
	select {
	case err := <-o.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post enqueues work without waiting; used by deferred callbacks.
func (s *QuizService) post(fn func() error) {
	select {
	case s.inbox <- op{fn: fn}:
	case <-s.stopped:
	}
}

// hostRoom resolves a host-only request. Unknown rooms are stale and
// non-host callers are ignored without a trace to the caller.
func (s *QuizService) hostRoom(code, connID string) (*Room, bool) {
	room, ok := s.registry.Get(normalizeCode(code))
	if !ok {
		log.Printf("host request for unknown room %q dropped", code)
		return nil, false
	}
	if !room.isHost(connID) {
		return nil, false
	}
	return room, true
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom opens a lobby hosted by connID and returns its code.
func (s *QuizService) CreateRoom(ctx context.Context, connID string) (string, error) {
	var code string
	err := s.do(ctx, func() error {
		room, err := s.registry.CreateRoom(connID, s.clock.Now())
		if err != nil {
			return err
		}
		code = room.code
		s.notifier.Join(code, connID)
		s.notifier.ToConn(connID, domain.Event{Type: domain.EventRoomCreated, Payload: domain.RoomCreated{Code: code}})
		log.Printf("room %s created", code)
		return nil
	})
	return code, err
}

// SetQuiz loads a document into the room. A non-empty title overrides the document's.
func (s *QuizService) SetQuiz(ctx context.Context, connID, code, title string, quiz domain.Quiz) error {
	if t := strings.TrimSpace(title); t != "" {
		quiz.Title = t
	}
	return s.do(ctx, func() error {
		room, ok := s.hostRoom(code, connID)
		if !ok {
			return nil
		}
		if err := room.setQuiz(quiz); err != nil {
			return err
		}
		room.touch(s.clock.Now())
		s.notifier.ToRoom(room.code, domain.Event{Type: domain.EventRoomMeta, Payload: domain.RoomMeta{
			Title:  room.title,
			QCount: len(room.quiz.Questions),
		}})
		return nil
	})
}

// LoadQuiz loads a library document by id. The library is read outside the
// dispatch loop so slow storage never stalls other rooms.
func (s *QuizService) LoadQuiz(ctx context.Context, connID, code, quizID string) error {
	var allowed bool
	if err := s.do(ctx, func() error {
		_, allowed = s.hostRoom(code, connID)
		return nil
	}); err != nil {
		return err
	}
	if !allowed {
		return nil
	}
	if s.quizzes == nil {
		return domain.ErrQuizNotFound
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	return s.SetQuiz(ctx, connID, code, "", quiz)
}

// Start moves a room with a loaded quiz into the started phase.
func (s *QuizService) Start(ctx context.Context, connID, code string) error {
	return s.do(ctx, func() error {
		room, ok := s.hostRoom(code, connID)
		if !ok || !room.start() {
			return nil
		}
		room.touch(s.clock.Now())
		s.notifier.ToRoom(room.code, domain.Event{Type: domain.EventStarted})
		return nil
	})
}

// Next reveals the following question, or ends the quiz after the last one.
func (s *QuizService) Next(ctx context.Context, connID, code string) error {
	return s.do(ctx, func() error {
		room, ok := s.hostRoom(code, connID)
		if !ok {
			return nil
		}
		s.next(room)
		return nil
	})
}

func (s *QuizService) next(room *Room) {
	q, finished, ok := room.advance()
	if !ok {
		return
	}
	room.touch(s.clock.Now())
	if finished {
		s.notifier.ToRoom(room.code, domain.Event{Type: domain.EventQuizEnded, Payload: domain.QuizEnded{
			Leaderboard: room.leaderboard(),
		}})
		log.Printf("room %s quiz ended", room.code)
		return
	}
	s.notifier.ToRoom(room.code, domain.Event{Type: domain.EventQuestion, Payload: questionView(q, room.qIndex)})
	s.notifier.ToConn(room.hostID, domain.Event{Type: domain.EventHostQuestion, Payload: hostQuestionView(q, room.qIndex)})
	s.armQuestionTimer(room, q.TimeLimit())
}

// EndQuestion closes the active question and reveals the results.
func (s *QuizService) EndQuestion(ctx context.Context, connID, code string) error {
	return s.do(ctx, func() error {
		room, ok := s.hostRoom(code, connID)
		if !ok {
			return nil
		}
		s.endQuestion(room)
		return nil
	})
}

func (s *QuizService) endQuestion(room *Room) bool {
	q, ok := room.closeQuestion()
	if !ok {
		return false
	}
	room.touch(s.clock.Now())
	correct := reveal(q)
	s.notifier.ToRoom(room.code, domain.Event{Type: domain.EventQuestionEnded, Payload: domain.QuestionEnded{
		Index:       room.qIndex,
		Correct:     correct,
		Leaderboard: room.leaderboard(),
		AnswerStats: room.ledger.Stats(q),
	}})
	s.notifier.ToConn(room.hostID, domain.Event{Type: domain.EventHostEnded, Payload: domain.HostQuestionEnded{
		Index:   room.qIndex,
		Correct: correct,
		Answers: room.answerDetails(),
	}})
	return true
}

// Join adds a player to a room. A connection plays in at most one room, so
// joining elsewhere leaves the previous room first.
func (s *QuizService) Join(ctx context.Context, connID, code, name string) (domain.JoinAck, error) {
	var ack domain.JoinAck
	err := s.do(ctx, func() error {
		room, ok := s.registry.Get(normalizeCode(code))
		if !ok {
			return domain.ErrRoomNotFound
		}
		key := domain.NameKey(name)
		if key == "" {
			return domain.ErrInvalidName
		}
		if owner, taken := room.names[key]; taken && owner != connID {
			return domain.ErrNameTaken
		}
		if prev, ok := s.members[connID]; ok {
			s.removeMember(connID, prev)
		}

		now := s.clock.Now()
		if err := room.addPlayer(connID, name, now); err != nil {
			return err
		}
		room.touch(now)
		s.members[connID] = room.code
		s.notifier.Join(room.code, connID)

		ack = domain.JoinAck{Code: room.code, Title: room.title}
		s.notifier.ToConn(connID, domain.Event{Type: domain.EventJoined, Payload: ack})
		s.notifier.ToRoom(room.code, domain.Event{Type: domain.EventRoster, Payload: room.roster()})
		return nil
	})
	return ack, err
}

// Answer records a player's answer for the active question. Late, duplicate
// or unauthenticated submissions are dropped without a reply.
func (s *QuizService) Answer(ctx context.Context, connID string, value []byte) error {
	return s.do(ctx, func() error {
		code, ok := s.members[connID]
		if !ok {
			return nil
		}
		room, ok := s.registry.Get(code)
		if !ok {
			delete(s.members, connID)
			return nil
		}
		now := s.clock.Now()
		entry, ok := room.submit(connID, value, now)
		if !ok {
			log.Printf("answer from %s in room %s dropped", connID, code)
			return nil
		}
		room.touch(now)
		s.notifier.ToConn(connID, domain.Event{Type: domain.EventAnswerAck, Payload: domain.AnswerAck{Correct: entry.Correct}})
		s.notifier.ToConn(room.hostID, domain.Event{Type: domain.EventAnswerProgress, Payload: domain.AnswerProgress{
			Count: room.ledger.Len(),
			Total: len(room.players),
		}})
		return nil
	})
}

// Disconnect handles a closed connection or an explicit leave. Losing the host
// closes every room it hosts; losing a player only drops that player.
func (s *QuizService) Disconnect(ctx context.Context, connID string) error {
	return s.do(ctx, func() error {
		for _, room := range s.registry.HostedBy(connID) {
			s.closeRoom(room)
		}
		if code, ok := s.members[connID]; ok {
			s.removeMember(connID, code)
		}
		return nil
	})
}

func (s *QuizService) removeMember(connID, code string) {
	delete(s.members, connID)
	room, ok := s.registry.Get(code)
	if !ok {
		return
	}
	if !room.removePlayer(connID) {
		return
	}
	room.touch(s.clock.Now())
	s.notifier.Leave(code, connID)
	s.notifier.ToRoom(code, domain.Event{Type: domain.EventRoster, Payload: room.roster()})
}

func (s *QuizService) closeRoom(room *Room) {
	s.notifier.ToRoom(room.code, domain.Event{Type: domain.EventRoomClosed})
	s.notifier.Close(room.code)
	for connID := range room.players {
		if s.members[connID] == room.code {
			delete(s.members, connID)
		}
	}
	s.registry.Delete(room.code)
	log.Printf("room %s closed", room.code)
}

// Sweep closes idle rooms now and reports how many were closed.
func (s *QuizService) Sweep(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func() error {
		n = s.reapIdle()
		return nil
	})
	return n, err
}

// RoomSnapshot is a read-only view of a room for diagnostics and the HTTP API.
type RoomSnapshot struct {
	Code          string               `json:"code"`
	Title         string               `json:"title"`
	Phase         string               `json:"phase"`
	QuestionIndex int                  `json:"questionIndex"`
	QuestionCount int                  `json:"questionCount"`
	Accepting     bool                 `json:"accepting"`
	Answers       int                  `json:"answers"`
	Players       []domain.RosterEntry `json:"players"`
}

// Snapshot returns the room state, or domain.ErrRoomNotFound.
func (s *QuizService) Snapshot(ctx context.Context, code string) (RoomSnapshot, error) {
	var snap RoomSnapshot
	err := s.do(ctx, func() error {
		room, ok := s.registry.Get(normalizeCode(code))
		if !ok {
			return domain.ErrRoomNotFound
		}
		snap = RoomSnapshot{
			Code:          room.code,
			Title:         room.title,
			Phase:         room.phase.String(),
			QuestionIndex: room.qIndex,
			Accepting:     room.accepting,
			Answers:       room.ledger.Len(),
			Players:       room.roster(),
		}
		if room.quiz != nil {
			snap.QuestionCount = len(room.quiz.Questions)
		}
		return nil
	})
	return snap, err
}
