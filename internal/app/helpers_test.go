package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-night-service/internal/app"
	"quiz-night-service/internal/domain"
	"quiz-night-service/internal/infra/memory"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at    time.Time
	f     func()
	fired bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, &manualTimer{at: c.now.Add(d), f: f})
}

// Advance moves time forward and fires due timers in scheduling order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired {
			n++
		}
	}
	return n
}

type sent struct {
	room  string
	conn  string
	event domain.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []sent
	groups map[string]map[string]bool
	closed []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{groups: make(map[string]map[string]bool)}
}

func (n *recordingNotifier) Join(code, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.groups[code] == nil {
		n.groups[code] = make(map[string]bool)
	}
	n.groups[code][connID] = true
}

func (n *recordingNotifier) Leave(code, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.groups[code], connID)
}

func (n *recordingNotifier) ToRoom(code string, ev domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{room: code, event: ev})
}

func (n *recordingNotifier) ToConn(connID string, ev domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{conn: connID, event: ev})
}

func (n *recordingNotifier) Close(code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.groups, code)
	n.closed = append(n.closed, code)
}

// toRoom returns the payloads of events of type typ broadcast to the room.
func (n *recordingNotifier) toRoom(code, typ string) []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []any
	for _, s := range n.sent {
		if s.room == code && s.event.Type == typ {
			out = append(out, s.event.Payload)
		}
	}
	return out
}

// toConn returns the payloads of events of type typ sent to one connection.
func (n *recordingNotifier) toConn(connID, typ string) []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []any
	for _, s := range n.sent {
		if s.conn == connID && s.event.Type == typ {
			out = append(out, s.event.Payload)
		}
	}
	return out
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *recordingNotifier) inGroup(code, connID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.groups[code][connID]
}

type harness struct {
	svc      *app.QuizService
	clock    *manualClock
	notifier *recordingNotifier
	ctx      context.Context
}

func newHarness(t *testing.T, quizzes app.QuizRepository, opts ...app.Option) *harness {
	t.Helper()
	clock := newManualClock()
	notifier := newRecordingNotifier()
	codes := []string{"ABCD", "WXYZ", "HJKM", "PQRS"}
	next := 0
	gen := func() string {
		code := codes[next%len(codes)]
		next++
		return code
	}
	opts = append([]app.Option{app.WithClock(clock), app.WithCodeGenerator(gen)}, opts...)
	svc := app.NewQuizService(memory.NewRoomStore(), quizzes, notifier, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &harness{svc: svc, clock: clock, notifier: notifier, ctx: context.Background()}
}

func (h *harness) snapshot(t *testing.T, code string) app.RoomSnapshot {
	t.Helper()
	snap, err := h.svc.Snapshot(h.ctx, code)
	if err != nil {
		t.Fatalf("snapshot %s: %v", code, err)
	}
	return snap
}

func (h *harness) mustCreate(t *testing.T, hostID string) string {
	t.Helper()
	code, err := h.svc.CreateRoom(h.ctx, hostID)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return code
}

func (h *harness) mustJoin(t *testing.T, connID, code, name string) {
	t.Helper()
	if _, err := h.svc.Join(h.ctx, connID, code, name); err != nil {
		t.Fatalf("join %q: %v", name, err)
	}
}

func (h *harness) mustSetQuiz(t *testing.T, hostID, code string, quiz domain.Quiz) {
	t.Helper()
	if err := h.svc.SetQuiz(h.ctx, hostID, code, "", quiz); err != nil {
		t.Fatalf("set quiz: %v", err)
	}
}

// mustBegin loads the quiz, starts it and reveals the first question.
func (h *harness) mustBegin(t *testing.T, hostID, code string, quiz domain.Quiz) {
	t.Helper()
	h.mustSetQuiz(t, hostID, code, quiz)
	if err := h.svc.Start(h.ctx, hostID, code); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.svc.Next(h.ctx, hostID, code); err != nil {
		t.Fatalf("next: %v", err)
	}
}

func (h *harness) answer(t *testing.T, connID, value string) {
	t.Helper()
	if err := h.svc.Answer(h.ctx, connID, []byte(value)); err != nil {
		t.Fatalf("answer: %v", err)
	}
}

func capitalsQuiz() domain.Quiz {
	return domain.Quiz{
		Title: "Capitals",
		Questions: []domain.Question{
			{Type: domain.QuestionMCQ, Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, Answer: 0, Time: 10},
		},
	}
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		Title: "Mixed",
		Questions: []domain.Question{
			{Type: domain.QuestionMCQ, Prompt: "2 + 2?", Options: []string{"3", "4", "5"}, Answer: 1, Time: 10},
			{Type: domain.QuestionText, Prompt: "Capital of France?", Accepted: []string{"Paris", "paris "}, Time: 10},
		},
	}
}
