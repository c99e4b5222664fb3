package app

import (
	"sort"
	"strings"
	"time"

	"quiz-night-service/internal/domain"
)

// Phase is the lifecycle position of a room.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseReady
	PhaseStarted
	PhaseQuestionActive
	PhaseQuestionEnded
	PhaseQuizEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseReady:
		return "ready"
	case PhaseStarted:
		return "started"
	case PhaseQuestionActive:
		return "question-active"
	case PhaseQuestionEnded:
		return "question-ended"
	case PhaseQuizEnded:
		return "quiz-ended"
	default:
		return "unknown"
	}
}

// Room is one live quiz session. It is only touched from the dispatch loop.
type Room struct {
	id     uint64
	code   string
	hostID string

	title     string
	quiz      *domain.Quiz
	phase     Phase
	qIndex    int
	accepting bool
	ledger    *Ledger

	players map[string]*domain.Player
	order   []string
	names   map[string]string

	createdAt  time.Time
	lastActive time.Time
}

func newRoom(id uint64, code, hostID string, now time.Time) *Room {
	return &Room{
		id:         id,
		code:       code,
		hostID:     hostID,
		title:      domain.DefaultTitle,
		phase:      PhaseLobby,
		qIndex:     -1,
		ledger:     newLedger(-1),
		players:    make(map[string]*domain.Player),
		names:      make(map[string]string),
		createdAt:  now,
		lastActive: now,
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) HostID() string { return r.hostID }

func (r *Room) Phase() Phase { return r.phase }

func (r *Room) QuestionIndex() int { return r.qIndex }

func (r *Room) Accepting() bool { return r.accepting }

func (r *Room) Title() string { return r.title }

// LastActive is the time of the last accepted operation.
func (r *Room) LastActive() time.Time { return r.lastActive }

func (r *Room) isHost(connID string) bool { return connID != "" && connID == r.hostID }

func (r *Room) touch(now time.Time) { r.lastActive = now }

func (r *Room) current() (domain.Question, bool) {
	if r.quiz == nil || r.qIndex < 0 || r.qIndex >= len(r.quiz.Questions) {
		return domain.Question{}, false
	}
	return r.quiz.Questions[r.qIndex], true
}

func (r *Room) setQuiz(quiz domain.Quiz) error {
	if r.phase == PhaseQuestionActive {
		return domain.ErrQuestionActive
	}
	if err := quiz.Validate(); err != nil {
		return err
	}
	r.quiz = &quiz
	r.title = quiz.DisplayTitle()
	r.qIndex = -1
	r.accepting = false
	r.ledger = newLedger(-1)
	r.phase = PhaseReady
	return nil
}

// start requires a loaded quiz. A finished quiz stays finished until a
// document is loaded again with setQuiz.
func (r *Room) start() bool {
	if r.quiz == nil || r.phase == PhaseQuestionActive || r.phase == PhaseQuizEnded {
		return false
	}
	r.phase = PhaseStarted
	r.qIndex = -1
	r.accepting = false
	return true
}

// advance moves to the next question. finished is true when the index ran
// past the last question and the quiz is over.
func (r *Room) advance() (q domain.Question, finished, ok bool) {
	if r.phase != PhaseStarted && r.phase != PhaseQuestionEnded {
		return domain.Question{}, false, false
	}
	r.qIndex++
	if r.qIndex >= len(r.quiz.Questions) {
		r.accepting = false
		r.phase = PhaseQuizEnded
		return domain.Question{}, true, true
	}
	r.ledger = newLedger(r.qIndex)
	r.accepting = true
	r.phase = PhaseQuestionActive
	return r.quiz.Questions[r.qIndex], false, true
}

// closeQuestion stops accepting answers and scores the ledger. The phase
// check makes a second call a no-op.
func (r *Room) closeQuestion() (domain.Question, bool) {
	if r.phase != PhaseQuestionActive || !r.accepting {
		return domain.Question{}, false
	}
	q, ok := r.current()
	if !ok {
		return domain.Question{}, false
	}
	r.accepting = false
	scoreLedger(r.ledger, r.players)
	r.phase = PhaseQuestionEnded
	return q, true
}

func (r *Room) submit(connID string, raw []byte, now time.Time) (Entry, bool) {
	if r.phase != PhaseQuestionActive || !r.accepting {
		return Entry{}, false
	}
	if _, ok := r.players[connID]; !ok || r.ledger.Has(connID) {
		return Entry{}, false
	}
	q, ok := r.current()
	if !ok {
		return Entry{}, false
	}
	sub := ParseSubmission(q.Type, raw)
	entry := Entry{ConnID: connID, Submission: sub, Correct: IsCorrect(q, sub), SubmittedAt: now}
	r.ledger.Record(entry)
	return entry, true
}

func (r *Room) addPlayer(connID, name string, now time.Time) error {
	key := domain.NameKey(name)
	if key == "" {
		return domain.ErrInvalidName
	}
	if _, taken := r.names[key]; taken {
		return domain.ErrNameTaken
	}
	r.players[connID] = &domain.Player{ConnID: connID, Name: strings.TrimSpace(name), JoinedAt: now}
	r.order = append(r.order, connID)
	r.names[key] = connID
	return nil
}

func (r *Room) removePlayer(connID string) bool {
	p, ok := r.players[connID]
	if !ok {
		return false
	}
	delete(r.players, connID)
	delete(r.names, domain.NameKey(p.Name))
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Players returns the players in join order.
func (r *Room) Players() []*domain.Player {
	out := make([]*domain.Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

func (r *Room) roster() []domain.RosterEntry {
	out := make([]domain.RosterEntry, 0, len(r.order))
	for _, p := range r.Players() {
		out = append(out, domain.RosterEntry{Name: p.Name, Score: p.Score})
	}
	return out
}

func (r *Room) leaderboard() []domain.LeaderboardRow {
	return Leaderboard(r.Players())
}

// answerDetails lists ledger entries of players still present, sorted by name.
func (r *Room) answerDetails() []domain.AnswerDetail {
	out := make([]domain.AnswerDetail, 0, r.ledger.Len())
	for _, e := range r.ledger.Entries() {
		p, ok := r.players[e.ConnID]
		if !ok {
			continue
		}
		out = append(out, domain.AnswerDetail{Name: p.Name, Value: e.Submission.Value, Correct: e.Correct})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func questionView(q domain.Question, index int) domain.QuestionView {
	view := domain.QuestionView{Index: index, Type: q.Type, Prompt: q.Prompt}
	if q.Type == domain.QuestionMCQ {
		view.Options = q.Options
	}
	if q.Time > 0 {
		t := q.Time
		view.Time = &t
	}
	return view
}

func hostQuestionView(q domain.Question, index int) domain.HostQuestionView {
	view := domain.HostQuestionView{QuestionView: questionView(q, index)}
	switch q.Type {
	case domain.QuestionMCQ:
		answer := q.Answer
		view.Answer = &answer
	case domain.QuestionText:
		view.Accepted = q.Accepted
	}
	return view
}

func reveal(q domain.Question) domain.Reveal {
	out := domain.Reveal{Type: q.Type}
	switch q.Type {
	case domain.QuestionMCQ:
		answer := q.Answer
		out.AnswerIndex = &answer
	case domain.QuestionText:
		out.Accepted = q.Accepted
	}
	return out
}
