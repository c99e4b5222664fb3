package app

import (
	"log"
	"time"
)

// Clock supplies time and deferred callbacks. Tests swap in a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func())
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

// questionTimer identifies the question a deferred auto-end was armed for.
type questionTimer struct {
	roomID uint64
	code   string
	index  int
}

// armQuestionTimer schedules the auto-end of the room's current question.
// Pending timers are never cancelled; a superseded one fails re-validation.
func (s *QuizService) armQuestionTimer(room *Room, limit time.Duration) {
	if limit <= 0 {
		return
	}
	target := questionTimer{roomID: room.id, code: room.code, index: room.qIndex}
	s.clock.AfterFunc(limit, func() {
		s.post(func() error {
			s.expireQuestion(target)
			return nil
		})
	})
}

// expireQuestion runs on the dispatch loop when a question timer fires.
func (s *QuizService) expireQuestion(t questionTimer) {
	room, ok := s.registry.Get(t.code)
	if !ok || room.id != t.roomID {
		log.Printf("timer for room %s question %d ignored: room gone", t.code, t.index)
		return
	}
	if room.qIndex != t.index || !room.accepting || room.phase != PhaseQuestionActive {
		log.Printf("timer for room %s question %d ignored: question already ended", t.code, t.index)
		return
	}
	s.endQuestion(room)
}

// reapIdle tears down rooms without activity for longer than the idle timeout.
func (s *QuizService) reapIdle() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-s.idleTimeout)
	reaped := 0
	for _, room := range s.registry.Rooms() {
		if room.lastActive.Before(cutoff) {
			log.Printf("room %s idle since %s, closing", room.code, room.lastActive.Format(time.RFC3339))
			s.closeRoom(room)
			reaped++
		}
	}
	return reaped
}
