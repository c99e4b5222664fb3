package app

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"quiz-night-service/internal/domain"
)

// Submission is a raw answer value coerced against the question variant.
type Submission struct {
	// Value is the submitted value as decoded, echoed back to the host.
	Value any
	// Choice is the option index for multiple-choice questions; HasChoice
	// is false when the value is not an integer.
	Choice    int
	HasChoice bool
	// Text is the free-text answer, trimmed and case-folded.
	Text string
}

// ParseSubmission coerces a raw JSON value for the given question type.
// Malformed values never fail; they simply cannot be correct.
func ParseSubmission(qt domain.QuestionType, raw json.RawMessage) Submission {
	value := decodeValue(raw)
	sub := Submission{Value: value}
	switch qt {
	case domain.QuestionMCQ:
		sub.Choice, sub.HasChoice = coerceChoice(value)
	case domain.QuestionText:
		sub.Text = normalizeText(coerceText(value))
	}
	return sub
}

func decodeValue(raw json.RawMessage) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

func coerceChoice(v any) (int, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func coerceText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsCorrect evaluates a coerced submission against a question.
func IsCorrect(q domain.Question, sub Submission) bool {
	switch q.Type {
	case domain.QuestionMCQ:
		return sub.HasChoice && sub.Choice == q.Answer
	case domain.QuestionText:
		for _, accepted := range q.Accepted {
			if normalizeText(accepted) == sub.Text {
				return true
			}
		}
	}
	return false
}

// Entry is one player's recorded answer for the active question.
type Entry struct {
	ConnID      string
	Submission  Submission
	Correct     bool
	SubmittedAt time.Time
}

// Ledger collects answers for a single question of a single room.
type Ledger struct {
	index   int
	entries map[string]*Entry
	order   []string
}

func newLedger(index int) *Ledger {
	return &Ledger{index: index, entries: make(map[string]*Entry)}
}

// Index is the question index the ledger belongs to.
func (l *Ledger) Index() int { return l.index }

// Len returns the number of recorded entries.
func (l *Ledger) Len() int { return len(l.order) }

// Has reports whether the connection already answered.
func (l *Ledger) Has(connID string) bool {
	_, ok := l.entries[connID]
	return ok
}

// Record stores the entry unless one exists for the same connection.
func (l *Ledger) Record(e Entry) bool {
	if l.Has(e.ConnID) {
		return false
	}
	entry := e
	l.entries[e.ConnID] = &entry
	l.order = append(l.order, e.ConnID)
	return true
}

// Entries returns the entries in submission order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.entries[id])
	}
	return out
}

// Stats aggregates the ledger for the question it belongs to.
func (l *Ledger) Stats(q domain.Question) domain.AnswerStats {
	stats := domain.AnswerStats{Type: q.Type, Total: l.Len()}
	if q.Type == domain.QuestionMCQ {
		stats.Counts = make([]int, len(q.Options))
	}
	for _, e := range l.Entries() {
		if e.Correct {
			stats.Correct++
		}
		if q.Type == domain.QuestionMCQ && e.Submission.HasChoice &&
			e.Submission.Choice >= 0 && e.Submission.Choice < len(stats.Counts) {
			stats.Counts[e.Submission.Choice]++
		}
	}
	return stats
}
