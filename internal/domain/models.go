package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTitle is used when a quiz document or room has no title.
const DefaultTitle = "Untitled Quiz"

// QuestionType tags the question variant.
type QuestionType string

const (
	QuestionMCQ  QuestionType = "mcq"
	QuestionText QuestionType = "text"
)

// Question is one entry of a quiz document. Options and Answer apply to
// multiple-choice questions, Accepted to free-text ones.
type Question struct {
	Type     QuestionType `json:"type" yaml:"type"`
	Prompt   string       `json:"question" yaml:"question"`
	Options  []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Answer   int          `json:"answer" yaml:"answer"`
	Accepted []string     `json:"answers,omitempty" yaml:"answers,omitempty"`
	Time     int          `json:"time,omitempty" yaml:"time,omitempty"` // seconds, 0 means untimed
}

// TimeLimit returns the auto-end delay, or zero for untimed questions.
func (q Question) TimeLimit() time.Duration {
	if q.Time <= 0 {
		return 0
	}
	return time.Duration(q.Time) * time.Second
}

// Quiz is the document a host loads into a room.
type Quiz struct {
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate checks the document shape. The orchestrator trusts a validated document.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz must have a non-empty questions list", ErrInvalidQuiz)
	}
	for i, question := range q.Questions {
		if question.Time < 0 {
			return fmt.Errorf("%w: question %d has a negative time limit", ErrInvalidQuiz, i+1)
		}
		switch question.Type {
		case QuestionMCQ:
			if len(question.Options) == 0 {
				return fmt.Errorf("%w: question %d has no options", ErrInvalidQuiz, i+1)
			}
			if question.Answer < 0 || question.Answer >= len(question.Options) {
				return fmt.Errorf("%w: question %d answer index %d out of range", ErrInvalidQuiz, i+1, question.Answer)
			}
		case QuestionText:
			if len(question.Accepted) == 0 {
				return fmt.Errorf("%w: question %d has no accepted answers", ErrInvalidQuiz, i+1)
			}
		default:
			return fmt.Errorf("%w: question %d has unknown type %q", ErrInvalidQuiz, i+1, question.Type)
		}
	}
	return nil
}

// DisplayTitle returns the title or the default one.
func (q Quiz) DisplayTitle() string {
	if t := strings.TrimSpace(q.Title); t != "" {
		return t
	}
	return DefaultTitle
}

// Player is a joined participant of one room.
type Player struct {
	ConnID   string
	Name     string
	Score    int
	JoinedAt time.Time
}

// NameKey normalizes a display name into its uniqueness key.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RosterEntry is one line of the lobby roster, in join order.
type RosterEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// LeaderboardRow is a ranked view of one player.
type LeaderboardRow struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Reveal carries the correct answer shown once a question ends.
type Reveal struct {
	Type        QuestionType `json:"type"`
	AnswerIndex *int         `json:"answerIndex,omitempty"`
	Accepted    []string     `json:"accepted,omitempty"`
}

// AnswerStats aggregates submissions for a question.
type AnswerStats struct {
	Type    QuestionType `json:"type"`
	Counts  []int        `json:"counts,omitempty"`
	Total   int          `json:"total"`
	Correct int          `json:"correct"`
}

// AnswerDetail is one submission as shown to the host.
type AnswerDetail struct {
	Name    string `json:"name"`
	Value   any    `json:"value"`
	Correct bool   `json:"correct"`
}
