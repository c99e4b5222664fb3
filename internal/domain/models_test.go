package domain

import (
	"errors"
	"testing"
	"time"
)

func TestQuizValidate(t *testing.T) {
	valid := Quiz{Questions: []Question{
		{Type: QuestionMCQ, Prompt: "?", Options: []string{"a", "b"}, Answer: 1},
		{Type: QuestionText, Prompt: "?", Accepted: []string{"x"}, Time: 5},
	}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid quiz, got %v", err)
	}

	invalid := []Quiz{
		{},
		{Questions: []Question{{Type: "essay", Prompt: "?"}}},
		{Questions: []Question{{Type: QuestionMCQ, Prompt: "?"}}},
		{Questions: []Question{{Type: QuestionMCQ, Prompt: "?", Options: []string{"a"}, Answer: 1}}},
		{Questions: []Question{{Type: QuestionText, Prompt: "?"}}},
		{Questions: []Question{{Type: QuestionText, Prompt: "?", Accepted: []string{"x"}, Time: -1}}},
	}
	for i, q := range invalid {
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuiz) {
			t.Fatalf("case %d: expected invalid quiz, got %v", i, err)
		}
	}
}

func TestDisplayTitleAndTimeLimit(t *testing.T) {
	if got := (Quiz{Title: "  "}).DisplayTitle(); got != DefaultTitle {
		t.Fatalf("expected default title, got %q", got)
	}
	if got := (Question{Time: 10}).TimeLimit(); got != 10*time.Second {
		t.Fatalf("expected 10s, got %s", got)
	}
	if got := (Question{}).TimeLimit(); got != 0 {
		t.Fatalf("expected untimed question, got %s", got)
	}
}

func TestNameKeyAndJoinReason(t *testing.T) {
	if NameKey("  Ana ") != NameKey("ana") {
		t.Fatalf("expected case-insensitive trimmed keys to match")
	}
	if JoinReason(ErrNameTaken) != ReasonNameTaken || JoinReason(ErrRoomNotFound) != ReasonRoomNotFound {
		t.Fatalf("unexpected reason mapping")
	}
}
