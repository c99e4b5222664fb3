package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"quiz-night-service/internal/domain"
)

// QuizRecord is a row of the quizzes table.
type QuizRecord struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID        string      `bun:"id,pk"`
	Title     string      `bun:"title,notnull"`
	Data      domain.Quiz `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time   `bun:"updated_at,notnull"`
}

// QuizStore writes library documents with bun.
type QuizStore struct {
	db *bun.DB
}

func NewQuizStore(db *bun.DB) *QuizStore {
	return &QuizStore{db: db}
}

// SaveQuiz validates and upserts a document under id.
func (s *QuizStore) SaveQuiz(ctx context.Context, id string, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	record := &QuizRecord{
		ID:        id,
		Title:     quiz.DisplayTitle(),
		Data:      quiz,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save quiz %s: %w", id, err)
	}
	return nil
}
