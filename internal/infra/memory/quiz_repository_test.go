package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-night-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"capitals": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "capitals")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Title != "Capitals" || len(quiz.Questions) != 2 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "capitals"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{"capitals": sampleQuiz()}),
	}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuiz(context.Background(), "capitals")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "capitals")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryRejectsInvalidDocuments(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.Quiz{
		"empty": {Title: "Empty"},
	}), time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "empty"); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected invalid quiz error, got %v", err)
	}
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQuizRepositoryConcurrentLoads(t *testing.T) {
	quizzes := make(map[string]domain.Quiz)
	for i := 0; i < 16; i++ {
		quizzes[fmt.Sprintf("quiz-%d", i)] = sampleQuiz()
	}
	repo := NewQuizRepository(NewStaticQuizLoader(quizzes), time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, len(quizzes)*4)
	for id := range quizzes {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := repo.GetQuiz(context.Background(), id); err != nil {
					errs <- err
				}
			}(id)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent load: %v", err)
	}
	for id := range quizzes {
		if _, ok := repo.cached(id); !ok {
			t.Fatalf("expected %s cached", id)
		}
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Title: "Capitals",
		Questions: []domain.Question{
			{Type: domain.QuestionMCQ, Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, Answer: 0, Time: 10},
			{Type: domain.QuestionText, Prompt: "Capital of Italy?", Accepted: []string{"Rome", "Roma"}},
		},
	}
}
