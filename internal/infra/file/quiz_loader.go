package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	"quiz-night-service/internal/domain"
)

var extensions = []string{".json", ".yaml", ".yml"}

// QuizLoader reads quiz documents from a directory, one file per quiz named
// after its id (capitals.yaml, history.json, ...).
type QuizLoader struct {
	dir string
}

func NewQuizLoader(dir string) *QuizLoader {
	return &QuizLoader{dir: dir}
}

func (l *QuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quizID == "" || strings.ContainsAny(quizID, `/\`) || strings.Contains(quizID, "..") {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	for _, ext := range extensions {
		path := filepath.Join(l.dir, quizID+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("read quiz %s: %w", quizID, err)
		}
		return Decode(path, data)
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// List returns the ids of the quizzes in the directory.
func (l *QuizLoader) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !supported(ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Decode parses a JSON or YAML quiz document based on the file extension.
func Decode(path string, data []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &quiz)
	default:
		err = yaml.Unmarshal(data, &quiz)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidQuiz, filepath.Base(path), err)
	}
	return quiz, nil
}

func supported(ext string) bool {
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
