package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed seed.json
var seedData []byte

type seedQuestion struct {
	Content string   `json:"content"`
	IsAdult bool     `json:"isAdult"`
	Options []string `json:"options"`
}

// SeedQuestions returns the built-in question set in insertion order.
func SeedQuestions() ([]*Question, error) {
	var raw []seedQuestion
	if err := json.Unmarshal(seedData, &raw); err != nil {
		return nil, fmt.Errorf("invalid seed data: %w", err)
	}

	questions := make([]*Question, 0, len(raw))
	for _, sq := range raw {
		q := &Question{Content: sq.Content, IsAdult: sq.IsAdult}
		for _, opt := range sq.Options {
			q.Options = append(q.Options, Option{Content: opt})
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// Seed replaces all questions with the built-in set and returns how many
// were inserted.
func Seed(s *Store) (int, error) {
	questions, err := SeedQuestions()
	if err != nil {
		return 0, err
	}

	repo := s.Questions()
	if err := repo.Reset(); err != nil {
		return 0, fmt.Errorf("failed to reset questions: %w", err)
	}

	for _, q := range questions {
		if err := repo.Create(q); err != nil {
			return 0, fmt.Errorf("failed to insert question %q: %w", q.Content, err)
		}
	}
	return len(questions), nil
}
