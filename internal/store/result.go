package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Result is one participant's booth session: survey answers, the generated
// candy image and the captured photo.
type Result struct {
	ID                int64
	Answers           []int64
	GeneratedImageURL string
	GeneratedImageKey string
	PhotoURL          string
	PhotoKey          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasAnswers reports whether a survey has been submitted for the result.
func (r *Result) HasAnswers() bool {
	return r.Answers != nil
}

// EncodeAnswers returns the canonical stored form of an answer list.
// Order is preserved, so [3,11] and [11,3] are different answer sets.
func EncodeAnswers(answers []int64) string {
	if answers == nil {
		answers = []int64{}
	}
	data, _ := json.Marshal(answers)
	return string(data)
}

// DecodeAnswers parses the stored form of an answer list.
func DecodeAnswers(s string) ([]int64, error) {
	var answers []int64
	if err := json.Unmarshal([]byte(s), &answers); err != nil {
		return nil, fmt.Errorf("invalid stored answers: %w", err)
	}
	if answers == nil {
		answers = []int64{}
	}
	return answers, nil
}

// ResultRepository provides operations on results.
type ResultRepository struct {
	s *Store
}

// Results returns the result repository for this store.
func (s *Store) Results() *ResultRepository {
	return &ResultRepository{s: s}
}

// Create inserts an empty result and returns it with its assigned id.
func (r *ResultRepository) Create() (*Result, error) {
	now := time.Now().UTC()
	res := &Result{CreatedAt: now, UpdatedAt: now}

	err := r.s.db.QueryRow(
		r.s.rebind(`INSERT INTO results (created_at, updated_at) VALUES (?, ?) RETURNING id`),
		now, now,
	).Scan(&res.ID)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// GetByID retrieves a result by its id.
func (r *ResultRepository) GetByID(id int64) (*Result, error) {
	res := &Result{}
	var answers, genURL, genKey, photoURL, photoKey sql.NullString

	err := r.s.db.QueryRow(
		r.s.rebind(`SELECT id, answers, generated_image_url, generated_image_key, photo_url, photo_key, created_at, updated_at
		 FROM results WHERE id = ?`),
		id,
	).Scan(&res.ID, &answers, &genURL, &genKey, &photoURL, &photoKey, &res.CreatedAt, &res.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if answers.Valid {
		if res.Answers, err = DecodeAnswers(answers.String); err != nil {
			return nil, err
		}
	}
	res.GeneratedImageURL = genURL.String
	res.GeneratedImageKey = genKey.String
	res.PhotoURL = photoURL.String
	res.PhotoKey = photoKey.String

	return res, nil
}

// UpdateAnswers stores the submitted answers and the generated image location.
func (r *ResultRepository) UpdateAnswers(id int64, answers []int64, imageURL, imageKey string) error {
	return r.update(
		`UPDATE results SET answers = ?, generated_image_url = ?, generated_image_key = ?, updated_at = ?
		 WHERE id = ?`,
		EncodeAnswers(answers), imageURL, imageKey, time.Now().UTC(), id,
	)
}

// UpdatePhoto stores the captured photo location.
func (r *ResultRepository) UpdatePhoto(id int64, photoURL, photoKey string) error {
	return r.update(
		`UPDATE results SET photo_url = ?, photo_key = ?, updated_at = ? WHERE id = ?`,
		photoURL, photoKey, time.Now().UTC(), id,
	)
}

func (r *ResultRepository) update(query string, args ...any) error {
	result, err := r.s.db.Exec(r.s.rebind(query), args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// CountByAnswers counts results with exactly these answers, in this order,
// that already have a generated image.
func (r *ResultRepository) CountByAnswers(answers []int64) (int, error) {
	var n int
	err := r.s.db.QueryRow(
		r.s.rebind(`SELECT COUNT(*) FROM results WHERE answers = ? AND generated_image_url IS NOT NULL`),
		EncodeAnswers(answers),
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
