package store

import (
	"database/sql"
)

// Option is one selectable answer. Its id doubles as the layer file name.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"-"`
	Content    string `json:"content"`
}

// Question is a survey question with its options.
type Question struct {
	ID      int64    `json:"id"`
	Content string   `json:"question"`
	IsAdult bool     `json:"-"`
	Options []Option `json:"options"`
}

// QuestionRepository provides operations on questions and their options.
type QuestionRepository struct {
	s *Store
}

// Questions returns the question repository for this store.
func (s *Store) Questions() *QuestionRepository {
	return &QuestionRepository{s: s}
}

// Create inserts a question and its options, assigning ids in place.
func (r *QuestionRepository) Create(q *Question) error {
	tx, err := r.s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRow(
		r.s.rebind(`INSERT INTO questions (content, is_adult) VALUES (?, ?) RETURNING id`),
		q.Content, q.IsAdult,
	).Scan(&q.ID)
	if err != nil {
		return err
	}

	for i := range q.Options {
		q.Options[i].QuestionID = q.ID
		err := tx.QueryRow(
			r.s.rebind(`INSERT INTO options (question_id, content) VALUES (?, ?) RETURNING id`),
			q.ID, q.Options[i].Content,
		).Scan(&q.Options[i].ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListByAudience returns questions for one audience ordered by id, each with
// its options ordered by id.
func (r *QuestionRepository) ListByAudience(isAdult bool) ([]*Question, error) {
	rows, err := r.s.db.Query(
		r.s.rebind(`SELECT q.id, q.content, o.id, o.content
		 FROM questions q LEFT JOIN options o ON o.question_id = q.id
		 WHERE q.is_adult = ?
		 ORDER BY q.id, o.id`),
		isAdult,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*Question
	for rows.Next() {
		var qID int64
		var content string
		var optID sql.NullInt64
		var optContent sql.NullString

		if err := rows.Scan(&qID, &content, &optID, &optContent); err != nil {
			return nil, err
		}

		if len(questions) == 0 || questions[len(questions)-1].ID != qID {
			questions = append(questions, &Question{
				ID:      qID,
				Content: content,
				IsAdult: isAdult,
				Options: []Option{},
			})
		}
		if optID.Valid {
			q := questions[len(questions)-1]
			q.Options = append(q.Options, Option{ID: optID.Int64, QuestionID: qID, Content: optContent.String})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return questions, nil
}

// Reset deletes every question and option and restarts id sequences at 1,
// so a reseed reproduces the same option ids.
func (r *QuestionRepository) Reset() error {
	if r.s.driver == DriverPostgres {
		_, err := r.s.db.Exec(`TRUNCATE TABLE options, questions RESTART IDENTITY CASCADE`)
		return err
	}

	stmts := []string{
		`DELETE FROM options`,
		`DELETE FROM questions`,
		`DELETE FROM sqlite_sequence WHERE name IN ('options', 'questions')`,
	}
	for _, stmt := range stmts {
		if _, err := r.s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
