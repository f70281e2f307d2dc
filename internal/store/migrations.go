package store

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		is_adult INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS options (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		content TEXT NOT NULL
	)`,

	// answers holds a JSON array of option ids in submitted order
	`CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		answers TEXT,
		generated_image_url TEXT,
		generated_image_key TEXT,
		photo_url TEXT,
		photo_key TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_options_question_id ON options(question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_results_answers ON results(answers)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS questions (
		id BIGSERIAL PRIMARY KEY,
		content TEXT NOT NULL,
		is_adult BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS options (
		id BIGSERIAL PRIMARY KEY,
		question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		content TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS results (
		id BIGSERIAL PRIMARY KEY,
		answers TEXT,
		generated_image_url TEXT,
		generated_image_key TEXT,
		photo_url TEXT,
		photo_key TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_options_question_id ON options(question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_results_answers ON results(answers)`,
}

// runMigrations executes all database migrations for the store's dialect.
func (s *Store) runMigrations() error {
	migrations := sqliteMigrations
	if s.driver == DriverPostgres {
		migrations = postgresMigrations
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
