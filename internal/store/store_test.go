package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q, want %q", s.Driver(), DriverSQLite)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"questions", "options", "results"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}

	for _, idx := range []string{"idx_options_question_id", "idx_results_answers"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
			idx,
		).Scan(&name)
		if err != nil {
			t.Errorf("index %q should exist after migrations: %v", idx, err)
		}
	}
}

func TestNewStore_MigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopening should not fail: %v", err)
	}
	s.Close()
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestRebind(t *testing.T) {
	query := "UPDATE results SET photo_url = ?, photo_key = ? WHERE id = ?"

	sqlite := &Store{driver: DriverSQLite}
	if got := sqlite.rebind(query); got != query {
		t.Errorf("sqlite rebind changed query: %s", got)
	}

	pg := &Store{driver: DriverPostgres}
	want := "UPDATE results SET photo_url = $1, photo_key = $2 WHERE id = $3"
	if got := pg.rebind(query); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestOpen_Postgres(t *testing.T) {
	dsn := os.Getenv("CANDYBOOTH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CANDYBOOTH_TEST_POSTGRES_DSN not set")
	}

	s, err := Open(DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("failed to open postgres store: %v", err)
	}
	defer s.Close()

	res, err := s.Results().Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Results().UpdateAnswers(res.ID, []int64{1, 2}, "http://x/a.png", "a.png"); err != nil {
		t.Fatalf("UpdateAnswers failed: %v", err)
	}
	got, err := s.Results().GetByID(res.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if EncodeAnswers(got.Answers) != "[1,2]" {
		t.Errorf("unexpected answers: %v", got.Answers)
	}
}
