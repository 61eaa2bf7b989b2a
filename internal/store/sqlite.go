package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"resilio-dashboard/internal/logging"
	"resilio-dashboard/internal/model"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// SQLiteStore persists mock jobs so they survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path, applies migrations
// and seeds it with seed when the table is empty.
func OpenSQLite(ctx context.Context, path string, seed []model.Job) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mock job database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure mock job database: %w", err)
		}
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.seed(ctx, seed); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func migrate(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...any) {
	logging.Errorf("goose: "+format, v...)
}

func (gooseLogger) Printf(format string, v ...any) {
	logging.Debugf("goose: "+strings.TrimSuffix(format, "\n"), v...)
}

func (s *SQLiteStore) seed(ctx context.Context, jobs []model.Job) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mock_jobs`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count mock jobs: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, job := range jobs {
		if err := s.Add(ctx, job); err != nil {
			return fmt.Errorf("failed to seed mock job %s: %w", job.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload_json FROM mock_jobs ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mock jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan mock job: %w", err)
		}
		job, err := decodeJob(payload)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list mock jobs: %w", err)
	}
	return jobs, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Job, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload_json FROM mock_jobs WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, ErrNotFound
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("failed to load mock job %s: %w", id, err)
	}
	return decodeJob(payload)
}

func (s *SQLiteStore) Add(ctx context.Context, job model.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode mock job: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mock_jobs(id, status, created_at, payload_json) VALUES(?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		job.ID, string(job.Status), time.Now().Unix(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert mock job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (model.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Job{}, fmt.Errorf("failed to begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var payload string
	err = tx.QueryRowContext(ctx, `SELECT payload_json FROM mock_jobs WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, ErrNotFound
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("failed to load mock job %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM mock_jobs WHERE id = ?`, id); err != nil {
		return model.Job{}, fmt.Errorf("failed to delete mock job %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Job{}, fmt.Errorf("failed to commit delete: %w", err)
	}
	return decodeJob(payload)
}

func decodeJob(payload string) (model.Job, error) {
	var job model.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return model.Job{}, fmt.Errorf("failed to decode mock job: %w", err)
	}
	return job, nil
}
