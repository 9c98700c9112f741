package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"budgetbook/internal/core"

	_ "modernc.org/sqlite"
)

const authRecordName = "auth"

// SQLiteRepository persists the local session, preferences and the export
// log in a single sqlite file.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadAuth returns the persisted auth record; false when nobody is logged in.
func (r *SQLiteRepository) LoadAuth(ctx context.Context) (core.AuthRecord, bool, error) {
	var (
		rec      core.AuthRecord
		userJSON string
		updated  string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_json, token, refresh_token, updated_at FROM auth_session WHERE name = ?`,
		authRecordName,
	).Scan(&userJSON, &rec.Token, &rec.RefreshToken, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AuthRecord{}, false, nil
	}
	if err != nil {
		return core.AuthRecord{}, false, fmt.Errorf("load auth record: %w", err)
	}
	if err := json.Unmarshal([]byte(userJSON), &rec.User); err != nil {
		return core.AuthRecord{}, false, fmt.Errorf("decode stored user: %w", err)
	}
	rec.UpdatedAt = parseTime(updated)
	return rec, true, nil
}

func (r *SQLiteRepository) SaveAuth(ctx context.Context, rec core.AuthRecord) error {
	userJSON, err := json.Marshal(rec.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO auth_session (name, user_json, token, refresh_token, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   user_json = excluded.user_json,
		   token = excluded.token,
		   refresh_token = excluded.refresh_token,
		   updated_at = excluded.updated_at`,
		authRecordName, string(userJSON), rec.Token, rec.RefreshToken, formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save auth record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAuth(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_session WHERE name = ?`, authRecordName); err != nil {
		return fmt.Errorf("delete auth record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Preference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load preference %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) SetPreference(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save preference %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) RecordExport(ctx context.Context, job core.ExportJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO export_jobs (id, title, rows, status, ref, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, ref = excluded.ref`,
		job.ID, job.Title, job.Rows, job.Status, job.Ref, formatTime(job.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record export %s: %w", job.ID, err)
	}
	return nil
}

// RecentExports lists the newest jobs first.
func (r *SQLiteRepository) RecentExports(ctx context.Context, limit int) ([]core.ExportJob, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, rows, status, ref, created_at FROM export_jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var jobs []core.ExportJob
	for rows.Next() {
		var (
			j       core.ExportJob
			created string
		)
		if err := rows.Scan(&j.ID, &j.Title, &j.Rows, &j.Status, &j.Ref, &created); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		j.CreatedAt = parseTime(created)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return jobs, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
