//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"crowpost/internal/post"
	logx "crowpost/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Rows store the full record as JSON so the wire format stays identical to
// the file driver; indexed columns exist only for ordering and lookups.

func (s *sqliteStore) LoadSchedules(ctx context.Context) ([]post.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM schedules ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []post.Schedule
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var sc post.Schedule
		if err := json.Unmarshal([]byte(raw), &sc); err != nil {
			s.log.Warn("schedule row corrupt; skipping", logx.Err(err))
			continue
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveSchedules(ctx context.Context, schedules []post.Schedule) error {
	return s.replaceAll(ctx, "schedules", func(tx *sql.Tx) error {
		for _, sc := range schedules {
			b, err := json.Marshal(sc)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schedules (id, data) VALUES (?, ?)", sc.ID, string(b)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqliteStore) LoadQueue(ctx context.Context) ([]post.ScheduledPost, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM queue ORDER BY scheduled_time")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []post.ScheduledPost
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var sp post.ScheduledPost
		if err := json.Unmarshal([]byte(raw), &sp); err != nil {
			s.log.Warn("queue row corrupt; skipping", logx.Err(err))
			continue
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveQueue(ctx context.Context, queue []post.ScheduledPost) error {
	return s.replaceAll(ctx, "queue", func(tx *sql.Tx) error {
		for _, sp := range queue {
			b, err := json.Marshal(sp)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO queue (id, scheduled_time, data) VALUES (?, ?, ?)",
				sp.ID, sp.ScheduledTime.UnixMilli(), string(b)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqliteStore) AppendJob(ctx context.Context, job post.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO history (id, created_at, data) VALUES (?, ?, ?)",
		job.ID, job.CreatedAt.UnixMilli(), string(b))
	return err
}

func (s *sqliteStore) History(ctx context.Context, limit int) ([]post.Job, error) {
	q := "SELECT data FROM history ORDER BY seq"
	args := []any{}
	if limit > 0 {
		// Last N in append order.
		q = "SELECT data FROM (SELECT seq, data FROM history ORDER BY seq DESC LIMIT ?) ORDER BY seq"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []post.Job
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var j post.Job
		if err := json.Unmarshal([]byte(raw), &j); err != nil {
			s.log.Warn("history row corrupt; skipping", logx.Err(err))
			continue
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *sqliteStore) replaceAll(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insert(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
