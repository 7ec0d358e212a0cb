package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"crowpost/internal/post"
	logx "crowpost/pkg/logx"
)

// Config configures storage.
//
// Driver values:
//   - "file": flat JSON documents (default when empty)
//   - "sqlite": SQLite database file (requires the sqlite build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the single source of truth for persisted scheduling state.
// Components operate on in-memory copies and write back through it.
type Store interface {
	LoadSchedules(ctx context.Context) ([]post.Schedule, error)
	SaveSchedules(ctx context.Context, schedules []post.Schedule) error

	LoadQueue(ctx context.Context) ([]post.ScheduledPost, error)
	SaveQueue(ctx context.Context, queue []post.ScheduledPost) error

	AppendJob(ctx context.Context, job post.Job) error
	History(ctx context.Context, limit int) ([]post.Job, error)

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
