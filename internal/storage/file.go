package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"crowpost/internal/post"
	logx "crowpost/pkg/logx"
)

// fileStore is the flat-file persistence backend.
//
// Files:
//   - <prefix>.schedules.json (array of Schedule)
//   - <prefix>.queue.json     (array of ScheduledPost, the active queue)
//   - <prefix>.history.json   (array of Job, append order)
//
// Every write goes through a tmp-file + rename so a crash mid-write never
// leaves a truncated document behind. A corrupt or missing file loads as
// empty state with a warning; the engine must always be able to start.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	schedulesPath string
	queuePath     string
	historyPath   string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &fileStore{
		log:           log,
		schedulesPath: prefix + ".schedules.json",
		queuePath:     prefix + ".queue.json",
		historyPath:   prefix + ".history.json",
	}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) LoadSchedules(ctx context.Context) ([]post.Schedule, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []post.Schedule
	s.loadDocument(s.schedulesPath, &out)
	return out, nil
}

func (s *fileStore) SaveSchedules(ctx context.Context, schedules []post.Schedule) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDocument(s.schedulesPath, schedules)
}

func (s *fileStore) LoadQueue(ctx context.Context) ([]post.ScheduledPost, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []post.ScheduledPost
	s.loadDocument(s.queuePath, &out)
	return out, nil
}

func (s *fileStore) SaveQueue(ctx context.Context, queue []post.ScheduledPost) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDocument(s.queuePath, queue)
}

func (s *fileStore) AppendJob(ctx context.Context, job post.Job) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	// Full rewrite is acceptable at this scale; the history is modest and
	// the rename keeps each write atomic.
	var history []post.Job
	s.loadDocument(s.historyPath, &history)
	history = append(history, job)
	return s.writeDocument(s.historyPath, history)
}

func (s *fileStore) History(ctx context.Context, limit int) ([]post.Job, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var history []post.Job
	s.loadDocument(s.historyPath, &history)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// loadDocument decodes a JSON document into out. Missing files are normal
// (first run); corrupt files are logged and treated as empty.
func (s *fileStore) loadDocument(path string, out any) {
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("store file unreadable; treating as empty", logx.String("path", path), logx.Err(err))
		}
		return
	}
	if err := json.Unmarshal(b, out); err != nil {
		s.log.Warn("store file corrupt; treating as empty", logx.String("path", path), logx.Err(err))
	}
}

func (s *fileStore) writeDocument(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
