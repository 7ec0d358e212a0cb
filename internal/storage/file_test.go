package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"crowpost/internal/post"
	logx "crowpost/pkg/logx"
)

func tempStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "state.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFileStoreQueueRoundTrip(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	when := time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC)
	in := []post.ScheduledPost{{
		ID:            "s1_2026-08-27T14:30:00Z",
		ScheduleID:    "s1",
		ScheduleName:  "Weekly",
		MediaPath:     "a.jpg",
		Caption:       "hi",
		Platforms:     []string{"facebook"},
		ScheduledTime: when,
		CreatedTime:   when.Add(-time.Hour),
		Status:        post.PostStatusScheduled,
	}}
	if err := s.SaveQueue(ctx, in); err != nil {
		t.Fatalf("SaveQueue: %v", err)
	}

	out, err := s.LoadQueue(ctx)
	if err != nil {
		t.Fatalf("LoadQueue: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("loaded %d posts, want 1", len(out))
	}
	if out[0].ID != in[0].ID || !out[0].ScheduledTime.Equal(when) {
		t.Fatalf("round trip mismatch: %+v", out[0])
	}
}

func TestFileStoreSchedulesRoundTrip(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	in := []post.Schedule{{
		ID:           "s1",
		Name:         "Weekly",
		PostsPerWeek: 3,
		StartDate:    "2026-08-26",
		EndDate:      "2026-09-26",
		Platforms:    []string{"facebook", "x"},
		Caption:      "caption",
	}}
	if err := s.SaveSchedules(ctx, in); err != nil {
		t.Fatalf("SaveSchedules: %v", err)
	}

	out, err := s.LoadSchedules(ctx)
	if err != nil {
		t.Fatalf("LoadSchedules: %v", err)
	}
	if len(out) != 1 || out[0].PostsPerWeek != 3 || out[0].EndDate != "2026-09-26" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestFileStoreHistoryAppendAndLimit(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		job := post.Job{
			ID:        string(rune('a' + i)),
			MediaPath: "a.jpg",
			Status:    post.JobStatusSuccess,
			CreatedAt: time.Now(),
		}
		if err := s.AppendJob(ctx, job); err != nil {
			t.Fatalf("AppendJob %d: %v", i, err)
		}
	}

	all, err := s.History(ctx, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("history length %d, want 5", len(all))
	}

	tail, err := s.History(ctx, 2)
	if err != nil {
		t.Fatalf("History limited: %v", err)
	}
	if len(tail) != 2 || tail[0].ID != "d" || tail[1].ID != "e" {
		t.Fatalf("expected last two jobs, got %+v", tail)
	}
}

func TestFileStoreMissingFilesLoadEmpty(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	queue, err := s.LoadQueue(ctx)
	if err != nil {
		t.Fatalf("LoadQueue: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("expected empty queue, got %d", len(queue))
	}
	schedules, err := s.LoadSchedules(ctx)
	if err != nil {
		t.Fatalf("LoadSchedules: %v", err)
	}
	if len(schedules) != 0 {
		t.Fatalf("expected no schedules, got %d", len(schedules))
	}
}

func TestFileStoreCorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := os.WriteFile(filepath.Join(dir, "state.queue.json"), []byte("{broken"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	queue, err := s.LoadQueue(context.Background())
	if err != nil {
		t.Fatalf("LoadQueue on corrupt file: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("expected empty queue, got %d", len(queue))
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "etcd", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
