package schedule

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"crowpost/internal/post"
	logx "crowpost/pkg/logx"
)

type fakeInventory struct {
	files []string
	err   error
}

func (f *fakeInventory) ListAvailable(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.files...), nil
}

func testEngine(inv *fakeInventory) *Engine {
	e := NewEngine(inv, []string{"facebook", "instagram"}, logx.Nop())
	e.rng = rand.New(rand.NewSource(42))
	return e
}

func dateStr(t time.Time) string { return t.Format(dateLayout) }

func TestExpandEndToEnd(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	inv := &fakeInventory{files: []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}}
	e := testEngine(inv)

	sc := post.Schedule{
		ID:              "s1",
		Name:            "Morning Push",
		PostsPerWeek:    3,
		StartDate:       dateStr(now),
		EndDate:         dateStr(now.AddDate(0, 0, 30)),
		WindowStartHour: 9,
		WindowEndHour:   17,
	}

	created, err := e.Expand(context.Background(), sc, nil, now)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(created))
	}

	seenTimes := map[int64]bool{}
	seenMedia := map[string]bool{}
	horizon := now.AddDate(0, 0, 7)
	for _, sp := range created {
		if sp.Status != post.PostStatusScheduled {
			t.Fatalf("unexpected status %q", sp.Status)
		}
		if !sp.ScheduledTime.After(now) || sp.ScheduledTime.After(horizon.Add(24*time.Hour)) {
			t.Fatalf("scheduled time %v outside the coming week", sp.ScheduledTime)
		}
		if h := sp.ScheduledTime.Hour(); h < 9 || h > 17 {
			t.Fatalf("scheduled hour %d outside window 9-17", h)
		}
		if seenTimes[sp.ScheduledTime.Unix()] {
			t.Fatalf("duplicate scheduled time %v", sp.ScheduledTime)
		}
		seenTimes[sp.ScheduledTime.Unix()] = true
		if seenMedia[sp.MediaPath] {
			t.Fatalf("media %q scheduled twice in one expansion", sp.MediaPath)
		}
		seenMedia[sp.MediaPath] = true
		if len(sp.Platforms) == 0 {
			t.Fatalf("expected default platforms on %+v", sp)
		}
	}
}

func TestExpandIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	inv := &fakeInventory{files: []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}}
	e := testEngine(inv)

	sc := post.Schedule{
		ID:           "s1",
		Name:         "Weekly",
		PostsPerWeek: 2,
		StartDate:    dateStr(now),
		EndDate:      dateStr(now.AddDate(0, 0, 14)),
	}

	first, err := e.Expand(context.Background(), sc, nil, now)
	if err != nil {
		t.Fatalf("first Expand: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(first))
	}

	// The schedule's future posts count toward the weekly cap, so a second
	// pass with an unchanged now must produce nothing at all.
	second, err := e.Expand(context.Background(), sc, first, now)
	if err != nil {
		t.Fatalf("second Expand: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second Expand created %d posts, want 0", len(second))
	}
}

func TestExpandTopsUpAfterDispatch(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	inv := &fakeInventory{files: []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}}
	e := testEngine(inv)

	sc := post.Schedule{
		ID:           "s1",
		Name:         "Weekly",
		PostsPerWeek: 2,
		StartDate:    dateStr(now),
		EndDate:      dateStr(now.AddDate(0, 0, 14)),
	}

	first, err := e.Expand(context.Background(), sc, nil, now)
	if err != nil {
		t.Fatalf("first Expand: %v", err)
	}

	// One post came due and left the queue; only the gap is refilled.
	later := first[0].ScheduledTime.Add(time.Minute)
	remaining := first[1:]
	refill, err := e.Expand(context.Background(), sc, remaining, later)
	if err != nil {
		t.Fatalf("refill Expand: %v", err)
	}
	if len(refill)+len(remaining) > sc.PostsPerWeek {
		t.Fatalf("refill overshot the cap: %d existing + %d new", len(remaining), len(refill))
	}
}

func TestExpandExhaustedMediaIsPartial(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	inv := &fakeInventory{files: []string{"only.jpg"}}
	e := testEngine(inv)

	sc := post.Schedule{
		ID:           "s1",
		Name:         "Starved",
		PostsPerWeek: 3,
		StartDate:    dateStr(now),
		EndDate:      dateStr(now.AddDate(0, 0, 14)),
	}

	created, err := e.Expand(context.Background(), sc, nil, now)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected partial set of 1, got %d", len(created))
	}
}

func TestExpandInactiveSchedules(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	inv := &fakeInventory{files: []string{"a.jpg"}}
	e := testEngine(inv)

	future := post.Schedule{ID: "f", Name: "future", PostsPerWeek: 1,
		StartDate: dateStr(now.AddDate(0, 0, 3)), EndDate: dateStr(now.AddDate(0, 0, 30))}
	created, err := e.Expand(context.Background(), future, nil, now)
	if err != nil {
		t.Fatalf("future schedule: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("future schedule produced %d posts", len(created))
	}

	ended := post.Schedule{ID: "e", Name: "ended", PostsPerWeek: 1,
		StartDate: dateStr(now.AddDate(0, 0, -30)), EndDate: dateStr(now.AddDate(0, 0, -2))}
	created, err = e.Expand(context.Background(), ended, nil, now)
	if err != nil {
		t.Fatalf("ended schedule: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("ended schedule produced %d posts", len(created))
	}
}

func TestExpandAllSkipsMalformedSchedule(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	inv := &fakeInventory{files: []string{"a.jpg", "b.jpg"}}
	e := testEngine(inv)

	bad := post.Schedule{ID: "bad", Name: "bad", PostsPerWeek: 1, StartDate: "not-a-date"}
	good := post.Schedule{ID: "good", Name: "good", PostsPerWeek: 1,
		StartDate: dateStr(now), EndDate: dateStr(now.AddDate(0, 0, 7))}

	created := e.ExpandAll(context.Background(), []post.Schedule{bad, good}, nil, now)
	if len(created) != 1 {
		t.Fatalf("expected 1 post from the good schedule, got %d", len(created))
	}
	if created[0].ScheduleID != "good" {
		t.Fatalf("unexpected schedule id %q", created[0].ScheduleID)
	}
}

func TestExpandInventoryError(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	inv := &fakeInventory{err: errors.New("disk gone")}
	e := testEngine(inv)

	sc := post.Schedule{ID: "s1", Name: "s1", PostsPerWeek: 1,
		StartDate: dateStr(now), EndDate: dateStr(now.AddDate(0, 0, 7))}
	if _, err := e.Expand(context.Background(), sc, nil, now); err == nil {
		t.Fatal("expected inventory error to surface")
	}
}

func TestExpandRejectsInvalidWindow(t *testing.T) {
	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	e := testEngine(&fakeInventory{files: []string{"a.jpg"}})

	sc := post.Schedule{ID: "w", Name: "w", PostsPerWeek: 1,
		StartDate: dateStr(now), EndDate: dateStr(now.AddDate(0, 0, 7)),
		WindowStartHour: 18, WindowEndHour: 9}
	if _, err := e.Expand(context.Background(), sc, nil, now); err == nil {
		t.Fatal("expected invalid window error")
	}
}
