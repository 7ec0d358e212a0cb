package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"crowpost/internal/media"
	"crowpost/internal/post"
	logx "crowpost/pkg/logx"
)

const dateLayout = "2006-01-02"

// Default posting window when a schedule does not set one.
const (
	defaultWindowStart = 9
	defaultWindowEnd   = 17
)

// Engine turns recurring schedules into concrete, deduplicated future
// posting slots, bounded by the available media inventory.
//
// Engine is not safe for concurrent use; the scheduler loop owns it and
// calls it from the tick section.
type Engine struct {
	log logx.Logger
	inv media.Inventory

	// defaultPlatforms is applied to posts whose schedule names none.
	defaultPlatforms []string

	rng *rand.Rand
	now func() time.Time
}

func NewEngine(inv media.Inventory, defaultPlatforms []string, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	if len(defaultPlatforms) == 0 {
		defaultPlatforms = []string{"facebook", "instagram"}
	}
	return &Engine{
		log:              log,
		inv:              inv,
		defaultPlatforms: defaultPlatforms,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		now:              time.Now,
	}
}

// ExpandAll runs Expand for every schedule against the current queue and
// returns the newly created posts. One malformed schedule is skipped with an
// error log; the others continue.
func (e *Engine) ExpandAll(ctx context.Context, schedules []post.Schedule, queue []post.ScheduledPost, now time.Time) []post.ScheduledPost {
	var created []post.ScheduledPost
	for _, sc := range schedules {
		posts, err := e.Expand(ctx, sc, append(queue, created...), now)
		if err != nil {
			e.log.Error("schedule skipped", logx.String("schedule", sc.Name), logx.Err(err))
			continue
		}
		created = append(created, posts...)
	}
	return created
}

// Expand tops the queue up to PostsPerWeek posts for the coming week.
//
// It is idempotent: the schedule's future posts already in the queue count
// toward the cap, so a second call with an unchanged now produces nothing.
// Exact slot collisions are discarded too, never retried.
func (e *Engine) Expand(ctx context.Context, sc post.Schedule, queue []post.ScheduledPost, now time.Time) ([]post.ScheduledPost, error) {
	start, end, err := e.parseWindowDates(sc, now)
	if err != nil {
		return nil, err
	}
	if sc.PostsPerWeek < 0 {
		return nil, fmt.Errorf("schedule %q: posts_per_week must be >= 0", sc.Name)
	}
	if start.After(end) {
		return nil, fmt.Errorf("schedule %q: start_date after end_date", sc.Name)
	}

	if start.After(now) {
		e.log.Info("schedule not yet active", logx.String("schedule", sc.Name), logx.Time("starts", start))
		return nil, nil
	}
	if end.Before(now) {
		e.log.Info("schedule has ended", logx.String("schedule", sc.Name), logx.Time("ended", end))
		return nil, nil
	}

	winStart, winEnd, err := postingWindow(sc)
	if err != nil {
		return nil, err
	}

	horizon := now.AddDate(0, 0, 7)
	if end.Before(horizon) {
		horizon = end
	}

	// Slots already claimed by this schedule; future ones count toward
	// the weekly cap.
	claimed := make(map[int64]struct{})
	pending := 0
	for _, sp := range queue {
		if sp.ScheduleID == sc.ID {
			claimed[sp.ScheduledTime.Unix()] = struct{}{}
			if sp.ScheduledTime.After(now) {
				pending++
			}
		}
	}
	want := sc.PostsPerWeek - pending
	if want <= 0 {
		return nil, nil
	}

	pool, err := e.inv.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: media inventory: %w", sc.Name, err)
	}

	var created []post.ScheduledPost
	for day := now; !day.After(horizon) && len(created) < want; day = day.AddDate(0, 0, 1) {
		hour := winStart + e.rng.Intn(winEnd-winStart+1)
		minute := e.rng.Intn(60)
		candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())

		// Candidates in the past or already claimed are discarded, not retried.
		if !candidate.After(now) {
			continue
		}
		if _, dup := claimed[candidate.Unix()]; dup {
			continue
		}

		if len(pool) == 0 {
			// Non-fatal: schedule what we can, the rest waits for media.
			e.log.Warn("ran out of media", logx.String("schedule", sc.Name), logx.Int("scheduled", len(created)))
			break
		}
		// Random pick without replacement within this expansion call.
		idx := e.rng.Intn(len(pool))
		mediaPath := pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)

		platforms := sc.Platforms
		if len(platforms) == 0 {
			platforms = e.defaultPlatforms
		}

		sp := post.ScheduledPost{
			ID:            fmt.Sprintf("%s_%s", sc.ID, candidate.Format(time.RFC3339)),
			ScheduleID:    sc.ID,
			ScheduleName:  sc.Name,
			MediaPath:     mediaPath,
			Caption:       sc.Caption,
			Platforms:     append([]string(nil), platforms...),
			ScheduledTime: candidate,
			CreatedTime:   now,
			Status:        post.PostStatusScheduled,
		}
		claimed[candidate.Unix()] = struct{}{}
		created = append(created, sp)
	}

	if len(created) > 0 {
		e.log.Info("posts scheduled", logx.String("schedule", sc.Name), logx.Int("count", len(created)))
	}
	return created, nil
}

// parseWindowDates resolves the schedule's date bounds. An empty start means
// "already active"; an empty end means 30 days out, matching the behavior
// the configuration surface has always assumed.
func (e *Engine) parseWindowDates(sc post.Schedule, now time.Time) (start, end time.Time, err error) {
	start = now
	end = now.AddDate(0, 0, 30)
	if sc.StartDate != "" {
		start, err = time.ParseInLocation(dateLayout, sc.StartDate, now.Location())
		if err != nil {
			return start, end, fmt.Errorf("schedule %q: bad start_date: %w", sc.Name, err)
		}
	}
	if sc.EndDate != "" {
		end, err = time.ParseInLocation(dateLayout, sc.EndDate, now.Location())
		if err != nil {
			return start, end, fmt.Errorf("schedule %q: bad end_date: %w", sc.Name, err)
		}
		// End dates are inclusive: the schedule runs through that whole day.
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, nil
}

func postingWindow(sc post.Schedule) (int, int, error) {
	ws, we := sc.WindowStartHour, sc.WindowEndHour
	if ws == 0 && we == 0 {
		return defaultWindowStart, defaultWindowEnd, nil
	}
	if ws < 0 || we > 23 || ws > we {
		return 0, 0, fmt.Errorf("schedule %q: invalid posting window %d-%d", sc.Name, ws, we)
	}
	return ws, we, nil
}
