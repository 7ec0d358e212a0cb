package schedule

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"crowpost/internal/eventbus"
	"crowpost/internal/post"
	"crowpost/internal/publish"
	"crowpost/internal/storage"
	logx "crowpost/pkg/logx"
)

// EventPostScheduled is emitted whenever a new entry lands in the queue,
// whether from schedule expansion or a manual enqueue.
const EventPostScheduled = "post.scheduled"

const defaultSpec = "@every 60s"

// Config controls the scheduler loop.
type Config struct {
	Enabled  bool
	Spec     string // cron spec or @every; default "@every 60s"
	Timezone string // IANA TZ, e.g. "Europe/Paris"
}

// Loop is the timer-driven control loop: on every tick it hands due posts to
// the publish pool, tops up the queue from the schedule definitions, and
// persists the mutated queue.
//
// The tick section is exclusive: a second tick firing while one is still
// running (misconfigured short spec, slow store) waits rather than
// re-processing the same due posts.
type Loop struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	bus    eventbus.Bus
	store  storage.Store
	engine *Engine
	pool   *publish.Pool

	parser cron.Parser
	c      *cron.Cron
	loc    *time.Location

	rng *rand.Rand
	now func() time.Time
}

func NewLoop(cfg Config, engine *Engine, pool *publish.Pool, store storage.Store, log logx.Logger, bus eventbus.Bus) *Loop {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{
		log:    log,
		cfg:    cfg,
		bus:    bus,
		store:  store,
		engine: engine,
		pool:   pool,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// Running reports whether the loop has been started and not yet stopped.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c != nil
}

// Start arms the periodic timer and performs one immediate pass so a
// freshly started daemon does not wait a full period before catching up.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.c != nil {
		l.mu.Unlock()
		return nil
	}

	spec := strings.TrimSpace(l.cfg.Spec)
	if spec == "" {
		spec = defaultSpec
	}
	sched, err := l.parser.Parse(spec)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("scheduler spec %q: %w", spec, err)
	}

	loc := time.Local
	if tz := strings.TrimSpace(l.cfg.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			l.mu.Unlock()
			return fmt.Errorf("scheduler timezone %q: %w", tz, err)
		}
	}
	l.loc = loc

	c := cron.New(cron.WithParser(l.parser), cron.WithLocation(loc))
	c.Schedule(sched, cron.FuncJob(func() { l.Tick(ctx) }))
	l.c = c
	l.mu.Unlock()

	c.Start()
	l.log.Info("scheduler started", logx.String("spec", spec), logx.String("tz", loc.String()))

	l.Tick(ctx)
	return nil
}

// Stop disarms the timer. In-flight dispatches finish in the publish pool,
// which is stopped separately.
func (l *Loop) Stop(ctx context.Context) {
	l.mu.Lock()
	c := l.c
	l.c = nil
	l.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// best-effort
	}
	l.log.Info("scheduler stopped")
}

// Tick runs one pass: due-post scan, queue top-up, persist. Exclusive with
// every other queue mutation on this loop.
func (l *Loop) Tick(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	queue, err := l.store.LoadQueue(ctx)
	if err != nil {
		l.log.Error("queue load failed; skipping tick", logx.Err(err))
		return
	}

	// Phase 1: due-post scan. Due posts are removed from the queue and
	// persisted BEFORE dispatch begins, so an overlapping tick can never
	// hand the same post to the pool twice.
	var due, remaining []post.ScheduledPost
	for _, sp := range queue {
		if sp.Status == post.PostStatusScheduled && !sp.ScheduledTime.After(now) {
			due = append(due, sp)
		} else {
			remaining = append(remaining, sp)
		}
	}
	if len(due) > 0 {
		if err := l.store.SaveQueue(ctx, remaining); err != nil {
			// Leave the queue untouched; the next tick retries the scan.
			l.log.Error("queue save failed; postponing dispatch", logx.Err(err))
			return
		}
		for _, sp := range due {
			l.dispatch(sp)
		}
	}

	// Phase 2: queue top-up for the coming week.
	schedules, err := l.store.LoadSchedules(ctx)
	if err != nil {
		l.log.Error("schedules load failed", logx.Err(err))
		return
	}
	created := l.engine.ExpandAll(ctx, schedules, remaining, now)
	if len(created) == 0 {
		return
	}

	remaining = append(remaining, created...)
	sortQueue(remaining)
	if err := l.store.SaveQueue(ctx, remaining); err != nil {
		l.log.Error("queue save failed; expansion lost", logx.Err(err))
		return
	}
	for _, sp := range created {
		l.publishEvent(EventPostScheduled, sp)
	}
}

// dispatch converts a due post into a job and hands it to the pool. The
// scheduling concern ends here: dispatch-level failure is recorded on the
// job, never by re-queueing the post.
func (l *Loop) dispatch(sp post.ScheduledPost) {
	at := sp.ScheduledTime
	job := &post.Job{
		ID:          uuid.NewString(),
		MediaPath:   sp.MediaPath,
		Caption:     sp.Caption,
		Platforms:   append([]string(nil), sp.Platforms...),
		Status:      post.JobStatusPending,
		CreatedAt:   l.now(),
		ScheduledAt: &at,
	}
	if err := l.pool.Submit(job); err != nil {
		l.log.Error("job submit failed", logx.String("post", sp.ID), logx.Err(err))
		return
	}
	l.log.Info("due post dispatched",
		logx.String("post", sp.ID),
		logx.String("job", job.ID),
		logx.Time("scheduled_for", sp.ScheduledTime))
}

// PostNow publishes immediately, bypassing the queue. It returns the job id
// for tracking; the outcome arrives via events and the history store.
func (l *Loop) PostNow(mediaPath, caption string, platforms []string) (string, error) {
	if len(platforms) == 0 {
		return "", errors.New("no platforms selected")
	}
	job := &post.Job{
		ID:        uuid.NewString(),
		MediaPath: mediaPath,
		Caption:   caption,
		Platforms: append([]string(nil), platforms...),
		Status:    post.JobStatusPending,
		CreatedAt: l.now(),
	}
	if err := l.pool.Submit(job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Enqueue adds a manual post to the next available slot: tomorrow at a
// random time inside the default posting window. A persistence failure is
// surfaced to the caller; the loop itself keeps running.
func (l *Loop) Enqueue(ctx context.Context, mediaPath, caption string, platforms []string) (post.ScheduledPost, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(platforms) == 0 {
		platforms = l.engine.defaultPlatforms
	}

	now := l.now()
	tomorrow := now.AddDate(0, 0, 1)
	slot := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(),
		defaultWindowStart+l.rng.Intn(defaultWindowEnd-defaultWindowStart+1),
		l.rng.Intn(60), 0, 0, now.Location())

	sp := post.ScheduledPost{
		ID:            uuid.NewString(),
		ScheduleID:    post.ScheduleIDManual,
		ScheduleName:  "Manual Queue",
		MediaPath:     mediaPath,
		Caption:       caption,
		Platforms:     append([]string(nil), platforms...),
		ScheduledTime: slot,
		CreatedTime:   now,
		Status:        post.PostStatusScheduled,
	}

	queue, err := l.store.LoadQueue(ctx)
	if err != nil {
		return post.ScheduledPost{}, err
	}
	queue = append(queue, sp)
	sortQueue(queue)
	if err := l.store.SaveQueue(ctx, queue); err != nil {
		return post.ScheduledPost{}, fmt.Errorf("add to queue: %w", err)
	}

	l.publishEvent(EventPostScheduled, sp)
	return sp, nil
}

// Cancel removes a queued post before its time. Posts already handed to the
// dispatcher run to completion.
func (l *Loop) Cancel(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	queue, err := l.store.LoadQueue(ctx)
	if err != nil {
		return false, err
	}
	for i, sp := range queue {
		if sp.ID == id && sp.Status == post.PostStatusScheduled {
			queue = append(queue[:i], queue[i+1:]...)
			if err := l.store.SaveQueue(ctx, queue); err != nil {
				return false, err
			}
			l.log.Info("queued post cancelled", logx.String("post", id))
			return true, nil
		}
	}
	return false, nil
}

// Queue returns a snapshot of the active queue.
func (l *Loop) Queue(ctx context.Context) ([]post.ScheduledPost, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.LoadQueue(ctx)
}

func (l *Loop) publishEvent(typ string, data any) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

func sortQueue(queue []post.ScheduledPost) {
	sort.Slice(queue, func(i, j int) bool {
		return queue[i].ScheduledTime.Before(queue[j].ScheduledTime)
	})
}
