package publish

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/time/rate"

	"crowpost/internal/eventbus"
	"crowpost/internal/media"
	"crowpost/internal/platform"
	"crowpost/internal/post"
	logx "crowpost/pkg/logx"
)

// Options controls dispatch behavior.
//
// PlatformDelay spaces out consecutive platform calls within one job, as
// rate-limit courtesy toward adapters that do not self-throttle.
// AdapterTimeout bounds each individual adapter call.
type Options struct {
	PlatformDelay  time.Duration
	AdapterTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PlatformDelay <= 0 {
		o.PlatformDelay = time.Second
	}
	if o.AdapterTimeout <= 0 {
		o.AdapterTimeout = 30 * time.Second
	}
	return o
}

// Dispatcher executes one job by calling each requested platform adapter in
// the caller-supplied order and aggregating outcomes. Adapters are injected
// explicitly; an id with no adapter is recorded as a failed platform result,
// never an error.
type Dispatcher struct {
	log      logx.Logger
	bus      eventbus.Bus
	adapters platform.Registry
	opt      Options
}

func NewDispatcher(adapters platform.Registry, opt Options, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		log:      log,
		bus:      bus,
		adapters: adapters,
		opt:      opt.withDefaults(),
	}
}

// Publish runs the job to completion, mutating and returning it with
// populated per-platform results.
//
// Aggregation: every platform succeeded -> success; every platform failed ->
// failed; a mix -> success with the failures visible in Results. Callers
// needing all-or-nothing semantics must inspect Results themselves.
func (d *Dispatcher) Publish(ctx context.Context, job *post.Job) *post.Job {
	start := time.Now()
	job.Status = post.JobStatusPublishing
	if job.Results == nil {
		job.Results = make(map[string]post.PlatformResult, len(job.Platforms))
	}

	d.log.Info("job.started", logx.String("job", job.ID), logx.Int("platforms", len(job.Platforms)))
	d.publishEvent(EventPublishingStarted, JobEvent{JobID: job.ID})

	// Burst 1: the first call goes immediately, later calls are spaced by
	// PlatformDelay.
	limiter := rate.NewLimiter(rate.Every(d.opt.PlatformDelay), 1)
	isVideo := media.IsVideo(job.MediaPath)

	for i, name := range job.Platforms {
		var res post.PlatformResult

		// The initial token makes the first call immediate; each further
		// call is spaced by PlatformDelay.
		if err := limiter.Wait(ctx); err != nil {
			res = post.PlatformResult{Status: post.ResultFailed, Message: err.Error()}
			d.publishEvent(EventPublishingFailed, PlatformEvent{JobID: job.ID, Platform: name, Result: res})
		} else if adapter, ok := d.adapters[name]; !ok {
			res = post.PlatformResult{Status: post.ResultFailed, Message: "unsupported platform: " + name}
			d.log.Warn("job.platform_unsupported", logx.String("job", job.ID), logx.String("platform", name))
			d.publishEvent(EventPublishingFailed, PlatformEvent{JobID: job.ID, Platform: name, Result: res})
		} else if msg, err := d.callAdapter(ctx, adapter, job, name, isVideo); err != nil {
			res = post.PlatformResult{Status: post.ResultFailed, Message: err.Error()}
			d.log.Warn("job.platform_failed", logx.String("job", job.ID), logx.String("platform", name), logx.Err(err))
			d.publishEvent(EventPublishingFailed, PlatformEvent{JobID: job.ID, Platform: name, Result: res})
		} else {
			res = post.PlatformResult{Status: post.ResultSuccess, Message: msg}
			d.log.Debug("job.platform_succeeded", logx.String("job", job.ID), logx.String("platform", name))
			d.publishEvent(EventPublishingSuccess, PlatformEvent{JobID: job.ID, Platform: name, Result: res})
		}
		job.Results[name] = res

		// Progress is per iteration, whatever the outcome, so observers
		// always see it reach 100%.
		d.publishEvent(EventPublishingProgress, ProgressEvent{
			JobID:    job.ID,
			Platform: name,
			Percent:  (i + 1) * 100 / len(job.Platforms),
		})
	}

	job.Status = aggregate(job)
	if job.Status == post.JobStatusFailed {
		job.ErrorMsg = "all platforms failed"
	}

	d.log.Info("job.completed",
		logx.String("job", job.ID),
		logx.String("status", job.Status),
		logx.Duration("took", time.Since(start)))
	d.publishEvent(EventPublishingCompleted, JobEvent{JobID: job.ID, Status: job.Status})

	return job
}

// callAdapter bounds one adapter call with the configured timeout and
// converts panics into errors, so one misbehaving adapter can neither hang
// the job nor take down the process.
func (d *Dispatcher) callAdapter(ctx context.Context, a platform.Adapter, job *post.Job, name string, isVideo bool) (msg string, err error) {
	callCtx, cancel := context.WithTimeout(ctx, d.opt.AdapterTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			d.log.Error("adapter.panic",
				logx.String("job", job.ID),
				logx.String("platform", name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	return a.Publish(callCtx, job.MediaPath, job.Caption, isVideo)
}

func (d *Dispatcher) publishEvent(typ string, data any) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

func aggregate(job *post.Job) string {
	if len(job.Results) == 0 {
		return post.JobStatusFailed
	}
	succeeded := 0
	for _, r := range job.Results {
		if r.Status == post.ResultSuccess {
			succeeded++
		}
	}
	switch {
	case succeeded == 0:
		return post.JobStatusFailed
	default:
		// Partial success counts as success at the job level; per-platform
		// failures stay visible in Results.
		return post.JobStatusSuccess
	}
}
