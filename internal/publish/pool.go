package publish

import (
	"context"
	"errors"
	"sync"

	"crowpost/internal/eventbus"
	"crowpost/internal/post"
	"crowpost/internal/storage"
	logx "crowpost/pkg/logx"
)

var ErrQueueFull = errors.New("publish queue full")

// Pool executes jobs on a bounded set of workers so a slow or hanging
// platform API cannot stall the scheduler tick that produced the job.
// Terminal jobs are appended to history through the store.
type Pool struct {
	log   logx.Logger
	bus   eventbus.Bus
	d     *Dispatcher
	store storage.Store

	workers int
	q       chan *post.Job

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewPool(workers, queueSize int, d *Dispatcher, store storage.Store, log logx.Logger, bus eventbus.Bus) *Pool {
	if workers <= 0 {
		workers = 3
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pool{
		log:     log,
		bus:     bus,
		d:       d,
		store:   store,
		workers: workers,
		q:       make(chan *post.Job, queueSize),
		stopCh:  make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.worker(ctx)
			}()
		}
		p.log.Debug("publish pool started", logx.Int("workers", p.workers), logx.Int("queue_cap", cap(p.q)))
	})
}

// Stop stops accepting work and waits for in-flight jobs to finish, or for
// ctx to expire, whichever comes first.
func (p *Pool) Stop(ctx context.Context) {
	p.stopOnce.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.log.Debug("publish pool stopped")
	case <-ctx.Done():
		p.log.Warn("publish pool stop timed out; jobs abandoned")
	}
}

// Submit enqueues a job for dispatch. It never blocks: a full queue is
// surfaced to the caller rather than stalling the scheduler tick.
func (p *Pool) Submit(job *post.Job) error {
	select {
	case <-p.stopCh:
		return errors.New("publish pool stopped")
	default:
	}
	select {
	case p.q <- job:
		return nil
	default:
		p.log.Warn("publish queue full; job rejected", logx.String("job", job.ID))
		return ErrQueueFull
	}
}

func (p *Pool) QueueLen() int { return len(p.q) }

func (p *Pool) worker(ctx context.Context) {
	for {
		// A closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case job, ok := <-p.q:
			if !ok {
				return
			}
			p.run(ctx, job)
		}
	}
}

func (p *Pool) run(ctx context.Context, job *post.Job) {
	// A job picked up before shutdown runs to completion: the start context
	// only gates pick-up, so dispatch and the history write keep going while
	// Stop drains. The dispatcher's per-adapter timeout still bounds each call.
	jobCtx := context.WithoutCancel(ctx)
	job = p.d.Publish(jobCtx, job)

	if p.store != nil && job.Terminal() {
		if err := p.store.AppendJob(jobCtx, *job); err != nil {
			p.log.Error("job history append failed", logx.String("job", job.ID), logx.Err(err))
		}
	}
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{Type: EventPostPublished, Data: *job})
	}
}
