package app

import (
	"context"
	"time"

	"crowpost/internal/config"
	"crowpost/internal/eventbus"
	"crowpost/internal/media"
	"crowpost/internal/platform"
	"crowpost/internal/post"
	"crowpost/internal/publish"
	"crowpost/internal/schedule"
	"crowpost/internal/storage"
	logx "crowpost/pkg/logx"
)

// App wires configuration, logging, storage, platform adapters, the
// dispatcher pool and the scheduler loop into one startable unit.
type App struct {
	cfgPath string

	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store    storage.Store
	library  *media.Library
	adapters platform.Registry

	dispatcher *publish.Dispatcher
	pool       *publish.Pool
	engine     *schedule.Engine
	loop       *schedule.Loop

	watchCancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))

	busyTimeout, err := config.Duration("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()

	library := media.NewLibrary(media.Config{
		LibraryDir: cfg.Media.LibraryDir,
		Formats:    cfg.Media.Formats,
	}, logSvc.Logger().With(logx.String("comp", "media")))

	adapters := buildRegistry(cfg.Platforms)

	platformDelay, err := config.DurationOr("dispatcher.platform_delay", cfg.Dispatcher.PlatformDelay, time.Second)
	if err != nil {
		return nil, err
	}
	adapterTimeout, err := config.DurationOr("dispatcher.adapter_timeout", cfg.Dispatcher.AdapterTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}

	dispatcher := publish.NewDispatcher(adapters, publish.Options{
		PlatformDelay:  platformDelay,
		AdapterTimeout: adapterTimeout,
	}, logSvc.Logger().With(logx.String("comp", "dispatch")), bus)

	pool := publish.NewPool(
		cfg.Dispatcher.Workers, cfg.Dispatcher.QueueSize,
		dispatcher, store,
		logSvc.Logger().With(logx.String("comp", "pool")), bus)

	engine := schedule.NewEngine(library, cfg.Platforms.Default,
		logSvc.Logger().With(logx.String("comp", "engine")))

	loop := schedule.NewLoop(schedule.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Spec:     cfg.Scheduler.Spec,
		Timezone: cfg.Scheduler.Timezone,
	}, engine, pool, store,
		logSvc.Logger().With(logx.String("comp", "scheduler")), bus)

	return &App{
		cfgPath:    cfgPath,
		cfgm:       cfgm,
		log:        log,
		logs:       logSvc,
		bus:        bus,
		store:      store,
		library:    library,
		adapters:   adapters,
		dispatcher: dispatcher,
		pool:       pool,
		engine:     engine,
		loop:       loop,
	}, nil
}

func buildRegistry(cfg config.PlatformsConfig) platform.Registry {
	return platform.Registry{
		platform.Facebook:  platform.NewMeta(cfg.Meta, platform.Facebook),
		platform.Instagram: platform.NewMeta(cfg.Meta, platform.Instagram),
		platform.X:         platform.NewX(cfg.X),
		platform.LinkedIn:  platform.NewLinkedIn(cfg.LinkedIn),
		platform.WhatsApp:  platform.NewWhatsApp(cfg.WhatsApp),
		platform.Telegram:  platform.NewTelegram(cfg.Telegram),
	}
}

// Start brings the engine up: pool first, then the scheduler loop, then the
// config watcher for runtime log-level changes.
func (a *App) Start(ctx context.Context) error {
	a.pool.Start(ctx)

	if a.cfgm.Get().Scheduler.Enabled {
		if err := a.loop.Start(ctx); err != nil {
			return err
		}
	} else {
		a.log.Warn("scheduler disabled by config; only manual posting is available")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	go a.watchConfig(watchCtx)

	for name, st := range a.adapters.Available() {
		if !st.Available {
			a.log.Warn("platform unavailable", logx.String("platform", name), logx.String("reason", st.ErrorMessage))
		}
	}

	a.log.Info("crowpost started")
	return nil
}

// Stop shuts down in reverse order: no new ticks, then drain the pool, then
// close the store and log sinks.
func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.loop.Stop(ctx)
	a.pool.Stop(ctx)
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close failed", logx.Err(err))
		}
	}
	a.log.Info("crowpost stopped")
	return a.logs.Close()
}

// Loop exposes the scheduler loop for callers that need manual operations
// (post-now, enqueue, cancel).
func (a *App) Loop() *schedule.Loop { return a.loop }

// Bus exposes the event bus for observers.
func (a *App) Bus() eventbus.Bus { return a.bus }

// Platforms reports per-platform availability.
func (a *App) Platforms() map[string]platform.Status { return a.adapters.Available() }

// History returns the most recent terminal jobs.
func (a *App) History(ctx context.Context, limit int) ([]post.Job, error) {
	return a.store.History(ctx, limit)
}

// watchConfig follows the config file and re-applies the logging section on
// change. Structural settings (storage driver, adapters, workers) require a
// restart on purpose.
func (a *App) watchConfig(ctx context.Context) {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)

	go func() {
		if err := a.cfgm.Watch(ctx); err != nil {
			a.log.Warn("config watch unavailable", logx.Err(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok || cfg == nil {
				return
			}
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("logging config reloaded", logx.String("level", cfg.Logging.Level))
		}
	}
}
