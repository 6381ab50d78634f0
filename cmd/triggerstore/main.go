// Command triggerstore runs the trigger store as a standalone service: it
// wires configuration, the SQL delegate, the in-memory concurrency
// collaborators, the queue-state publisher, and the admin HTTP surface
// together, then runs the acquisition dispatcher until told to stop.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"go.triggerstore.dev/internal/admin"
	"go.triggerstore.dev/internal/common/health"
	"go.triggerstore.dev/internal/common/lifecycle"
	"go.triggerstore.dev/internal/config"
	"go.triggerstore.dev/internal/queue"
	natsqueue "go.triggerstore.dev/internal/queue/nats"
	"go.triggerstore.dev/internal/triggerstore"
	"go.triggerstore.dev/internal/triggerstore/catalog"
	"go.triggerstore.dev/internal/triggerstore/delegate/postgres"
	"go.triggerstore.dev/internal/triggerstore/delegate/sqlite"
	"go.triggerstore.dev/internal/triggerstore/executing"
	"go.triggerstore.dev/internal/triggerstore/filterbus"
	"go.triggerstore.dev/internal/triggerstore/jobtypes"
	"go.triggerstore.dev/internal/triggerstore/queuestate"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	setupLogging()

	slog.Info("starting triggerstore", "version", version, "build_time", buildTime)

	ctx := context.Background()

	// ========================================
	// 1. INFRASTRUCTURE INITIALIZATION
	// ========================================
	app, cleanup, err := lifecycle.Initialize(ctx, lifecycle.AppOptions{NeedsDB: true})
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := app.Config
	healthChecker := health.NewChecker()
	healthChecker.AddReadinessCheck(health.DBCheck(func() error {
		return app.DB.PingContext(ctx)
	}))

	// ========================================
	// 2. QUEUE SETUP
	// ========================================
	natsPublisher, queueHealthCheck, queueCloser, err := setupQueue(cfg)
	if err != nil {
		slog.Error("failed to set up queue", "error", err)
		os.Exit(1)
	}
	healthChecker.AddReadinessCheck(queueHealthCheck)
	if queueCloser != nil {
		defer func() {
			if err := queueCloser(); err != nil {
				slog.Error("error closing queue", "error", err)
			}
		}()
	}

	// ========================================
	// 3. COMPONENT WIRING
	// ========================================
	delegate, err := openDelegate(ctx, cfg, app.DB)
	if err != nil {
		slog.Error("failed to open delegate", "error", err)
		os.Exit(1)
	}

	cat := catalog.New()
	registerJobTypes(cat)
	cat.ApplyOverrides(cfg.Concurrency.LimitOverrides)

	types := jobtypes.New()
	for _, jt := range knownJobTypes() {
		types.Register(jt)
	}

	bus := filterbus.New()
	exec := executing.New()

	qsPublisher := queuestate.New(natsPublisher)
	qsPublisher.Subscribe(func(_ context.Context, kind queuestate.EventKind, qs triggerstore.QueueStateContext) {
		slog.Debug("queue-state event", "kind", kind, "waiting", qs.WaitingCount, "blocked", qs.BlockedCount, "executing", len(qs.CurrentlyExecuting))
	})

	storeCfg := triggerstore.DefaultConfig()
	storeCfg.SchedulerID = cfg.Scheduler.InstanceID
	storeCfg.MaxAcquireRetries = cfg.Scheduler.MaxAcquireRetries
	storeCfg.ThreadCount = cfg.Scheduler.ThreadCount

	disp := newDispatcher(dispatcherConfig{
		PollInterval:    cfg.Scheduler.PollInterval,
		BatchSize:       cfg.Scheduler.BatchSize,
		BatchTimeWindow: cfg.Scheduler.BatchTimeWindow,
	})
	bus.Subscribe(func() {
		disp.SignalSchedulingChangeImmediately(triggerstore.SentinelWakeTime)
	})

	store := triggerstore.New(storeCfg, delegate, cat, bus, exec, types, disp, qsPublisher)
	disp.store = store

	healthChecker.AddReadinessCheck(health.SchedulerCheck(disp.IsRunning))

	adminServer := admin.New(store, healthChecker, cfg.HTTP.CORSOrigins)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      adminServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ========================================
	// 4. SERVICE STARTUP
	// ========================================
	var services []lifecycle.Service
	services = append(services, lifecycle.NewHTTPService("admin-http", httpServer))
	services = append(services, disp)

	slog.Info("triggerstore ready",
		"port", cfg.HTTP.Port,
		"dbDriver", cfg.DB.Driver,
		"queueType", cfg.Queue.Type)

	// ========================================
	// 5. RUN UNTIL SHUTDOWN
	// ========================================
	if err := lifecycle.Run(ctx, services...); err != nil {
		slog.Error("service error", "error", err)
		os.Exit(1)
	}

	slog.Info("triggerstore stopped")
}

// setupLogging configures the slog default logger.
func setupLogging() {
	logLevel := slog.LevelInfo
	if os.Getenv("TRIGGERSTORE_DEV") == "true" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// openDelegate wraps the lifecycle-owned *sql.DB in the filtered delegate
// matching cfg.DB.Driver, ensures the schema exists, then applies the
// repository-instrumentation decorator so every delegate call records
// duration/error/slow-query metrics.
func openDelegate(ctx context.Context, cfg *config.Config, db *sql.DB) (triggerstore.Delegate, error) {
	var raw triggerstore.Delegate
	switch cfg.DB.Driver {
	case "postgres":
		d := postgres.New(db)
		if err := d.CreateSchema(ctx); err != nil {
			return nil, fmt.Errorf("create postgres schema: %w", err)
		}
		raw = d
	case "sqlite", "":
		d := sqlite.New(db)
		if err := d.CreateSchema(ctx); err != nil {
			return nil, fmt.Errorf("create sqlite schema: %w", err)
		}
		raw = d
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
	return triggerstore.Instrument(raw), nil
}

// registerJobTypes declares the concurrency rule for every job type this
// deployment knows about. Kept as one explicit list rather than reflection
// so the whole concurrency policy can be read from this single function.
func registerJobTypes(cat *catalog.Catalog) {
	cat.Register("report.generate", catalog.Rule{Limit: 4, MaxAllowed: 8})
	cat.Register("export.csv", catalog.Rule{Group: "bulk-io", MaxAllowed: 1})
	cat.Register("export.pdf", catalog.Rule{Group: "bulk-io", MaxAllowed: 1})
	cat.Register("email.digest", catalog.Rule{Limit: 2, MaxAllowed: 4})
	cat.Register("warehouse.sync", catalog.Rule{DisallowAny: true})
}

func knownJobTypes() []string {
	return []string{
		"report.generate",
		"export.csv",
		"export.pdf",
		"email.digest",
		"warehouse.sync",
	}
}

// setupQueue initializes the queue-state publisher's transport based on
// configuration. Returns the publisher, a health check, and a closer.
func setupQueue(cfg *config.Config) (queue.Publisher, health.CheckFunc, func() error, error) {
	qcfg := queue.DefaultConfig()
	qcfg.Type = cfg.Queue.Type
	qcfg.NATS.URL = cfg.Queue.NATS.URL
	if cfg.Queue.NATS.DataDir != "" {
		qcfg.DataDir = cfg.Queue.NATS.DataDir
	}
	if cfg.DataDir != "" {
		qcfg.DataDir = cfg.DataDir + "/nats"
	}
	factory := queue.NewFactory(qcfg)

	switch {
	case factory.IsEmbedded():
		natsCfg := natsqueue.DefaultEmbeddedConfig()
		natsCfg.DataDir = factory.Config().DataDir

		embedded, err := natsqueue.NewEmbeddedServer(natsCfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("start embedded nats: %w", err)
		}
		check := health.NATSCheck(func() bool {
			return embedded.Connection().IsConnected()
		})
		return embedded.Publisher(), check, embedded.Close, nil

	case factory.IsNATS():
		client, err := natsqueue.NewClient(&queue.NATSConfig{
			URL:        factory.Config().NATS.URL,
			StreamName: "TRIGGERSTORE",
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		check := health.NATSCheck(func() bool { return true })
		return client.Publisher(), check, client.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown queue type %q", factory.Type())
	}
}

// dispatcherConfig carries the tunables the acquisition loop needs.
type dispatcherConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	BatchTimeWindow time.Duration
}

// dispatcher drives AcquireNextTriggers on a timer, implements
// lifecycle.Service so the supervisor can start/stop/health-check it
// alongside the admin HTTP server, and implements
// triggerstore.SchedulerSignaler so the store can wake it immediately
// instead of waiting out the rest of the poll interval.
type dispatcher struct {
	cfg   dispatcherConfig
	store *triggerstore.Store

	wakeCh chan time.Time

	runningMu sync.Mutex
	running   bool
}

func newDispatcher(cfg dispatcherConfig) *dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &dispatcher{
		cfg:    cfg,
		wakeCh: make(chan time.Time, 1),
	}
}

func (d *dispatcher) Name() string { return "dispatcher" }

// SignalSchedulingChangeImmediately implements triggerstore.SchedulerSignaler.
func (d *dispatcher) SignalSchedulingChangeImmediately(candidateNextFireTime time.Time) {
	select {
	case d.wakeCh <- candidateNextFireTime:
	default:
		// a wake is already pending, which is sufficient
	}
}

// Start implements lifecycle.Service. It blocks until ctx is cancelled.
func (d *dispatcher) Start(ctx context.Context) error {
	d.setRunning(true)
	defer d.setRunning(false)

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.acquireAndFire(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.acquireAndFire(ctx)
		case <-d.wakeCh:
			d.acquireAndFire(ctx)
		}
	}
}

// Stop implements lifecycle.Service. Start already returns as soon as its
// ctx is cancelled by the supervisor; there is no separate resource to
// release here.
func (d *dispatcher) Stop(ctx context.Context) error {
	return nil
}

// Health implements lifecycle.Service.
func (d *dispatcher) Health() error {
	if !d.IsRunning() {
		return fmt.Errorf("dispatcher not running")
	}
	return nil
}

// IsRunning reports whether Start's loop is currently active.
func (d *dispatcher) IsRunning() bool {
	d.runningMu.Lock()
	defer d.runningMu.Unlock()
	return d.running
}

func (d *dispatcher) setRunning(running bool) {
	d.runningMu.Lock()
	d.running = running
	d.runningMu.Unlock()
}

// acquireAndFire runs one acquisition round and fires whatever it
// acquires. Actual job execution is out of scope for this service;
// callers invoke TriggeredJobComplete out-of-band once a fired job
// finishes running elsewhere.
func (d *dispatcher) acquireAndFire(ctx context.Context) {
	roundCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	acquired, err := d.store.AcquireNextTriggers(roundCtx, time.Now(), d.cfg.BatchSize, d.cfg.BatchTimeWindow)
	if err != nil {
		slog.Error("acquire next triggers failed", "error", err)
		return
	}
	if len(acquired) == 0 {
		return
	}

	batch := make([]*triggerstore.Trigger, len(acquired))
	for i, a := range acquired {
		batch[i] = a.Trigger
	}

	results, err := d.store.TriggersFired(roundCtx, batch)
	if err != nil {
		slog.Error("triggers fired failed", "error", err)
		return
	}
	slog.Info("dispatched triggers", "acquired", len(acquired), "fired", len(results))
}
