package triggerstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"go.triggerstore.dev/internal/triggerstore"
	"go.triggerstore.dev/internal/triggerstore/catalog"
	"go.triggerstore.dev/internal/triggerstore/delegate/sqlite"
	"go.triggerstore.dev/internal/triggerstore/executing"
	"go.triggerstore.dev/internal/triggerstore/filterbus"
	"go.triggerstore.dev/internal/triggerstore/jobtypes"
)

type fakeSignaler struct {
	woken chan time.Time
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{woken: make(chan time.Time, 16)}
}

func (f *fakeSignaler) SignalSchedulingChangeImmediately(t time.Time) {
	f.woken <- t
}

type harness struct {
	store    *triggerstore.Store
	delegate *sqlite.Delegate
	db       *sql.DB
	signaler *fakeSignaler
}

// newHarness opens an in-memory sqlite-backed store with the given catalog
// and job-type registrations, returning the harness alongside the raw *sql.DB
// used to seed trigger/job-detail rows directly (the base store's insert
// path isn't part of this component).
func newHarness(t *testing.T, register func(cat *catalog.Catalog, types *jobtypes.Registry)) *harness {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	d := sqlite.New(db)
	if err := d.CreateSchema(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	cat := catalog.New()
	types := jobtypes.New()
	register(cat, types)

	cfg := triggerstore.DefaultConfig()
	cfg.SchedulerID = "test-scheduler"

	signaler := newFakeSignaler()
	store := triggerstore.New(cfg, d, cat, filterbus.New(), executing.New(), types, signaler, nil)

	return &harness{store: store, delegate: d, db: db, signaler: signaler}
}

// seed inserts a job detail and a WAITING trigger directly.
func (h *harness) seed(t *testing.T, name, jobType string, fireTime time.Time) {
	t.Helper()
	ctx := context.Background()

	if _, err := h.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO job_details (job_group, job_name, job_type, durable, requests_recovery) VALUES (?, ?, ?, 0, 0)`,
		"default", name, jobType); err != nil {
		t.Fatalf("seed job detail: %v", err)
	}
	if _, err := h.db.ExecContext(ctx,
		`INSERT INTO triggers (trigger_group, trigger_name, job_group, job_name, next_fire_time, prev_fire_time, state, fire_instance, calendar_name)
		 VALUES (?, ?, ?, ?, ?, NULL, ?, NULL, NULL)`,
		"default", name, "default", name, fireTime.Format(time.RFC3339Nano), string(triggerstore.StateWaiting)); err != nil {
		t.Fatalf("seed trigger: %v", err)
	}
}

func triggerKey(name string) triggerstore.TriggerKey {
	return triggerstore.TriggerKey{Group: "default", Name: name}
}

func TestAcquireNextTriggers_PerTypeLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, func(cat *catalog.Catalog, types *jobtypes.Registry) {
		cat.Register("email.digest", catalog.Rule{Limit: 2})
		types.Register("email.digest")
	})

	now := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		h.seed(t, fmt.Sprintf("digest-%d", i), "email.digest", now)
	}

	acquired, err := h.store.AcquireNextTriggers(ctx, time.Now(), 10, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(acquired) != 2 {
		t.Fatalf("expected per-type limit of 2 to cap acquisition, got %d", len(acquired))
	}
}

func TestAcquireNextTriggers_GroupMutualExclusion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, func(cat *catalog.Catalog, types *jobtypes.Registry) {
		cat.Register("export.csv", catalog.Rule{Group: "bulk-io"})
		cat.Register("export.pdf", catalog.Rule{Group: "bulk-io"})
		types.Register("export.csv")
		types.Register("export.pdf")
	})

	now := time.Now().Add(-time.Minute)
	h.seed(t, "csv-1", "export.csv", now)
	h.seed(t, "pdf-1", "export.pdf", now)

	acquired, err := h.store.AcquireNextTriggers(ctx, time.Now(), 10, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(acquired) != 1 {
		t.Fatalf("expected group mutual exclusion to admit only 1 of 2 group members, got %d", len(acquired))
	}
}

func TestAcquireNextTriggers_DisallowAnySingleton(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, func(cat *catalog.Catalog, types *jobtypes.Registry) {
		cat.Register("warehouse.sync", catalog.Rule{DisallowAny: true})
		types.Register("warehouse.sync")
	})

	now := time.Now().Add(-time.Minute)
	h.seed(t, "sync-1", "warehouse.sync", now)
	h.seed(t, "sync-2", "warehouse.sync", now)

	acquired, err := h.store.AcquireNextTriggers(ctx, time.Now(), 10, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(acquired) != 1 {
		t.Fatalf("expected singleton rule to admit only 1 trigger, got %d", len(acquired))
	}
}

func TestAcquireNextTriggers_UnresolvableTypeIsolatesTriggerToError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, func(cat *catalog.Catalog, types *jobtypes.Registry) {
		types.Register("email.digest")
		// "ghost.job" intentionally left unregistered.
	})

	now := time.Now().Add(-time.Minute)
	h.seed(t, "ghost-1", "ghost.job", now)
	h.seed(t, "digest-1", "email.digest", now)

	acquired, err := h.store.AcquireNextTriggers(ctx, time.Now(), 10, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(acquired) != 1 {
		t.Fatalf("expected the resolvable trigger to still acquire, got %d acquired", len(acquired))
	}

	errored, err := h.delegate.GetTrigger(ctx, triggerKey("ghost-1"))
	if err != nil {
		t.Fatalf("get trigger: %v", err)
	}
	if errored.State != triggerstore.StateError {
		t.Errorf("expected unresolvable-type trigger to be isolated to ERROR, got %s", errored.State)
	}
}

func TestTriggersFiredAndComplete_ReleasesBlockedSiblings(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, func(cat *catalog.Catalog, types *jobtypes.Registry) {
		cat.Register("warehouse.sync", catalog.Rule{DisallowAny: true})
		types.Register("warehouse.sync")
	})

	now := time.Now().Add(-time.Minute)
	h.seed(t, "sync-1", "warehouse.sync", now)
	h.seed(t, "sync-2", "warehouse.sync", now)

	acquired, err := h.store.AcquireNextTriggers(ctx, time.Now(), 10, time.Minute)
	if err != nil || len(acquired) != 1 {
		t.Fatalf("acquire: %v (acquired=%d)", err, len(acquired))
	}

	batch := []*triggerstore.Trigger{acquired[0].Trigger}
	results, err := h.store.TriggersFired(ctx, batch)
	if err != nil {
		t.Fatalf("triggers fired: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 fire result, got %d", len(results))
	}

	blocked, err := h.delegate.GetTrigger(ctx, triggerKey("sync-2"))
	if err != nil {
		t.Fatalf("get trigger sync-2: %v", err)
	}
	if blocked.State != triggerstore.StateBlocked {
		t.Fatalf("expected sync-2 to be swept to BLOCKED while sync-1 executes, got %s", blocked.State)
	}

	result := results[0]
	if err := h.store.TriggeredJobComplete(ctx, result.Trigger.JobKey, result.JobType, result.Trigger.FireInstanceID); err != nil {
		t.Fatalf("triggered job complete: %v", err)
	}

	released, err := h.delegate.GetTrigger(ctx, triggerKey("sync-2"))
	if err != nil {
		t.Fatalf("get trigger sync-2 after complete: %v", err)
	}
	if released.State != triggerstore.StateWaiting {
		t.Errorf("expected sync-2 to cascade back to WAITING once sync-1 completed, got %s", released.State)
	}

	select {
	case <-h.signaler.woken:
	default:
		t.Error("expected completion with a released sibling to wake the dispatcher")
	}
}
