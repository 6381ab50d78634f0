package sqlite_test

import (
	"context"
	"testing"
	"time"

	"go.triggerstore.dev/internal/triggerstore"
	"go.triggerstore.dev/internal/triggerstore/delegate"
	"go.triggerstore.dev/internal/triggerstore/delegate/sqlite"
)

func openTestDelegate(t *testing.T) *sqlite.Delegate {
	t.Helper()
	d, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := d.CreateSchema(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return d
}

func TestCreateSchema_IsIdempotent(t *testing.T) {
	d := openTestDelegate(t)
	if err := d.CreateSchema(context.Background()); err != nil {
		t.Errorf("expected CreateSchema to be safe to call twice, got: %v", err)
	}
}

func TestGetTrigger_NotFound(t *testing.T) {
	d := openTestDelegate(t)
	_, err := d.GetTrigger(context.Background(), triggerstore.TriggerKey{Group: "g", Name: "missing"})
	if err != triggerstore.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCalendarExists_Unknown(t *testing.T) {
	d := openTestDelegate(t)
	exists, err := d.CalendarExists(context.Background(), "nope")
	if err != nil {
		t.Fatalf("calendar exists: %v", err)
	}
	if exists {
		t.Error("expected unknown calendar to not exist")
	}
}

func TestSelectWaitingTriggerCount_EmptyStore(t *testing.T) {
	d := openTestDelegate(t)
	count, err := d.SelectWaitingTriggerCount(context.Background(), delegate.NewFilterSnapshot())
	if err != nil {
		t.Fatalf("select waiting trigger count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 waiting triggers, got %d", count)
	}
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	d := openTestDelegate(t)
	ctx := context.Background()

	err := d.WithTx(ctx, func(tx triggerstore.Delegate) error {
		return tx.SetTriggerError(ctx, triggerstore.TriggerKey{Group: "g", Name: "missing"})
	})
	if err != nil {
		t.Errorf("expected WithTx to commit a no-op update successfully, got: %v", err)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	d := openTestDelegate(t)
	ctx := context.Background()

	boom := context.DeadlineExceeded
	err := d.WithTx(ctx, func(tx triggerstore.Delegate) error {
		return boom
	})
	if err != boom {
		t.Errorf("expected WithTx to propagate the inner error, got %v", err)
	}
}

func TestAcquireTrigger_FailsWhenNotWaiting(t *testing.T) {
	d := openTestDelegate(t)
	ctx := context.Background()

	ok, err := d.AcquireTrigger(ctx, triggerstore.TriggerKey{Group: "g", Name: "missing"}, time.Now(), "fire-1")
	if err != nil {
		t.Fatalf("acquire trigger: %v", err)
	}
	if ok {
		t.Error("expected acquiring a nonexistent trigger to fail the CAS")
	}
}
