package triggerstore

import (
	"context"
	"time"

	"go.triggerstore.dev/internal/triggerstore/delegate"
)

// Delegate is the filtered persistence contract the acquisition and
// fire/complete engines depend on. It extends plain CRUD-shaped trigger
// storage with queries that accept an exclusion set and a per-type
// remaining-limit map, so concurrency policy is pushed into the SQL
// itself rather than filtered out after a full table scan.
//
// Declared here rather than in package delegate so backend
// implementations (delegate/postgres, delegate/sqlite) can import this
// package for its types without creating an import cycle.
type Delegate interface {
	// SelectTriggersToAcquire returns candidate triggers due no later
	// than noLaterThan, excluding types in snapshot.Excluded, ordered by
	// next-fire-time ascending then by trigger key as a stable tie-break.
	SelectTriggersToAcquire(ctx context.Context, noLaterThan time.Time, maxCount int, snapshot delegate.FilterSnapshot) ([]*Trigger, error)

	// SelectWaitingTriggerCount counts WAITING triggers dispatchable
	// under snapshot.
	SelectWaitingTriggerCount(ctx context.Context, snapshot delegate.FilterSnapshot) (int64, error)

	// SelectBlockedTriggerCount counts BLOCKED/PAUSED_BLOCKED triggers,
	// resolving each trigger's job type through resolver.
	SelectBlockedTriggerCount(ctx context.Context, resolver delegate.JobTypeResolver) (int64, error)

	// SelectTotalWaitingTriggerCount counts WAITING+BLOCKED triggers
	// under snapshot.
	SelectTotalWaitingTriggerCount(ctx context.Context, snapshot delegate.FilterSnapshot) (int64, error)

	// SelectJobTypeCounts returns, per job type, the count of WAITING
	// triggers of that type not excluded by snapshot.
	SelectJobTypeCounts(ctx context.Context, snapshot delegate.FilterSnapshot) (map[string]int64, error)

	// SelectJobs returns up to maxCount queued (non-executing) triggers
	// starting at offset, ordered by next-fire-time ascending.
	SelectJobs(ctx context.Context, maxCount, offset int) ([]*Trigger, error)

	// GetTrigger re-retrieves a single trigger by key. Returns
	// ErrNotFound if it no longer exists.
	GetTrigger(ctx context.Context, key TriggerKey) (*Trigger, error)

	// GetJobDetail retrieves the job detail a trigger points at.
	GetJobDetail(ctx context.Context, key JobKey) (*JobDetail, error)

	// CalendarExists reports whether a named calendar is present.
	CalendarExists(ctx context.Context, name string) (bool, error)

	// AcquireTrigger performs the compare-and-swap from WAITING to
	// ACQUIRED, fenced on the trigger's current next-fire-time.
	AcquireTrigger(ctx context.Context, key TriggerKey, expectedNextFireTime time.Time, fireInstanceID string) (bool, error)

	// InsertFiredTrigger records a new in-flight firing in state ACQUIRED.
	InsertFiredTrigger(ctx context.Context, ft *FiredTrigger) error

	// UpdateFiredTriggerState transitions a fired-trigger row's state.
	UpdateFiredTriggerState(ctx context.Context, fireInstanceID string, state TriggerState) error

	// DeleteFiredTrigger removes the in-flight firing row at completion.
	DeleteFiredTrigger(ctx context.Context, fireInstanceID string) error

	// SelectExecutingFiredTriggers returns fired-trigger rows owned by
	// schedulerID currently in EXECUTING state.
	SelectExecutingFiredTriggers(ctx context.Context, schedulerID string) ([]*FiredTrigger, error)

	// SetTriggerState unconditionally sets a trigger's state.
	SetTriggerState(ctx context.Context, key TriggerKey, state TriggerState) error

	// SetTriggerError transitions a single trigger to ERROR.
	SetTriggerError(ctx context.Context, key TriggerKey) error

	// SweepToBlocked transitions sibling triggers of jobType (and
	// members) from WAITING->BLOCKED, ACQUIRED->BLOCKED,
	// PAUSED->PAUSED_BLOCKED, excluding except.
	SweepToBlocked(ctx context.Context, jobType string, members []string, except TriggerKey) error

	// SweepToWaiting transitions sibling triggers of jobType (and
	// members) from BLOCKED->WAITING, PAUSED_BLOCKED->PAUSED. Returns
	// the number of rows changed.
	SweepToWaiting(ctx context.Context, jobType string, members []string) (int64, error)

	// WithTx runs fn against a delegate bound to a single transaction,
	// committing on success and rolling back on error or panic.
	WithTx(ctx context.Context, fn func(tx Delegate) error) error

	// CreateSchema creates the trigger-store tables if they don't exist.
	CreateSchema(ctx context.Context) error
}
