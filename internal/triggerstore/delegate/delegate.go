// Package delegate defines the filtered-query plumbing the acquisition and
// fire/complete engines use against a SQL backend: the (excluded types,
// remaining limits) snapshot, a minimal database/sql-shaped querier, and
// shared table/column names. The persistence contract itself
// (triggerstore.Delegate) lives in the root package to avoid an import
// cycle with backend implementations that need the core's types.
package delegate

import (
	"context"
	"database/sql"
)

// Querier is satisfied by both *sql.DB and *sql.Tx. Backends hold one of
// these instead of a concrete *sql.DB so WithTx can rebind the same
// implementation to a transaction without duplicating every method.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FilterSnapshot is the (excluded types, remaining limits) pair the
// acquisition engine computes once per round from the concurrency
// catalog, the filter bus, and the executing table.
type FilterSnapshot struct {
	// Excluded job types must not appear in any row the delegate returns.
	Excluded map[string]struct{}

	// Limits maps a job type to how many more rows of that type may be
	// returned in this round. A type present in Excluded is never also in
	// Limits. The delegate does not enforce Limits against a running
	// count — it only uses it to decide row order/LIMIT hints; the
	// caller (the acquisition engine) gates the actual count.
	Limits map[string]int
}

// NewFilterSnapshot returns an empty, ready-to-use snapshot.
func NewFilterSnapshot() FilterSnapshot {
	return FilterSnapshot{
		Excluded: make(map[string]struct{}),
		Limits:   make(map[string]int),
	}
}

// JobTypeResolver resolves a trigger's job key (by group/name, to avoid
// this package depending on the root package's types) to its job type
// string. Needed by SelectBlockedTriggerCount because a trigger is
// "blocked" relative to its own type's current cap.
type JobTypeResolver interface {
	ResolveJobType(ctx context.Context, jobGroup, jobName string) (string, error)
}
