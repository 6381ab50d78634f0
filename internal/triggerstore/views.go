package triggerstore

import (
	"context"
	"time"

	"go.triggerstore.dev/internal/triggerstore/catalog"
)

// CatalogView is the read side of the concurrency catalog the engines
// depend on. Satisfied by *catalog.Catalog.
type CatalogView interface {
	Rule(jobType string) (catalog.Rule, bool)
	Limit(jobType string) (int, bool)
	Group(jobType string) (string, bool)
	GroupMembers(group string) []string
	DisallowsConcurrentExecution(jobType string) bool
}

// FilterSource is the read side of the acquisition filter bus. Satisfied
// by *filterbus.Bus. Declared here (instead of importing the filterbus
// package) because filterbus has no triggerstore dependency and a single
// method interface is simpler to satisfy structurally.
type FilterSource interface {
	Excluded() map[string]struct{}
}

// QueueStateContext is the snapshot handed to queue-state subscribers on
// every added/executing/completed event.
type QueueStateContext struct {
	ThreadCount        int
	WaitingCount       int64
	BlockedCount       int64
	TotalCount         int64
	CurrentlyExecuting []ExecutingEntry
}

// QueueStatePublisher fans a queue-state snapshot out to subscribers.
// Satisfied by *queuestate.Publisher. Declared here for the same reason
// as ExecutingView: the concrete implementation needs this package's
// types and would otherwise create an import cycle.
type QueueStatePublisher interface {
	PublishAdded(ctx context.Context, qs QueueStateContext)
	PublishExecuting(ctx context.Context, qs QueueStateContext)
	PublishCompleted(ctx context.Context, qs QueueStateContext)
}

// ExecutingView is the read/write surface of the executing-jobs table the
// engines depend on. Satisfied by *executing.Table. Declared here instead
// of importing package executing, which itself depends on this package's
// types and would otherwise create an import cycle.
type ExecutingView interface {
	Add(jobKey JobKey, jobType string, jobDetail *JobDetail, startTime time.Time)
	Remove(jobKey JobKey)
	CountByType(jobType string) int
	HasAnyOfTypes(types map[string]struct{}) bool
	Contains(jobKey JobKey) bool
	Len() int
	Snapshot() []ExecutingEntry
}
