package triggerstore

import (
	"context"
	"log/slog"
	"sync"

	"go.triggerstore.dev/internal/common/metrics"
	"go.triggerstore.dev/internal/triggerstore/delegate"
)

// Config carries the tunables the store needs beyond what it reads from
// its collaborators at call time.
type Config struct {
	// SchedulerID identifies this instance in fired-trigger rows and logs.
	SchedulerID string

	// MaxAcquireRetries bounds the acquisition retry loop (design default
	// is 3: ask, gate, and if nothing was acquired, ask again).
	MaxAcquireRetries int

	// ThreadCount is the dispatcher's worker pool size, read once at
	// construction and reported verbatim in every queue-state event.
	ThreadCount int
}

// DefaultConfig returns sensible defaults for Config's zero-value fields.
func DefaultConfig() Config {
	return Config{MaxAcquireRetries: 3, ThreadCount: 1}
}

// Store is the persistent, concurrency-aware trigger store. It overrides
// a generic transactional job-store base's acquisition and fire/complete
// operations to enforce per-type and per-group concurrency caps and to
// publish queue-state notifications; everything else (lock handling,
// calendar storage, misfire policy, instance recovery) belongs to that
// base and is out of scope here.
type Store struct {
	cfg Config
	log *slog.Logger

	// triggerAccessMu serializes AcquireNextTriggers, TriggersFired, and
	// TriggeredJobComplete from this instance's own goroutines. The SQL
	// CAS in the delegate is the second line of defense against
	// cross-instance races; this mutex is the first against
	// same-instance ones.
	triggerAccessMu sync.Mutex

	delegate   Delegate
	catalog    CatalogView
	filters    FilterSource
	executing  ExecutingView
	typeLoader TypeLoader
	signaler   SchedulerSignaler
	publisher  QueueStatePublisher
}

// New wires the store's collaborators. All arguments are required except
// publisher, which may be nil (events are then silently dropped).
func New(cfg Config, d Delegate, cat CatalogView, filters FilterSource, exec ExecutingView, typeLoader TypeLoader, signaler SchedulerSignaler, publisher QueueStatePublisher) *Store {
	if cfg.MaxAcquireRetries <= 0 {
		cfg.MaxAcquireRetries = 3
	}
	return &Store{
		cfg:        cfg,
		log:        slog.Default().With("component", "triggerstore"),
		delegate:   d,
		catalog:    cat,
		filters:    filters,
		executing:  exec,
		typeLoader: typeLoader,
		signaler:   signaler,
		publisher:  publisher,
	}
}

// GetWaitingTriggersCount reports WAITING triggers that would currently
// dispatch (i.e. excludes types the filter bus or catalog have
// temporarily or permanently closed off).
func (s *Store) GetWaitingTriggersCount(ctx context.Context) (int64, error) {
	n, err := s.delegate.SelectWaitingTriggerCount(ctx, s.filterSnapshot())
	return n, WrapPersistence("get waiting triggers count", err)
}

// GetBlockedTriggersCount reports BLOCKED/PAUSED_BLOCKED triggers.
func (s *Store) GetBlockedTriggersCount(ctx context.Context) (int64, error) {
	n, err := s.delegate.SelectBlockedTriggerCount(ctx, s)
	return n, WrapPersistence("get blocked triggers count", err)
}

// GetTotalWaitingTriggersCount reports WAITING+BLOCKED triggers under the
// current filter snapshot.
func (s *Store) GetTotalWaitingTriggersCount(ctx context.Context) (int64, error) {
	n, err := s.delegate.SelectTotalWaitingTriggerCount(ctx, s.filterSnapshot())
	return n, WrapPersistence("get total waiting triggers count", err)
}

// GetJobCounts reports, per job type, the count of dispatchable WAITING
// triggers of that type.
func (s *Store) GetJobCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := s.delegate.SelectJobTypeCounts(ctx, s.filterSnapshot())
	return counts, WrapPersistence("get job counts", err)
}

// GetJobs returns up to maxCount queued triggers starting at offset,
// alongside a snapshot of everything currently executing (sorted by
// start time ascending). Callers present the executing snapshot first.
func (s *Store) GetJobs(ctx context.Context, maxCount, offset int) ([]*Trigger, []ExecutingEntry, error) {
	executing := s.executing.Snapshot()
	queued, err := s.delegate.SelectJobs(ctx, maxCount, offset)
	if err != nil {
		return nil, nil, WrapPersistence("get jobs", err)
	}
	return queued, executing, nil
}

// ResolveJobType implements delegate.JobTypeResolver so
// SelectBlockedTriggerCount can classify blocked triggers by type.
func (s *Store) ResolveJobType(ctx context.Context, jobGroup, jobName string) (string, error) {
	detail, err := s.delegate.GetJobDetail(ctx, JobKey{Group: jobGroup, Name: jobName})
	if err != nil {
		return "", err
	}
	return detail.JobType, nil
}

// filterSnapshot builds the (excluded, limits) pair from the concurrency
// catalog, the acquisition filter bus, and the executing table. Shared by
// the acquisition engine and the read-only count queries so that "how
// much work is dispatchable right now" always means the same thing.
func (s *Store) filterSnapshot() delegate.FilterSnapshot {
	excluded := s.filters.Excluded()
	limits := make(map[string]int)

	for _, group := range catalogGroups(s.catalog) {
		members := s.catalog.GroupMembers(group)
		if s.executing.HasAnyOfTypes(toSet(members)) {
			for _, t := range members {
				excluded[t] = struct{}{}
			}
		} else {
			for _, t := range members {
				limits[t] = 1
			}
		}
	}

	for _, jobType := range catalogLimitedTypes(s.catalog) {
		limit, ok := s.catalog.Limit(jobType)
		if !ok {
			continue
		}
		remaining := limit - s.executing.CountByType(jobType)
		if remaining < 0 {
			remaining = 0
		}
		if remaining == 0 {
			excluded[jobType] = struct{}{}
		} else {
			limits[jobType] = remaining
		}
	}

	return delegate.FilterSnapshot{Excluded: excluded, Limits: limits}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// catalogGroups reports the group names the catalog carries, if it
// exposes them; CatalogView itself doesn't need AllGroups for acquisition
// gating, so the method is accessed through this narrow optional-capability
// check instead of widening the interface every caller must satisfy.
func catalogGroups(cat CatalogView) []string {
	type groupLister interface{ AllGroups() []string }
	if gl, ok := cat.(groupLister); ok {
		return gl.AllGroups()
	}
	return nil
}

// catalogLimitedTypes reports the job types carrying a declared numeric
// Limit, if the catalog exposes them, via the same narrow optional-
// capability check as catalogGroups.
func catalogLimitedTypes(cat CatalogView) []string {
	type limitedTypeLister interface{ AllLimitedTypes() []string }
	if ll, ok := cat.(limitedTypeLister); ok {
		return ll.AllLimitedTypes()
	}
	return nil
}

// signalImmediately wakes the dispatcher with the sentinel past
// timestamp, the interface quirk of the base signaler preserved exactly
// per the design notes.
func (s *Store) signalImmediately() {
	if s.signaler == nil {
		return
	}
	s.signaler.SignalSchedulingChangeImmediately(SentinelWakeTime)
}

func (s *Store) publishAdded(ctx context.Context) {
	s.publish(ctx, func(c context.Context, qs QueueStateContext) { s.publisher.PublishAdded(c, qs) })
}

func (s *Store) publishExecuting(ctx context.Context) {
	s.publish(ctx, func(c context.Context, qs QueueStateContext) { s.publisher.PublishExecuting(c, qs) })
}

func (s *Store) publishCompleted(ctx context.Context) {
	s.publish(ctx, func(c context.Context, qs QueueStateContext) { s.publisher.PublishCompleted(c, qs) })
}

// publish builds a QueueStateContext snapshot and hands it to fn.
// Publication errors are logged and swallowed — observability must never
// fail scheduling.
func (s *Store) publish(ctx context.Context, fn func(context.Context, QueueStateContext)) {
	if s.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("queue-state publish panicked", "panic", r)
		}
	}()

	snapshot := s.filterSnapshot()
	waiting, err := s.delegate.SelectWaitingTriggerCount(ctx, snapshot)
	if err != nil {
		s.log.Warn("queue-state: select waiting count failed", "error", err)
	}
	blocked, err := s.delegate.SelectBlockedTriggerCount(ctx, s)
	if err != nil {
		s.log.Warn("queue-state: select blocked count failed", "error", err)
	}
	total, err := s.delegate.SelectTotalWaitingTriggerCount(ctx, snapshot)
	if err != nil {
		s.log.Warn("queue-state: select total count failed", "error", err)
	}

	metrics.QueueStateWaiting.Set(float64(waiting))
	metrics.QueueStateBlocked.Set(float64(blocked))
	metrics.QueueStateExecuting.Set(float64(s.executing.Len()))

	fn(ctx, QueueStateContext{
		ThreadCount:        s.cfg.ThreadCount,
		WaitingCount:       waiting,
		BlockedCount:       blocked,
		TotalCount:         total + int64(s.executing.Len()),
		CurrentlyExecuting: s.executing.Snapshot(),
	})
}
