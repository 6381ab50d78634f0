// Package triggerstore implements a persistent, concurrency-aware job
// scheduler store: it owns the durable trigger table, decides which
// triggers may acquire next, enforces per-type and per-group concurrency
// caps, and publishes queue-state notifications.
package triggerstore

import "time"

// TriggerState is a closed set of strings persisted as-is at the database
// boundary. The literal values must never change: the delegate backends
// compare and store these exact strings.
type TriggerState string

const (
	StateWaiting       TriggerState = "WAITING"
	StateAcquired      TriggerState = "ACQUIRED"
	StateExecuting     TriggerState = "EXECUTING"
	StateComplete      TriggerState = "COMPLETE"
	StateBlocked       TriggerState = "BLOCKED"
	StatePaused        TriggerState = "PAUSED"
	StatePausedBlocked TriggerState = "PAUSED_BLOCKED"
	StateError         TriggerState = "ERROR"
)

// ParseTriggerState renders a stored string back into a TriggerState,
// rejecting anything outside the closed set so a corrupt row surfaces as
// an error instead of silently matching no branch downstream.
func ParseTriggerState(s string) (TriggerState, bool) {
	switch TriggerState(s) {
	case StateWaiting, StateAcquired, StateExecuting, StateComplete,
		StateBlocked, StatePaused, StatePausedBlocked, StateError:
		return TriggerState(s), true
	default:
		return "", false
	}
}

// TriggerKey identifies a trigger by group and name.
type TriggerKey struct {
	Group string
	Name  string
}

// JobKey identifies a job detail by group and name.
type JobKey struct {
	Group string
	Name  string
}

func (k JobKey) String() string {
	return k.Group + "." + k.Name
}

// Trigger is a durable record describing when and for which job a fire
// should occur.
type Trigger struct {
	Key            TriggerKey
	JobKey         JobKey
	NextFireTime   time.Time
	PrevFireTime   time.Time
	State          TriggerState
	FireInstanceID string
	CalendarName   string
}

// JobDetail describes the job a trigger points at. Owned conceptually by
// the generic base store; the concurrency engine only reads it.
type JobDetail struct {
	Key              JobKey
	JobType          string
	Data             map[string]string
	Durable          bool
	RequestsRecovery bool
}

// FiredTrigger represents an in-flight firing: created at acquisition,
// deleted at completion.
type FiredTrigger struct {
	FireInstanceID string
	SchedulerID    string
	State          TriggerState // ACQUIRED then EXECUTING
	TriggerKey     TriggerKey
	JobKey         JobKey
	StartTime      time.Time
}

// AcquiredTrigger bundles a trigger with its resolved job type, returned
// by the acquisition engine.
type AcquiredTrigger struct {
	Trigger *Trigger
	JobType string
}

// ExecutingEntry is a snapshot row of something currently running,
// produced by the executing-jobs table and the queue-state publisher.
type ExecutingEntry struct {
	JobKey    JobKey
	JobType   string
	StartTime time.Time
}

// SchedulerSignaler wakes the dispatcher immediately instead of waiting for
// its normal poll interval. The core always passes SentinelWakeTime as the
// candidate next-fire-time, an interface quirk of the base signaler that
// must be preserved exactly.
type SchedulerSignaler interface {
	SignalSchedulingChangeImmediately(candidateNextFireTime time.Time)
}

// SentinelWakeTime is the sentinel far-past timestamp passed to
// SignalSchedulingChangeImmediately to force an immediate re-evaluation.
var SentinelWakeTime = time.Date(1982, time.June, 28, 0, 0, 0, 0, time.UTC)

// TypeLoader resolves a job-type string to the fact that it can be loaded
// at all. The concurrency engine does not need the runtime type itself,
// only whether resolution succeeds and what concurrency metadata the type
// declares — both captured by CatalogView's Rule lookup plus this check.
type TypeLoader interface {
	// Resolve returns an error if the job type string cannot be resolved.
	Resolve(jobType string) error
}
