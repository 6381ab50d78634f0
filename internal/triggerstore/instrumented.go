package triggerstore

import (
	"context"
	"time"

	"go.triggerstore.dev/internal/common/repository"
	"go.triggerstore.dev/internal/triggerstore/delegate"
)

// instrumentedDelegate wraps a Delegate so every call records duration,
// success/failure counts, and slow-query logging through the shared
// repository.Instrument helper, without each backend having to repeat
// that bookkeeping itself.
type instrumentedDelegate struct {
	inner Delegate
}

// Instrument wraps d so its calls are observed through
// repository.Instrument. Construct the concrete postgres/sqlite delegate,
// then wrap it once before handing it to New.
func Instrument(d Delegate) Delegate {
	return &instrumentedDelegate{inner: d}
}

const triggersTable = "triggers"

func (d *instrumentedDelegate) SelectTriggersToAcquire(ctx context.Context, noLaterThan time.Time, maxCount int, snapshot delegate.FilterSnapshot) ([]*Trigger, error) {
	return repository.Instrument(ctx, triggersTable, "select_triggers_to_acquire", func() ([]*Trigger, error) {
		return d.inner.SelectTriggersToAcquire(ctx, noLaterThan, maxCount, snapshot)
	})
}

func (d *instrumentedDelegate) SelectWaitingTriggerCount(ctx context.Context, snapshot delegate.FilterSnapshot) (int64, error) {
	return repository.Instrument(ctx, triggersTable, "select_waiting_trigger_count", func() (int64, error) {
		return d.inner.SelectWaitingTriggerCount(ctx, snapshot)
	})
}

func (d *instrumentedDelegate) SelectBlockedTriggerCount(ctx context.Context, resolver delegate.JobTypeResolver) (int64, error) {
	return repository.Instrument(ctx, triggersTable, "select_blocked_trigger_count", func() (int64, error) {
		return d.inner.SelectBlockedTriggerCount(ctx, resolver)
	})
}

func (d *instrumentedDelegate) SelectTotalWaitingTriggerCount(ctx context.Context, snapshot delegate.FilterSnapshot) (int64, error) {
	return repository.Instrument(ctx, triggersTable, "select_total_waiting_trigger_count", func() (int64, error) {
		return d.inner.SelectTotalWaitingTriggerCount(ctx, snapshot)
	})
}

func (d *instrumentedDelegate) SelectJobTypeCounts(ctx context.Context, snapshot delegate.FilterSnapshot) (map[string]int64, error) {
	return repository.Instrument(ctx, triggersTable, "select_job_type_counts", func() (map[string]int64, error) {
		return d.inner.SelectJobTypeCounts(ctx, snapshot)
	})
}

func (d *instrumentedDelegate) SelectJobs(ctx context.Context, maxCount, offset int) ([]*Trigger, error) {
	return repository.Instrument(ctx, triggersTable, "select_jobs", func() ([]*Trigger, error) {
		return d.inner.SelectJobs(ctx, maxCount, offset)
	})
}

func (d *instrumentedDelegate) GetTrigger(ctx context.Context, key TriggerKey) (*Trigger, error) {
	return repository.Instrument(ctx, triggersTable, "get_trigger", func() (*Trigger, error) {
		return d.inner.GetTrigger(ctx, key)
	})
}

func (d *instrumentedDelegate) GetJobDetail(ctx context.Context, key JobKey) (*JobDetail, error) {
	return repository.Instrument(ctx, "job_details", "get_job_detail", func() (*JobDetail, error) {
		return d.inner.GetJobDetail(ctx, key)
	})
}

func (d *instrumentedDelegate) CalendarExists(ctx context.Context, name string) (bool, error) {
	return repository.Instrument(ctx, "calendars", "calendar_exists", func() (bool, error) {
		return d.inner.CalendarExists(ctx, name)
	})
}

func (d *instrumentedDelegate) AcquireTrigger(ctx context.Context, key TriggerKey, expectedNextFireTime time.Time, fireInstanceID string) (bool, error) {
	return repository.Instrument(ctx, triggersTable, "acquire_trigger", func() (bool, error) {
		return d.inner.AcquireTrigger(ctx, key, expectedNextFireTime, fireInstanceID)
	})
}

func (d *instrumentedDelegate) InsertFiredTrigger(ctx context.Context, ft *FiredTrigger) error {
	return repository.InstrumentVoid(ctx, "fired_triggers", "insert_fired_trigger", func() error {
		return d.inner.InsertFiredTrigger(ctx, ft)
	})
}

func (d *instrumentedDelegate) UpdateFiredTriggerState(ctx context.Context, fireInstanceID string, state TriggerState) error {
	return repository.InstrumentVoid(ctx, "fired_triggers", "update_fired_trigger_state", func() error {
		return d.inner.UpdateFiredTriggerState(ctx, fireInstanceID, state)
	})
}

func (d *instrumentedDelegate) DeleteFiredTrigger(ctx context.Context, fireInstanceID string) error {
	return repository.InstrumentVoid(ctx, "fired_triggers", "delete_fired_trigger", func() error {
		return d.inner.DeleteFiredTrigger(ctx, fireInstanceID)
	})
}

func (d *instrumentedDelegate) SelectExecutingFiredTriggers(ctx context.Context, schedulerID string) ([]*FiredTrigger, error) {
	return repository.Instrument(ctx, "fired_triggers", "select_executing_fired_triggers", func() ([]*FiredTrigger, error) {
		return d.inner.SelectExecutingFiredTriggers(ctx, schedulerID)
	})
}

func (d *instrumentedDelegate) SetTriggerState(ctx context.Context, key TriggerKey, state TriggerState) error {
	return repository.InstrumentVoid(ctx, triggersTable, "set_trigger_state", func() error {
		return d.inner.SetTriggerState(ctx, key, state)
	})
}

func (d *instrumentedDelegate) SetTriggerError(ctx context.Context, key TriggerKey) error {
	return repository.InstrumentVoid(ctx, triggersTable, "set_trigger_error", func() error {
		return d.inner.SetTriggerError(ctx, key)
	})
}

func (d *instrumentedDelegate) SweepToBlocked(ctx context.Context, jobType string, members []string, except TriggerKey) error {
	return repository.InstrumentVoid(ctx, triggersTable, "sweep_to_blocked", func() error {
		return d.inner.SweepToBlocked(ctx, jobType, members, except)
	})
}

func (d *instrumentedDelegate) SweepToWaiting(ctx context.Context, jobType string, members []string) (int64, error) {
	return repository.Instrument(ctx, triggersTable, "sweep_to_waiting", func() (int64, error) {
		return d.inner.SweepToWaiting(ctx, jobType, members)
	})
}

func (d *instrumentedDelegate) WithTx(ctx context.Context, fn func(tx Delegate) error) error {
	return repository.InstrumentVoid(ctx, triggersTable, "with_tx", func() error {
		return d.inner.WithTx(ctx, func(tx Delegate) error {
			return fn(Instrument(tx))
		})
	})
}

func (d *instrumentedDelegate) CreateSchema(ctx context.Context) error {
	return repository.InstrumentVoid(ctx, triggersTable, "create_schema", func() error {
		return d.inner.CreateSchema(ctx)
	})
}
