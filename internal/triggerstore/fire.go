package triggerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.triggerstore.dev/internal/common/metrics"
)

// FireResult is what TriggerFired returns for a single trigger: the
// resolved job detail the dispatcher should invoke, or a nil JobDetail if
// the trigger was raced away (canceled, stolen, or its calendar vanished)
// and should simply be skipped.
type FireResult struct {
	Trigger   *Trigger
	JobDetail *JobDetail
	JobType   string
}

// TriggersFired is the override of "triggers fired": it runs under the
// trigger-access lock, fires each trigger in the batch, and validates
// that at least one of them actually landed in EXECUTING before
// returning — a batch where none did indicates every trigger in it raced
// away, which the base's non-managed-lock wrapper should retry.
func (s *Store) TriggersFired(ctx context.Context, batch []*Trigger) ([]*FireResult, error) {
	s.triggerAccessMu.Lock()
	defer s.triggerAccessMu.Unlock()

	results := make([]*FireResult, 0, len(batch))
	for _, t := range batch {
		result, err := s.triggerFired(ctx, t)
		if err != nil {
			return results, err
		}
		if result != nil {
			results = append(results, result)
		}
	}

	if len(batch) > 0 {
		fired, err := s.delegate.SelectExecutingFiredTriggers(ctx, s.cfg.SchedulerID)
		if err != nil {
			return results, WrapPersistence("select executing fired triggers", err)
		}
		if len(fired) == 0 {
			return results, fmt.Errorf("triggers fired: validator found no EXECUTING rows for scheduler %q after firing %d trigger(s)", s.cfg.SchedulerID, len(batch))
		}
	}

	if len(results) > 0 {
		s.publishExecuting(ctx)
	}
	return results, nil
}

// triggerFired implements the single-trigger TriggerFired algorithm.
// Returns (nil, nil) when the trigger should be skipped (raced away,
// canceled, or its calendar disappeared) rather than fired.
func (s *Store) triggerFired(ctx context.Context, t *Trigger) (*FireResult, error) {
	current, err := s.delegate.GetTrigger(ctx, t.Key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, WrapPersistence("get trigger", err)
	}
	if current.State != StateAcquired {
		return nil, nil // canceled or stolen since acquisition
	}

	detail, err := s.delegate.GetJobDetail(ctx, current.JobKey)
	if err != nil {
		if setErr := s.delegate.SetTriggerError(ctx, current.Key); setErr != nil {
			return nil, WrapPersistence("set trigger error", setErr)
		}
		return nil, nil
	}

	if current.CalendarName != "" {
		exists, err := s.delegate.CalendarExists(ctx, current.CalendarName)
		if err != nil {
			return nil, WrapPersistence("calendar exists", err)
		}
		if !exists {
			return nil, nil
		}
	}

	if err := s.delegate.UpdateFiredTriggerState(ctx, current.FireInstanceID, StateExecuting); err != nil {
		return nil, WrapPersistence("update fired trigger state", err)
	}

	// The trigger's own triggered() computation of its next fire time is
	// a base-store responsibility (misfire policy, repeat interval,
	// schedule algebra); here we only decide the post-fire target state
	// given whatever next fire time the base already computed.
	nextFireTime := current.NextFireTime

	jobType := detail.JobType
	switch {
	case nextFireTime.IsZero():
		if err := s.delegate.SetTriggerState(ctx, current.Key, StateComplete); err != nil {
			return nil, WrapPersistence("set trigger complete", err)
		}
		metrics.FireTriggersFired.WithLabelValues(jobType, "complete").Inc()
	case s.jobAllowed(jobType, make(map[string]int)):
		if err := s.delegate.SetTriggerState(ctx, current.Key, StateWaiting); err != nil {
			return nil, WrapPersistence("set trigger waiting", err)
		}
		metrics.FireTriggersFired.WithLabelValues(jobType, "waiting").Inc()
	default:
		if err := s.delegate.SetTriggerState(ctx, current.Key, StateBlocked); err != nil {
			return nil, WrapPersistence("set trigger blocked", err)
		}
		metrics.FireTriggersFired.WithLabelValues(jobType, "blocked").Inc()
	}

	startTime := time.Now()
	s.executing.Add(current.JobKey, jobType, detail, startTime)

	// A DisallowAny or group member now occupies its slot regardless of
	// which branch above fired the trigger into: the common single-acquire
	// case hits the WAITING branch (the executing table was still empty at
	// the jobAllowed check), but siblings still need sweeping to BLOCKED
	// the moment this one starts executing. Limit-only types skip this:
	// partial capacity lets other same-type triggers still run below the
	// cap, enforced per-candidate by jobAllowed rather than a blanket sweep.
	if s.isExclusive(jobType) {
		if err := s.sweepSiblingsToBlocked(ctx, jobType, current.Key); err != nil {
			return nil, err
		}
	}

	return &FireResult{
		Trigger:   current,
		JobDetail: detail,
		JobType:   jobType,
	}, nil
}

// isExclusive reports whether jobType occupies a slot no sibling may share
// while it executes: a DisallowAny singleton, or a member of a mutual-
// exclusion group. Limit-capped types are not exclusive in this sense;
// below the cap another trigger of the same type may still run.
func (s *Store) isExclusive(jobType string) bool {
	if s.catalog.DisallowsConcurrentExecution(jobType) {
		return true
	}
	_, ok := s.catalog.Group(jobType)
	return ok
}

// sweepSiblingsToBlocked transitions every sibling trigger of jobType (or
// its concurrency group) other than except into BLOCKED/PAUSED_BLOCKED,
// since a member of the same cap is now occupying the slot.
func (s *Store) sweepSiblingsToBlocked(ctx context.Context, jobType string, except TriggerKey) error {
	var members []string
	if group, ok := s.catalog.Group(jobType); ok {
		members = s.catalog.GroupMembers(group)
	}
	if err := s.delegate.SweepToBlocked(ctx, jobType, members, except); err != nil {
		return WrapPersistence("sweep to blocked", err)
	}
	if len(members) > 0 {
		metrics.FireSiblingsBlocked.WithLabelValues(jobType).Add(float64(len(members)))
	}
	return nil
}

// TriggeredJobComplete is the override of "triggered job complete": the
// base store's own bookkeeping (trigger deletion for non-repeating jobs,
// instance recovery flags) happens independently of this override. Here
// we remove the executing entry, cascade any sibling sweep back to
// WAITING/PAUSED now that this slot is free, emit the completed event,
// and wake the dispatcher if work remains.
func (s *Store) TriggeredJobComplete(ctx context.Context, jobKey JobKey, jobType string, fireInstanceID string) error {
	s.triggerAccessMu.Lock()
	defer s.triggerAccessMu.Unlock()

	// The executing-entry removal happens before the sibling sweep so a
	// subsequent JobAllowed call (from a concurrent acquisition round)
	// correctly sees the freed slot.
	s.executing.Remove(jobKey)

	hasConcurrencyAttr := s.catalog.DisallowsConcurrentExecution(jobType)
	var members []string
	if group, ok := s.catalog.Group(jobType); ok {
		hasConcurrencyAttr = true
		members = s.catalog.GroupMembers(group)
	}
	if _, ok := s.catalog.Limit(jobType); ok {
		hasConcurrencyAttr = true
	}

	var changed int64
	if hasConcurrencyAttr {
		n, err := s.delegate.SweepToWaiting(ctx, jobType, members)
		if err != nil {
			return WrapPersistence("sweep to waiting", err)
		}
		changed = n
		if changed > 0 {
			metrics.CompleteSiblingsReleased.WithLabelValues(jobType).Add(float64(changed))
		}
	}

	if fireInstanceID != "" {
		if err := s.delegate.DeleteFiredTrigger(ctx, fireInstanceID); err != nil {
			return WrapPersistence("delete fired trigger", err)
		}
	}

	s.publishCompleted(ctx)

	if changed > 0 {
		s.signalImmediately()
	} else {
		waiting, err := s.GetWaitingTriggersCount(ctx)
		if err == nil && waiting > 0 {
			s.signalImmediately()
		}
	}
	return nil
}
