package triggerstore

import (
	"context"
	"errors"
	"time"

	"go.triggerstore.dev/internal/common/metrics"
	"go.triggerstore.dev/internal/common/tsid"
)

// AcquireNextTriggers is the override of "acquire next trigger(s)": it
// builds the filter snapshot from the concurrency catalog, the
// acquisition filter bus, and the executing table, queries the delegate
// with that snapshot, and gates + promotes each candidate to ACQUIRED.
//
// noLaterThan bounds the due-time window; maxCount bounds the batch size;
// timeWindow extends the query horizon and also defines the batch-end
// cutoff once the first trigger acquires.
func (s *Store) AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]*AcquiredTrigger, error) {
	s.triggerAccessMu.Lock()
	defer s.triggerAccessMu.Unlock()

	roundStart := time.Now()
	defer func() {
		metrics.AcquireRoundDuration.Observe(time.Since(roundStart).Seconds())
	}()

	snapshot := s.filterSnapshot()
	localCounts := make(map[string]int)

	var acquired []*AcquiredTrigger
	var batchEnd time.Time
	attempt := 0

	for ; attempt < s.cfg.MaxAcquireRetries; attempt++ {
		candidates, err := s.delegate.SelectTriggersToAcquire(ctx, noLaterThan.Add(timeWindow), maxCount, snapshot)
		if err != nil {
			return acquired, WrapPersistence("select triggers to acquire", err)
		}

		acquiredThisRound := 0
		for _, candidate := range candidates {
			if err := ctx.Err(); err != nil {
				// Partial batches are allowed: whatever already acquired
				// is durably ACQUIRED and will be picked up next round.
				return acquired, nil
			}
			if len(acquired) >= maxCount {
				break
			}

			t, err := s.delegate.GetTrigger(ctx, candidate.Key)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue // raced away between select and now; skip
				}
				return acquired, WrapPersistence("re-retrieve trigger", err)
			}
			if t.State != StateWaiting {
				continue
			}

			jobType, err := s.resolveJobTypeForTrigger(ctx, t)
			if err != nil {
				if setErr := s.delegate.SetTriggerError(ctx, t.Key); setErr != nil {
					return acquired, WrapPersistence("set trigger error", setErr)
				}
				s.log.Warn("trigger job type failed to resolve, marked ERROR", "trigger", t.Key, "error", err)
				continue
			}

			if t.CalendarName != "" {
				exists, err := s.delegate.CalendarExists(ctx, t.CalendarName)
				if err != nil {
					return acquired, WrapPersistence("calendar exists", err)
				}
				if !exists {
					continue
				}
			}

			if !s.jobAllowed(jobType, localCounts) {
				metrics.AcquireGatedRejections.WithLabelValues(jobType, gateRejectionReason(s.catalog, jobType)).Inc()
				continue
			}

			if !batchEnd.IsZero() && t.NextFireTime.After(batchEnd) {
				break
			}

			fireInstanceID := tsid.Generate()
			ok, err := s.delegate.AcquireTrigger(ctx, t.Key, t.NextFireTime, fireInstanceID)
			if err != nil {
				return acquired, WrapPersistence("acquire trigger", err)
			}
			if !ok {
				continue // lost the CAS race to another instance
			}

			if err := s.delegate.InsertFiredTrigger(ctx, &FiredTrigger{
				FireInstanceID: fireInstanceID,
				SchedulerID:    s.cfg.SchedulerID,
				State:          StateAcquired,
				TriggerKey:     t.Key,
				JobKey:         t.JobKey,
				StartTime:      time.Now(),
			}); err != nil {
				return acquired, WrapPersistence("insert fired trigger", err)
			}

			t.State = StateAcquired
			t.FireInstanceID = fireInstanceID
			acquired = append(acquired, &AcquiredTrigger{Trigger: t, JobType: jobType})
			acquiredThisRound++
			metrics.AcquireTriggersAcquired.WithLabelValues(jobType).Inc()

			if batchEnd.IsZero() {
				fireTime := t.NextFireTime
				if fireTime.Before(time.Now()) {
					fireTime = time.Now()
				}
				batchEnd = fireTime.Add(timeWindow)
			}
		}

		if acquiredThisRound > 0 || len(acquired) >= maxCount {
			break
		}
	}

	metrics.AcquireRetries.Observe(float64(attempt))

	if len(acquired) > 0 {
		s.publishAdded(ctx)
	}
	return acquired, nil
}

// resolveJobTypeForTrigger retrieves the job detail and resolves its type
// string through the type loader.
func (s *Store) resolveJobTypeForTrigger(ctx context.Context, t *Trigger) (string, error) {
	detail, err := s.delegate.GetJobDetail(ctx, t.JobKey)
	if err != nil {
		return "", err
	}
	if s.typeLoader != nil {
		if err := s.typeLoader.Resolve(detail.JobType); err != nil {
			return "", err
		}
	}
	return detail.JobType, nil
}

// jobAllowed gates a single candidate against the currently-executing
// table plus localCounts (types already promoted earlier in this batch).
// Rules apply in order, first match wins.
func (s *Store) jobAllowed(jobType string, localCounts map[string]int) bool {
	if s.catalog.DisallowsConcurrentExecution(jobType) {
		if s.executing.CountByType(jobType) > 0 || localCounts[jobType] >= 1 {
			return false
		}
		localCounts[jobType]++
		return true
	}

	if group, ok := s.catalog.Group(jobType); ok {
		members := s.catalog.GroupMembers(group)
		if s.executing.HasAnyOfTypes(toSet(members)) {
			return false
		}
		if _, taken := localCounts[groupKey(group)]; taken {
			return false
		}
		localCounts[groupKey(group)] = 1
		return true
	}

	if limit, ok := s.catalog.Limit(jobType); ok {
		if s.executing.CountByType(jobType)+localCounts[jobType] < limit {
			localCounts[jobType]++
			return true
		}
		return false
	}

	return true
}

// groupKey namespaces a group name in localCounts so it can't collide
// with a job-type name that happens to equal the group's name.
func groupKey(group string) string {
	return "group:" + group
}

// gateRejectionReason classifies why jobAllowed just rejected a
// candidate, for the gated_rejections_total metric label.
func gateRejectionReason(cat CatalogView, jobType string) string {
	if cat.DisallowsConcurrentExecution(jobType) {
		return "disallow_any"
	}
	if _, ok := cat.Group(jobType); ok {
		return "disallow_group"
	}
	if _, ok := cat.Limit(jobType); ok {
		return "limit"
	}
	return "unknown"
}
