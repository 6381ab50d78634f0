// Package executing implements the in-memory executing-jobs table: a plain
// map of currently running job-key to (job detail, start time), guarded by
// a single mutex. All reads and writes occur under the mutex; the mutex is
// never held across a suspension point (I/O, channel operations).
package executing

import (
	"sort"
	"sync"
	"time"

	"go.triggerstore.dev/internal/triggerstore"
)

type entry struct {
	jobDetail *triggerstore.JobDetail
	jobType   string
	startTime time.Time
}

// Table is the executing-jobs table. The zero value is ready to use.
type Table struct {
	mu      sync.Mutex
	entries map[triggerstore.JobKey]entry
}

// New creates an empty executing table.
func New() *Table {
	return &Table{entries: make(map[triggerstore.JobKey]entry)}
}

// Add records a job as executing. Called from the fire path after a
// trigger's row has been durably updated to EXECUTING.
func (t *Table) Add(jobKey triggerstore.JobKey, jobType string, jobDetail *triggerstore.JobDetail, startTime time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[jobKey] = entry{jobDetail: jobDetail, jobType: jobType, startTime: startTime}
}

// Remove deletes the executing entry for a job key. Called from the
// completion path before the sibling sweep, so a subsequent JobAllowed
// call sees the freed slot.
func (t *Table) Remove(jobKey triggerstore.JobKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, jobKey)
}

// CountByType returns how many currently-executing jobs have the given
// type.
func (t *Table) CountByType(jobType string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, e := range t.entries {
		if e.jobType == jobType {
			count++
		}
	}
	return count
}

// HasAnyOfTypes reports whether any executing job's type is in the given
// set. Used to decide whether a DisallowConcurrencyGroup is currently
// occupied.
func (t *Table) HasAnyOfTypes(types map[string]struct{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if _, ok := types[e.jobType]; ok {
			return true
		}
	}
	return false
}

// Contains reports whether a specific job key is currently executing.
func (t *Table) Contains(jobKey triggerstore.JobKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[jobKey]
	return ok
}

// Len returns the number of currently-executing entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Snapshot returns the current executing entries sorted by start time
// ascending. The mutex is held only long enough to copy the map.
func (t *Table) Snapshot() []triggerstore.ExecutingEntry {
	t.mu.Lock()
	out := make([]triggerstore.ExecutingEntry, 0, len(t.entries))
	for jobKey, e := range t.entries {
		out = append(out, triggerstore.ExecutingEntry{
			JobKey:    jobKey,
			JobType:   e.jobType,
			StartTime: e.startTime,
		})
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
