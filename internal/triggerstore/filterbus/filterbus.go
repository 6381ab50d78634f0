// Package filterbus implements the acquisition filter bus: a fixed list of
// pluggable predicates that each name job types currently ineligible for
// acquisition (for example, a remote service under a rate limit). Filters
// are polled synchronously every acquisition round, so their answers must
// be cheap; a filter that changes its mind wakes the dispatcher instead of
// waiting for the next poll interval.
package filterbus

import (
	"log/slog"
	"sync"
)

// Filter is a single acquisition predicate. TypesToExclude must be cheap —
// it is called synchronously on every acquisition round.
type Filter interface {
	// Name identifies the filter for logging.
	Name() string

	// TypesToExclude returns the set of job types currently ineligible.
	TypesToExclude() map[string]struct{}
}

// ChangeNotifier is implemented by filters that can tell the bus when
// their answer has changed, so the bus can wake the dispatcher immediately
// instead of waiting for the next poll.
type ChangeNotifier interface {
	// OnStateChanged registers a callback invoked whenever this filter's
	// exclusion set changes.
	OnStateChanged(fn func())
}

// Bus holds the registered filters and notifies a wake function whenever
// any filter reports a change.
type Bus struct {
	mu      sync.RWMutex
	filters []Filter
	wake    func()
}

// New creates an empty filter bus. Call Subscribe with a wake function
// before registering filters that implement ChangeNotifier, so the first
// state change after construction is not missed.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers the function the bus calls when a filter's
// exclusion set changes. The core passes a function that signals the
// dispatcher with the sentinel past timestamp.
func (b *Bus) Subscribe(wake func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wake = wake
}

// Register adds a filter to the bus. If the filter implements
// ChangeNotifier, the bus wires itself as the change callback.
func (b *Bus) Register(f Filter) {
	b.mu.Lock()
	b.filters = append(b.filters, f)
	b.mu.Unlock()

	if notifier, ok := f.(ChangeNotifier); ok {
		notifier.OnStateChanged(func() {
			b.mu.RLock()
			wake := b.wake
			b.mu.RUnlock()
			if wake != nil {
				slog.Debug("acquisition filter state changed, waking dispatcher", "filter", f.Name())
				wake()
			}
		})
	}
}

// Excluded polls every registered filter and returns the union of their
// exclusion sets. Called once per acquisition round to build the filter
// snapshot.
func (b *Bus) Excluded() map[string]struct{} {
	b.mu.RLock()
	filters := make([]Filter, len(b.filters))
	copy(filters, b.filters)
	b.mu.RUnlock()

	excluded := make(map[string]struct{})
	for _, f := range filters {
		for jobType := range f.TypesToExclude() {
			excluded[jobType] = struct{}{}
		}
	}
	return excluded
}
