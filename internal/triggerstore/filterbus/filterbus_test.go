package filterbus

import (
	"sync"
	"testing"
)

type staticFilter struct {
	name     string
	excluded map[string]struct{}
}

func (f *staticFilter) Name() string { return f.name }
func (f *staticFilter) TypesToExclude() map[string]struct{} { return f.excluded }

type notifyingFilter struct {
	staticFilter
	onChanged func()
}

func (f *notifyingFilter) OnStateChanged(fn func()) { f.onChanged = fn }

func TestExcluded_EmptyBus(t *testing.T) {
	b := New()
	excluded := b.Excluded()
	if len(excluded) != 0 {
		t.Errorf("expected no exclusions, got %v", excluded)
	}
}

func TestExcluded_UnionsAllFilters(t *testing.T) {
	b := New()
	b.Register(&staticFilter{name: "rate-limit", excluded: map[string]struct{}{"export.csv": {}}})
	b.Register(&staticFilter{name: "maintenance", excluded: map[string]struct{}{"warehouse.sync": {}, "export.csv": {}}})

	excluded := b.Excluded()
	if len(excluded) != 2 {
		t.Fatalf("expected 2 excluded types, got %d: %v", len(excluded), excluded)
	}
	if _, ok := excluded["export.csv"]; !ok {
		t.Error("expected export.csv to be excluded")
	}
	if _, ok := excluded["warehouse.sync"]; !ok {
		t.Error("expected warehouse.sync to be excluded")
	}
}

func TestRegister_WiresChangeNotifier(t *testing.T) {
	b := New()
	var woken bool
	var mu sync.Mutex
	b.Subscribe(func() {
		mu.Lock()
		woken = true
		mu.Unlock()
	})

	f := &notifyingFilter{staticFilter: staticFilter{name: "dynamic"}}
	b.Register(f)

	if f.onChanged == nil {
		t.Fatal("expected bus to register a change callback on the notifier")
	}
	f.onChanged()

	mu.Lock()
	defer mu.Unlock()
	if !woken {
		t.Error("expected wake function to be called when filter state changes")
	}
}

func TestRegister_NotifierWithNoSubscriberDoesNotPanic(t *testing.T) {
	b := New()
	f := &notifyingFilter{staticFilter: staticFilter{name: "dynamic"}}
	b.Register(f)

	f.onChanged()
}

func TestExcluded_ConcurrentAccess(t *testing.T) {
	b := New()
	b.Register(&staticFilter{name: "a", excluded: map[string]struct{}{"t1": {}}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Excluded()
		}()
	}
	wg.Wait()
}
