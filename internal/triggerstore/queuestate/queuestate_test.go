package queuestate

import (
	"context"
	"sync"
	"testing"

	"go.triggerstore.dev/internal/triggerstore"
)

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	failNext bool
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return context.DeadlineExceeded
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestSubscribe_LocalHandlerReceivesEvent(t *testing.T) {
	p := New(nil)

	var got EventKind
	var qs triggerstore.QueueStateContext
	var wg sync.WaitGroup
	wg.Add(1)
	p.Subscribe(func(_ context.Context, kind EventKind, ctx triggerstore.QueueStateContext) {
		got = kind
		qs = ctx
		wg.Done()
	})

	p.PublishAdded(context.Background(), triggerstore.QueueStateContext{WaitingCount: 3})
	wg.Wait()

	if got != EventAdded {
		t.Errorf("expected EventAdded, got %q", got)
	}
	if qs.WaitingCount != 3 {
		t.Errorf("expected waiting count 3, got %d", qs.WaitingCount)
	}
}

func TestPublish_FansOutToNATS(t *testing.T) {
	fp := &fakePublisher{}
	p := New(fp)

	p.PublishExecuting(context.Background(), triggerstore.QueueStateContext{ThreadCount: 4})

	fp.mu.Lock()
	defer fp.mu.Unlock()
	if len(fp.subjects) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(fp.subjects))
	}
	if fp.subjects[0] != "queuestate.executing" {
		t.Errorf("expected subject queuestate.executing, got %q", fp.subjects[0])
	}
}

func TestPublish_NilNATSDoesNotPanic(t *testing.T) {
	p := New(nil)
	p.PublishCompleted(context.Background(), triggerstore.QueueStateContext{})
}

func TestPublish_HandlerPanicIsRecovered(t *testing.T) {
	p := New(nil)
	p.Subscribe(func(_ context.Context, kind EventKind, qs triggerstore.QueueStateContext) {
		panic("boom")
	})

	var called bool
	p.Subscribe(func(_ context.Context, kind EventKind, qs triggerstore.QueueStateContext) {
		called = true
	})

	p.PublishAdded(context.Background(), triggerstore.QueueStateContext{})

	if !called {
		t.Error("expected the second handler to still run after the first panicked")
	}
}

func TestPublish_NATSFailureDoesNotBlockLocalHandlers(t *testing.T) {
	fp := &fakePublisher{failNext: true}
	p := New(fp)

	var called bool
	p.Subscribe(func(_ context.Context, kind EventKind, qs triggerstore.QueueStateContext) {
		called = true
	})

	p.PublishAdded(context.Background(), triggerstore.QueueStateContext{})

	if !called {
		t.Error("expected local handler to run even though nats publish failed")
	}
}

func TestMultipleSubscribers_AllReceiveEvent(t *testing.T) {
	p := New(nil)

	var wg sync.WaitGroup
	wg.Add(3)
	counts := make([]int, 3)
	for i := 0; i < 3; i++ {
		i := i
		p.Subscribe(func(_ context.Context, kind EventKind, qs triggerstore.QueueStateContext) {
			counts[i]++
			wg.Done()
		})
	}

	p.PublishAdded(context.Background(), triggerstore.QueueStateContext{})
	wg.Wait()

	for i, c := range counts {
		if c != 1 {
			t.Errorf("expected subscriber %d to be called once, got %d", i, c)
		}
	}
}
