package main

import (
	"testing"
	"time"
)

func TestNewDispatcher_AppliesDefaults(t *testing.T) {
	d := newDispatcher(dispatcherConfig{})
	if d.cfg.PollInterval != 5*time.Second {
		t.Errorf("expected default poll interval 5s, got %s", d.cfg.PollInterval)
	}
	if d.cfg.BatchSize != 10 {
		t.Errorf("expected default batch size 10, got %d", d.cfg.BatchSize)
	}
}

func TestNewDispatcher_KeepsExplicitValues(t *testing.T) {
	d := newDispatcher(dispatcherConfig{PollInterval: 2 * time.Second, BatchSize: 25})
	if d.cfg.PollInterval != 2*time.Second {
		t.Errorf("expected poll interval 2s, got %s", d.cfg.PollInterval)
	}
	if d.cfg.BatchSize != 25 {
		t.Errorf("expected batch size 25, got %d", d.cfg.BatchSize)
	}
}

func TestDispatcher_HealthBeforeStart(t *testing.T) {
	d := newDispatcher(dispatcherConfig{})
	if err := d.Health(); err == nil {
		t.Error("expected Health to report an error before Start is called")
	}
}

func TestDispatcher_SignalSchedulingChangeImmediately_NonBlocking(t *testing.T) {
	d := newDispatcher(dispatcherConfig{})

	// The wake channel has capacity 1; a second signal before the first is
	// drained must not block, since a wake already pending is sufficient.
	done := make(chan struct{})
	go func() {
		d.SignalSchedulingChangeImmediately(time.Now())
		d.SignalSchedulingChangeImmediately(time.Now())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected SignalSchedulingChangeImmediately to never block")
	}
}

func TestDispatcher_Name(t *testing.T) {
	d := newDispatcher(dispatcherConfig{})
	if d.Name() != "dispatcher" {
		t.Errorf("expected service name 'dispatcher', got %q", d.Name())
	}
}
