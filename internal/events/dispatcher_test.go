package events

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordingObserver struct {
	name  string
	types map[string]bool
	err   error

	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) OnEvent(e Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
	return o.err
}

func (o *recordingObserver) GetName() string { return o.name }

func (o *recordingObserver) ShouldHandle(t string) bool {
	return o.types == nil || o.types[t]
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.events)
}

func TestEventDispatcher_Dispatch(t *testing.T) {
	d := NewEventDispatcher(nil)
	all := &recordingObserver{name: "all"}
	onlyFailed := &recordingObserver{name: "failed", types: map[string]bool{TypeGenerationFailed: true}}
	broken := &recordingObserver{name: "broken", err: errors.New("boom")}

	d.Register(broken)
	d.Register(all)
	d.Register(onlyFailed)

	if d.ObserverCount() != 3 {
		t.Fatalf("expected 3 observers, got %d", d.ObserverCount())
	}

	d.Dispatch(NewTypedEvent(TypeGenerationProgress, GenerationProgressEvent{State: "START"}, context.Background()))
	d.Dispatch(NewTypedEvent(TypeGenerationFailed, GenerationFailedEvent{Code: "CANCELLED"}, context.Background()))

	if all.count() != 2 {
		t.Errorf("expected all observer to see 2 events, got %d", all.count())
	}
	if onlyFailed.count() != 1 {
		t.Errorf("expected filtered observer to see 1 event, got %d", onlyFailed.count())
	}
	if broken.count() != 2 {
		t.Errorf("failing observer should still receive events, got %d", broken.count())
	}
}

func TestEventDispatcher_Unregister(t *testing.T) {
	d := NewEventDispatcher(nil)
	obs := &recordingObserver{name: "obs"}
	d.Register(obs)
	d.Unregister(obs)

	d.Dispatch(Event{Type: TypeDeckDeleted})
	if obs.count() != 0 {
		t.Error("unregistered observer received an event")
	}

	d.Register(obs)
	d.Clear()
	if d.ObserverCount() != 0 {
		t.Error("Clear left observers behind")
	}
}

func TestEventDispatcher_NilSafe(t *testing.T) {
	var d *EventDispatcher
	d.Dispatch(Event{Type: "x"})
}

func TestFuncObserver_ShouldHandle(t *testing.T) {
	all := NewFuncObserver("any", func(Event) {})
	if !all.ShouldHandle("whatever") {
		t.Error("observer without types should handle everything")
	}
	some := NewFuncObserver("some", func(Event) {}, TypeGenerationCompleted)
	if some.ShouldHandle(TypeGenerationProgress) {
		t.Error("filtered observer handled an unlisted type")
	}
	if some.GetName() != "some" {
		t.Errorf("unexpected name %s", some.GetName())
	}
}
