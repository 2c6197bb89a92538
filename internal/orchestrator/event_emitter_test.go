package orchestrator

import (
	"testing"
	"time"
)

func TestEventEmitter_FanOut(t *testing.T) {
	e := NewEventEmitter(4)
	a, cancelA := e.Subscribe()
	b, cancelB := e.Subscribe()
	defer cancelA()
	defer cancelB()

	e.Emit(OrchestratorEvent{Type: EventBroadcast, Message: "hi"})

	for _, ch := range []<-chan OrchestratorEvent{a, b} {
		select {
		case ev := <-ch:
			if ev.Type != EventBroadcast || ev.Timestamp.IsZero() {
				t.Errorf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestEventEmitter_DropsWhenFull(t *testing.T) {
	e := NewEventEmitter(1)
	_, cancel := e.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			e.Emit(OrchestratorEvent{Type: EventTaskCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber")
	}
	if got := e.DroppedCount(); got != 4 {
		t.Errorf("DroppedCount() = %d, want 4", got)
	}
}

func TestEventEmitter_UnsubscribeAndClose(t *testing.T) {
	e := NewEventEmitter(1)
	ch, cancel := e.Subscribe()
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if e.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", e.SubscriberCount())
	}

	live, _ := e.Subscribe()
	e.Close()
	if _, ok := <-live; ok {
		t.Error("Close should close subscriber channels")
	}

	late, _ := e.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribing after Close should yield a closed channel")
	}
	e.Emit(OrchestratorEvent{Type: EventBroadcast})
}
