package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindUndo, "undo"},
		{KindRedo, "redo"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestSubscribeAndEmit(t *testing.T) {
	ch := NewChannel(KindUndo)

	var names []string
	ch.Subscribe(func(e Event) {
		names = append(names, e.Name)
	})

	ch.Emit("first")
	ch.Emit("second")

	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Errorf("names = %v, want [first second]", names)
	}
}

func TestEventFields(t *testing.T) {
	ch := NewChannel(KindRedo)

	var got Event
	ch.Subscribe(func(e Event) { got = e })
	ch.Emit("wp")

	if got.Kind != KindRedo {
		t.Errorf("kind = %v, want redo", got.Kind)
	}
	if got.Name != "wp" {
		t.Errorf("name = %q, want %q", got.Name, "wp")
	}
	if got.At.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestUnsubscribe(t *testing.T) {
	ch := NewChannel(KindUndo)

	count := 0
	sub := ch.Subscribe(func(Event) { count++ })

	ch.Emit("a")
	sub.Unsubscribe()
	ch.Emit("b")

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	// Safe to call again.
	sub.Unsubscribe()

	if ch.ObserverCount() != 0 {
		t.Errorf("observer count = %d, want 0", ch.ObserverCount())
	}
}

func TestMultipleObservers(t *testing.T) {
	ch := NewChannel(KindUndo)

	a, b := 0, 0
	ch.Subscribe(func(Event) { a++ })
	ch.Subscribe(func(Event) { b++ })

	ch.Emit("x")

	if a != 1 || b != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", a, b)
	}
}

func TestWaitReceivesNextEmission(t *testing.T) {
	ch := NewChannel(KindUndo)

	done := make(chan Event, 1)
	go func() {
		event, err := ch.Wait(context.Background())
		if err != nil {
			t.Errorf("Wait failed: %v", err)
		}
		done <- event
	}()

	time.Sleep(10 * time.Millisecond)
	ch.Emit("wp")

	select {
	case event := <-done:
		if event.Name != "wp" {
			t.Errorf("name = %q, want %q", event.Name, "wp")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not receive the emission")
	}
}

func TestWaitContextCancel(t *testing.T) {
	ch := NewChannel(KindUndo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ch.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCloseUnblocksWait(t *testing.T) {
	ch := NewChannel(KindUndo)

	done := make(chan error, 1)
	go func() {
		_, err := ch.Wait(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	ch.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrChannelClosed) {
			t.Errorf("expected ErrChannelClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not unblock on close")
	}
}

func TestClosedChannel(t *testing.T) {
	ch := NewChannel(KindUndo)

	count := 0
	ch.Subscribe(func(Event) { count++ })

	ch.Close()
	ch.Close() // idempotent

	ch.Emit("dropped")
	if count != 0 {
		t.Errorf("emit after close delivered %d events", count)
	}

	if _, err := ch.Wait(context.Background()); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed, got %v", err)
	}
}
