package eventbus

import (
	"context"
	"errors"
	"testing"
)

func TestBusPublishBroadcast(t *testing.T) {
	bus := NewReadmeEventBus()
	calledA := false
	calledB := false

	bus.Subscribe(ReadmeEventGenerated, func(ctx context.Context, event ReadmeEvent) error {
		calledA = true
		return nil
	})
	bus.Subscribe(ReadmeEventGenerated, func(ctx context.Context, event ReadmeEvent) error {
		calledB = true
		return nil
	})

	if err := bus.Publish(context.Background(), ReadmeEvent{Type: ReadmeEventGenerated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !calledA || !calledB {
		t.Fatalf("expected handlers to be called")
	}
}

func TestBusPublishOtherTypeNotDelivered(t *testing.T) {
	bus := NewReadmeEventBus()
	called := false
	bus.Subscribe(ReadmeEventScored, func(ctx context.Context, event ReadmeEvent) error {
		called = true
		return nil
	})

	if err := bus.Publish(context.Background(), ReadmeEvent{Type: ReadmeEventGenerated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("handler of another event type must not be called")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewReadmeEventBus()
	called := false
	unsubscribe := bus.Subscribe(ReadmeEventGenerated, func(ctx context.Context, event ReadmeEvent) error {
		called = true
		return nil
	})
	unsubscribe()

	if err := bus.Publish(context.Background(), ReadmeEvent{Type: ReadmeEventGenerated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("expected handler to be unsubscribed")
	}
}

func TestBusPublishJoinErrors(t *testing.T) {
	bus := NewReadmeEventBus()
	errA := errors.New("err-a")
	bus.Subscribe(ReadmeEventScored, func(ctx context.Context, event ReadmeEvent) error {
		return errA
	})
	bus.Subscribe(ReadmeEventScored, func(ctx context.Context, event ReadmeEvent) error {
		return errors.New("err-b")
	})

	err := bus.Publish(context.Background(), ReadmeEvent{Type: ReadmeEventScored})
	if !errors.Is(err, errA) {
		t.Fatalf("expected joined error to contain err-a, got %v", err)
	}
}

func TestBusDeliversInSubscribeOrder(t *testing.T) {
	bus := NewReadmeEventBus()
	var order []int
	for i := 1; i <= 3; i++ {
		bus.Subscribe(ReadmeEventGenerated, func(ctx context.Context, event ReadmeEvent) error {
			order = append(order, i)
			return nil
		})
	}
	unsubscribe := bus.Subscribe(ReadmeEventGenerated, func(ctx context.Context, event ReadmeEvent) error {
		order = append(order, 4)
		return nil
	})
	unsubscribe()
	unsubscribe()

	if err := bus.Publish(context.Background(), ReadmeEvent{Type: ReadmeEventGenerated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}
