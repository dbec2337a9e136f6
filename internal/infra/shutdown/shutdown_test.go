package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHandler_HooksRunInReverseOrder(t *testing.T) {
	h := NewHandler(time.Second)

	var order []string
	h.OnShutdown(func(ctx context.Context) error {
		order = append(order, "storage")
		return nil
	})
	h.OnShutdown(func(ctx context.Context) error {
		order = append(order, "sweeper")
		return nil
	})
	h.OnShutdown(func(ctx context.Context) error {
		order = append(order, "http")
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	h.Trigger()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}

	want := []string{"http", "sweeper", "storage"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	select {
	case <-h.Done():
	default:
		t.Fatal("Done channel not closed")
	}
}

func TestHandler_ReturnsHookError(t *testing.T) {
	h := NewHandler(time.Second)
	wantErr := errors.New("close failed")
	h.OnShutdown(func(ctx context.Context) error { return wantErr })
	h.OnShutdown(func(ctx context.Context) error { return nil })

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	h.Trigger()

	if err := <-errCh; !errors.Is(err, wantErr) {
		t.Fatalf("Wait err = %v, want %v", err, wantErr)
	}
}

func TestHandler_TriggerIsIdempotent(t *testing.T) {
	h := NewHandler(time.Second)
	go h.Wait()
	h.Trigger()
	h.Trigger() // must not panic
}
