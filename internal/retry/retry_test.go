package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(retries int) Policy {
	return Policy{MaxRetries: retries, InitialInterval: time.Millisecond, MaxElapsed: time.Second}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	var notified int
	err := Do(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(error, time.Duration) { notified++ })
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 || notified != 2 {
		t.Fatalf("calls=%d notified=%d", calls, notified)
	}
}

func TestDoStopsAfterMaxRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), func() error {
		calls++
		return errors.New("down")
	}, nil)
	if err == nil || err.Error() != "down" {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 1 + 2 retries", calls)
	}
}

func TestZeroRetriesRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), fastPolicy(0), func() error {
		calls++
		return errors.New("down")
	}, nil)
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestPermanentIsNotRetried(t *testing.T) {
	calls := 0
	sentinel := errors.New("bad request")
	err := Do(context.Background(), fastPolicy(5), func() error {
		calls++
		return Permanent(sentinel)
	}, nil)
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, fastPolicy(5), func() error {
		calls++
		return errors.New("down")
	}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls > 1 {
		t.Fatalf("calls = %d after cancel", calls)
	}
}
