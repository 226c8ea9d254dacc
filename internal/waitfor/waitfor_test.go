package waitfor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestUntil_ResolvesImmediately(t *testing.T) {
	var calls int32
	v, err := Until(context.Background(), time.Hour, func(ctx context.Context) (string, bool, error) {
		atomic.AddInt32(&calls, 1)
		return "ready", true, nil
	})
	if err != nil || v != "ready" {
		t.Fatalf("Until = %q, %v", v, err)
	}
	if calls != 1 {
		t.Errorf("probe calls = %d, want 1", calls)
	}
}

func TestUntil_PollsUntilPresentThenStops(t *testing.T) {
	var calls int32
	v, err := Until(context.Background(), 5*time.Millisecond, func(ctx context.Context) (int, bool, error) {
		n := atomic.AddInt32(&calls, 1)
		return int(n), n >= 3, nil
	})
	if err != nil {
		t.Fatalf("Until error: %v", err)
	}
	if v != 3 {
		t.Errorf("value = %d, want 3", v)
	}

	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("probe kept running after resolve: %d calls", got)
	}
}

func TestUntil_ProbeError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Until(context.Background(), time.Millisecond, func(ctx context.Context) (int, bool, error) {
		return 0, false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestUntil_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Until(ctx, 5*time.Millisecond, func(ctx context.Context) (int, bool, error) {
		return 0, false, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestUntil_InvalidInterval(t *testing.T) {
	_, err := Until(context.Background(), 0, func(ctx context.Context) (int, bool, error) {
		return 1, true, nil
	})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("err = %v, want ErrInvalidInterval", err)
	}
}

func TestGo_DeliversOnce(t *testing.T) {
	ch := Go(context.Background(), time.Millisecond, func(ctx context.Context) (string, bool, error) {
		return "x", true, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil || res.Value != "x" {
			t.Fatalf("result = %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after the result")
	}
}
