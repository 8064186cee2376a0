package timeout

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoReturnsResult(t *testing.T) {
	got, err := Do(context.Background(), time.Second, "fast", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestDoPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Do(context.Background(), time.Second, "failing", func(ctx context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("operation error must not look like a timeout")
	}
}

func TestDoTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := Do(context.Background(), 20*time.Millisecond, "解析超时", func(ctx context.Context) (int, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return 1, nil
	})

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if te.Error() != "解析超时" {
		t.Errorf("message = %q", te.Error())
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Do took %s, deadline not enforced", elapsed)
	}
}

func TestDoCancelsInnerContextOnTimeout(t *testing.T) {
	cancelled := make(chan struct{})
	_, _ = Do(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	})

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("inner context was not cancelled")
	}
}

func TestDoHonoursCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Do(ctx, time.Second, "op", func(ctx context.Context) (int, error) {
		called = true
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("fn should not run with a cancelled context")
	}
}

func TestDoWithoutDeadline(t *testing.T) {
	got, err := Do(context.Background(), 0, "op", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("got %q, %v", got, err)
	}
}
