// Package timeout bounds blocking operations with a deadline.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every *Error via errors.Is
var ErrTimeout = errors.New("operation timed out")

// Error reports that an operation did not finish in time
type Error struct {
	Op      string
	Timeout time.Duration
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("operation timed out after %s", e.Timeout)
	}
	return e.Op
}

// Is makes errors.Is(err, ErrTimeout) succeed
func (e *Error) Is(target error) bool {
	return target == ErrTimeout
}

// Do runs fn and returns its result, or an *Error once d elapses.
//
// fn receives a context that is cancelled when the deadline passes or the
// caller's ctx ends. A late result is discarded; fn keeps running until it
// observes cancellation. A non-positive d disables the deadline.
func Do[T any](ctx context.Context, d time.Duration, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.val, r.err
	case <-timer.C:
		return zero, &Error{Op: op, Timeout: d}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
