// Package bounded puts an upper limit on the duration of calls to external
// collaborators. It cancels slow calls and never retries them.
package bounded

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
)

// ErrTimeout is wrapped by errors from calls that exceeded their limit.
var ErrTimeout = errors.New("call timed out")

// Executor bounds calls to a fixed duration. A nil Executor, or one with a
// non-positive limit, runs calls unbounded.
type Executor struct {
	limit time.Duration
}

// New returns an Executor with the given limit.
func New(limit time.Duration) *Executor {
	return &Executor{limit: limit}
}

// Call runs fn under the executor's limit. fn must honour the context it is
// given; the context is cancelled when the limit is exceeded.
func Call[T any](ctx context.Context, e *Executor, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if e == nil || e.limit <= 0 {
		return fn(ctx)
	}

	policy := timeout.New[T](e.limit)
	result, err := failsafe.With(policy).WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[T]) (T, error) {
		return fn(exec.Context())
	})
	if errors.Is(err, timeout.ErrExceeded) {
		var zero T
		return zero, fmt.Errorf("%s: %w after %s", name, ErrTimeout, e.limit)
	}
	return result, err
}

// Do is Call for functions without a result.
func Do(ctx context.Context, e *Executor, name string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, e, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
