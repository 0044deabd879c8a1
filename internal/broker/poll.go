package broker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// fillPollInterval spaces order status queries after an order was accepted
// but not yet executed.
const fillPollInterval = 500 * time.Millisecond

// errNotSettled tells pollUntilSettled to query again.
type errNotSettled struct{}

func (errNotSettled) Error() string { return "order not settled" }

// pollUntilSettled calls query until it reports a terminal status or ctx
// ends. The last observation is returned either way.
func pollUntilSettled[T any](ctx context.Context, query func() (T, bool, error)) (T, error) {
	var last T

	operation := func() error {
		result, settled, err := query()
		if err != nil {
			return backoff.Permanent(err)
		}

		last = result
		if !settled {
			return errNotSettled{}
		}

		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.NewConstantBackOff(fillPollInterval), ctx))
	var pending errNotSettled
	if errors.As(err, &pending) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return last, nil
	}

	return last, err
}

// callWithContext runs a blocking call that takes no context and gives up
// when ctx ends first.
func callWithContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)

	go func() {
		value, err := call()
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}
