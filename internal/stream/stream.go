// Package stream produces ordered sequences of bars, either replayed from
// history or polled from a live venue.
package stream

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rxtech-lab/argo-core/internal/types"
)

// ErrEndOfStream signals that a finite stream is exhausted. It is a
// terminal condition, not a failure.
var ErrEndOfStream = stderrors.New("end of stream")

// Stream yields bars in strictly increasing timestamp order.
type Stream interface {
	// Next blocks until the next bar is available. It returns
	// ErrEndOfStream once a finite stream is exhausted.
	Next(ctx context.Context) (types.Bar, error)
}

// Clock abstracts time for polling and backoff waits.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
