package stream

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxRetries     = 10
)

// Fetcher reads the most recent closed bars of a symbol from a venue.
type Fetcher interface {
	FetchLatest(ctx context.Context, symbol string) ([]types.Bar, error)
}

// LiveConfig configures a Live stream. Zero values take the defaults.
type LiveConfig struct {
	Symbol string
	// PollInterval is the wait between polls that found no new bar.
	PollInterval time.Duration
	// RequestTimeout bounds every fetch.
	RequestTimeout time.Duration
	// MaxRetries is the number of consecutive failed fetches tolerated.
	MaxRetries uint64
	// BackOff overrides the failure retry policy. When it returns
	// backoff.Stop the stream fails permanently.
	BackOff backoff.BackOff
	Clock   Clock
	Logger  *logger.Logger
}

// Live polls a Fetcher and emits each new closed bar exactly once.
type Live struct {
	fetcher  Fetcher
	cfg      LiveConfig
	failures backoff.BackOff
	last     time.Time
	err      error
	logger   *logger.Logger
}

// NewLive creates a live stream for cfg.Symbol.
func NewLive(fetcher Fetcher, cfg LiveConfig) (*Live, error) {
	if fetcher == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "live stream requires a fetcher")
	}

	if cfg.Symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "live stream requires a symbol")
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	failures := cfg.BackOff
	if failures == nil {
		failures = backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.PollInterval), cfg.MaxRetries)
	}

	failures.Reset()

	return &Live{
		fetcher:  fetcher,
		cfg:      cfg,
		failures: failures,
		logger:   cfg.Logger.Named("live_stream"),
	}, nil
}

// Next blocks until a bar newer than the last emitted one is available.
// Polls without news never end the stream. Fetch failures are retried on
// the backoff policy; once it is exhausted the stream fails for good.
func (l *Live) Next(ctx context.Context) (types.Bar, error) {
	if l.err != nil {
		return types.Bar{}, l.err
	}

	for {
		if err := ctx.Err(); err != nil {
			return types.Bar{}, err
		}

		bars, err := l.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return types.Bar{}, ctx.Err()
			}

			wait := l.failures.NextBackOff()
			if wait == backoff.Stop {
				l.err = errors.Wrapf(errors.ErrCodeStreamExhausted, err, "live stream for %s gave up after %d retries", l.cfg.Symbol, l.cfg.MaxRetries)
				l.logger.Error("Live stream failed", zap.String("symbol", l.cfg.Symbol), zap.Error(err))

				return types.Bar{}, l.err
			}

			l.logger.Warn("Failed to fetch bars, retrying",
				zap.String("symbol", l.cfg.Symbol),
				zap.Duration("wait", wait),
				zap.Error(err),
			)

			if err := sleep(ctx, l.cfg.Clock, wait); err != nil {
				return types.Bar{}, err
			}

			continue
		}

		l.failures.Reset()

		if bar, ok := l.newest(bars); ok {
			l.last = bar.Time

			return bar, nil
		}

		if err := sleep(ctx, l.cfg.Clock, l.cfg.PollInterval); err != nil {
			return types.Bar{}, err
		}
	}
}

func (l *Live) fetch(ctx context.Context) ([]types.Bar, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
	defer cancel()

	bars, err := l.fetcher.FetchLatest(fetchCtx, l.cfg.Symbol)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch latest bars", err)
	}

	return bars, nil
}

// newest picks the latest valid bar that is newer than the last one emitted.
func (l *Live) newest(bars []types.Bar) (types.Bar, bool) {
	var (
		best  types.Bar
		found bool
	)

	for _, bar := range bars {
		if !bar.Time.After(l.last) {
			continue
		}

		if err := bar.Validate(); err != nil {
			l.logger.Warn("Skipping invalid bar", zap.String("symbol", l.cfg.Symbol), zap.Error(err))

			continue
		}

		if !found || bar.Time.After(best.Time) {
			best = bar
			found = true
		}
	}

	if found && best.Symbol == "" {
		best.Symbol = l.cfg.Symbol
	}

	return best, found
}
