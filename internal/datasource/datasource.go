// Package datasource loads historical bars for backtests.
package datasource

import (
	"context"
	"io"
	"time"

	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

// Source loads bars for symbol in the half-open range [start, end),
// sorted by time.
type Source interface {
	Load(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error)
}

// Fallback serves from primary and switches to secondary when primary has
// no data for the request.
type Fallback struct {
	primary   Source
	secondary Source
	logger    *logger.Logger
}

// NewFallback creates a Fallback source.
func NewFallback(primary, secondary Source, log *logger.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: log.Named("datasource")}
}

func (f *Fallback) Load(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	bars, err := f.primary.Load(ctx, symbol, start, end)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}

	if err != nil && !errors.HasCode(err, errors.ErrCodeDataNotFound) {
		return nil, err
	}

	f.logger.Warn("No stored data, using fallback source",
		zap.String("symbol", symbol),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	return f.secondary.Load(ctx, symbol, start, end)
}

// Open returns the parquet store under dir. With mockFallback set, symbols
// without stored bars are served by the generator. The returned closer
// releases the store.
func Open(dir string, mockFallback bool, log *logger.Logger) (Source, io.Closer, error) {
	store, err := NewDuckDBSource(dir, log)
	if err != nil {
		return nil, nil, err
	}

	if !mockFallback {
		return store, store, nil
	}

	return NewFallback(store, NewGenerator(), log), store, nil
}
