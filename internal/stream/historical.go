package stream

import (
	"context"
	"slices"
	"time"

	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// Historical replays a finite, pre-sorted sequence of bars.
type Historical struct {
	bars []types.Bar
	pos  int
}

// NewHistorical checks that bars are valid and strictly increasing in time.
// The slice is copied so later changes by the caller do not leak into replays.
func NewHistorical(bars []types.Bar) (*Historical, error) {
	for i, bar := range bars {
		if err := bar.Validate(); err != nil {
			return nil, err
		}

		if i > 0 && !bar.Time.After(bars[i-1].Time) {
			return nil, errors.Newf(errors.ErrCodeUnorderedBars, "bar %d at %s does not follow %s", i, bar.Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}

	return &Historical{bars: slices.Clone(bars)}, nil
}

// Next returns the next bar or ErrEndOfStream.
func (h *Historical) Next(ctx context.Context) (types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return types.Bar{}, err
	}

	if h.pos >= len(h.bars) {
		return types.Bar{}, ErrEndOfStream
	}

	bar := h.bars[h.pos]
	h.pos++

	return bar, nil
}

// Reset rewinds the stream to the first bar.
func (h *Historical) Reset() {
	h.pos = 0
}

// Len returns the number of bars in the stream.
func (h *Historical) Len() int {
	return len(h.bars)
}
