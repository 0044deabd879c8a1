package indicator

import "github.com/rxtech-lab/argo-core/pkg/errors"

// SMA is a simple moving average over a fixed window of values.
type SMA struct {
	period int
	window []float64
	next   int
	count  int
}

// NewSMA creates an SMA over period values.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	return &SMA{
		period: period,
		window: make([]float64, period),
	}, nil
}

// Update adds a value and returns the average once the window is full.
func (s *SMA) Update(value float64) (float64, bool) {
	s.window[s.next] = value
	s.next = (s.next + 1) % s.period

	if s.count < s.period {
		s.count++
	}

	return s.Value()
}

// Value returns the current average and whether the window is full.
// The window is summed oldest first on every call so the result does not
// drift with the length of the series.
func (s *SMA) Value() (float64, bool) {
	if s.count < s.period {
		return 0, false
	}

	sum := 0.0
	for i := 0; i < s.period; i++ {
		sum += s.window[(s.next+i)%s.period]
	}

	return sum / float64(s.period), true
}

// Period returns the window length.
func (s *SMA) Period() int {
	return s.period
}
