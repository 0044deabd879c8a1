package datasource

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

const (
	metalBasePrice = 1800.0
	fxBasePrice    = 1.1
)

// Generator produces a random walk of hourly bars. The same symbol and
// start always produce the same series.
type Generator struct {
	// Interval between bars. Defaults to one hour.
	Interval time.Duration
}

// NewGenerator creates a Generator with hourly bars.
func NewGenerator() *Generator {
	return &Generator{Interval: time.Hour}
}

// BasePrice is the first open of a generated series.
func BasePrice(symbol string) float64 {
	if strings.Contains(strings.ToUpper(symbol), "XAU") {
		return metalBasePrice
	}

	return fxBasePrice
}

func (g *Generator) Load(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	if !start.Before(end) {
		return nil, errors.Newf(errors.ErrCodeInvalidDateRange, "start %s must precede end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	interval := g.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	rng := rand.New(rand.NewSource(seed(symbol, start)))
	base := BasePrice(symbol)
	price := base

	var bars []types.Bar

	for at := start; at.Before(end); at = at.Add(interval) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		change := (rng.Float64() - 0.5) * base * 0.005
		open := price

		closePrice := price + change
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) + rng.Float64()*base*0.001

		low := math.Min(open, closePrice) - rng.Float64()*base*0.001
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   at,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: math.Floor(rng.Float64() * 1000),
		})

		price = closePrice
	}

	return bars, nil
}

func seed(symbol string, start time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	_, _ = h.Write([]byte(start.UTC().Format(time.RFC3339)))

	return int64(h.Sum64())
}
