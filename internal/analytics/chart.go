package analytics

import (
	"time"

	"github.com/rxtech-lab/argo-core/internal/types"
)

const (
	DefaultChartMaxPoints = 1000
	DefaultChartThreshold = 2000
)

// ChartSeries joins bars with the equity recorded at the same timestamp.
func ChartSeries(bars []types.Bar, curve []types.LedgerSnapshot) []types.ChartPoint {
	equity := make(map[time.Time]float64, len(curve))
	for _, snap := range curve {
		equity[snap.Time] = snap.Equity
	}

	points := make([]types.ChartPoint, 0, len(bars))
	for _, bar := range bars {
		points = append(points, types.ChartPoint{
			Time:   bar.Time,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Equity: equity[bar.Time],
		})
	}

	return points
}

// ThinChart keeps at most maxPoints points by uniform stride once the
// series is longer than threshold. The first and last points are always
// kept, so maxPoints is at least 2. The selection depends only on the
// input length.
func ThinChart(points []types.ChartPoint, maxPoints int, threshold int) []types.ChartPoint {
	switch {
	case maxPoints <= 0:
		maxPoints = DefaultChartMaxPoints
	case maxPoints < 2:
		maxPoints = 2
	}

	if threshold <= 0 {
		threshold = DefaultChartThreshold
	}

	n := len(points)
	if n <= threshold || n <= maxPoints {
		return points
	}

	// ceil((n-1)/(maxPoints-1)) guarantees the strided points plus the
	// last one fit in maxPoints
	stride := (n - 2 + maxPoints - 1) / (maxPoints - 1)

	thinned := make([]types.ChartPoint, 0, maxPoints)
	for i := 0; i < n; i += stride {
		thinned = append(thinned, points[i])
	}

	if (n-1)%stride != 0 {
		thinned = append(thinned, points[n-1])
	}

	return thinned
}
