package analytics

import (
	"math"

	"github.com/rxtech-lab/argo-core/internal/types"
)

// MaxDrawdown returns the largest peak-to-trough decline of the equity
// curve as a fraction of the peak, capped at 1 when equity falls below
// zero. The starting value counts as a peak.
func MaxDrawdown(curve []types.LedgerSnapshot, initial float64) float64 {
	peak := initial
	worst := 0.0

	for _, snap := range curve {
		if snap.Equity > peak {
			peak = snap.Equity

			continue
		}

		if peak <= 0 {
			continue
		}

		if dd := (peak - snap.Equity) / peak; dd > worst {
			worst = dd
		}
	}

	return math.Min(worst, 1)
}
