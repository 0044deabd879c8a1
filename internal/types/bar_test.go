package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBarValidate(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	good := Bar{Symbol: "XAUUSD", Time: at, Open: 1800, High: 1805, Low: 1795, Close: 1802, Volume: 10}
	assert.NoError(t, good.Validate())

	noTime := good
	noTime.Time = time.Time{}
	assert.Error(t, noTime.Validate())

	highBelowClose := good
	highBelowClose.High = 1801
	assert.Error(t, highBelowClose.Validate())

	lowAboveOpen := good
	lowAboveOpen.Low = 1801
	assert.Error(t, lowAboveOpen.Validate())

	nan := good
	nan.Close = math.NaN()
	assert.Error(t, nan.Validate())

	negativeVolume := good
	negativeVolume.Volume = -1
	assert.Error(t, negativeVolume.Validate())
}

func TestBarCrosses(t *testing.T) {
	bar := Bar{Open: 10, High: 12, Low: 9, Close: 11}
	assert.True(t, bar.Crosses(9))
	assert.True(t, bar.Crosses(12))
	assert.False(t, bar.Crosses(8.99))
	assert.False(t, bar.Crosses(12.01))
}

func TestSnapshotPositionValue(t *testing.T) {
	snap := LedgerSnapshot{
		Cash: 100,
		Positions: []Position{
			{Symbol: "A", Size: 2, AverageEntryPrice: 10},
			{Symbol: "B", Size: -1, AverageEntryPrice: 5},
		},
		Prices: map[string]float64{"A": 11, "B": 4},
	}
	assert.InDelta(t, 18.0, snap.PositionValue(), 1e-9)
	assert.InDelta(t, 2.0, snap.Positions[0].UnrealizedPnL(11), 1e-9)
	assert.InDelta(t, 1.0, snap.Positions[1].UnrealizedPnL(4), 1e-9)
}
