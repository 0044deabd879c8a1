package export

import (
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

const (
	EquityFile  = "equity.parquet"
	MarkersFile = "markers.parquet"
	OrdersFile  = "orders.parquet"
)

// EquityRecord is one row of the equity curve.
type EquityRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Equity    float64 `parquet:"equity"`
}

// MarkerRecord is one fill marker.
type MarkerRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"`
	Side      string  `parquet:"side,dict"`
	Price     float64 `parquet:"price"`
	Size      float64 `parquet:"size"`
}

// OrderRecord is one order in its final state. LimitPrice is zero for
// market orders.
type OrderRecord struct {
	ID          string  `parquet:"id"`
	Symbol      string  `parquet:"symbol,dict"`
	Side        string  `parquet:"side,dict"`
	Type        string  `parquet:"type,dict"`
	Size        float64 `parquet:"size"`
	LimitPrice  float64 `parquet:"limit_price"`
	CloseAll    bool    `parquet:"close_all"`
	Status      string  `parquet:"status,dict"`
	Reason      string  `parquet:"reason"`
	SubmittedAt int64   `parquet:"submitted_at,timestamp(millisecond)"`
	UpdatedAt   int64   `parquet:"updated_at,timestamp(millisecond)"`
}

// Paths lists the files written by Write.
type Paths struct {
	Equity  string `json:"equity"`
	Markers string `json:"markers"`
	Orders  string `json:"orders"`
}

// Write stores the equity curve, trade markers and orders of res as three
// parquet files under dir. Existing files are replaced.
func Write(dir string, res types.RunResult) (Paths, error) {
	if dir == "" {
		return Paths{}, errors.New(errors.ErrCodeInvalidParameter, "export directory is required")
	}

	paths := Paths{
		Equity:  filepath.Join(dir, EquityFile),
		Markers: filepath.Join(dir, MarkersFile),
		Orders:  filepath.Join(dir, OrdersFile),
	}

	if err := writeParquetFile(paths.Equity, equityRecords(res.ChartSeries)); err != nil {
		return Paths{}, errors.Wrap(errors.ErrCodeExportFailed, "failed to write equity curve", err)
	}

	if err := writeParquetFile(paths.Markers, markerRecords(res.TradeMarkers)); err != nil {
		return Paths{}, errors.Wrap(errors.ErrCodeExportFailed, "failed to write trade markers", err)
	}

	if err := writeParquetFile(paths.Orders, orderRecords(res.Orders)); err != nil {
		return Paths{}, errors.Wrap(errors.ErrCodeExportFailed, "failed to write orders", err)
	}

	return paths, nil
}

// ReadEquity reads an equity curve written by Write.
func ReadEquity(path string) ([]EquityRecord, error) {
	return readParquetFile[EquityRecord](path)
}

// ReadMarkers reads trade markers written by Write.
func ReadMarkers(path string) ([]MarkerRecord, error) {
	return readParquetFile[MarkerRecord](path)
}

// ReadOrders reads orders written by Write.
func ReadOrders(path string) ([]OrderRecord, error) {
	return readParquetFile[OrderRecord](path)
}

func equityRecords(points []types.ChartPoint) []EquityRecord {
	records := make([]EquityRecord, 0, len(points))
	for _, p := range points {
		records = append(records, EquityRecord{
			Timestamp: p.Time.UnixMilli(),
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			Equity:    p.Equity,
		})
	}

	return records
}

func markerRecords(markers []types.TradeMarker) []MarkerRecord {
	records := make([]MarkerRecord, 0, len(markers))
	for _, m := range markers {
		records = append(records, MarkerRecord{
			Timestamp: m.Time.UnixMilli(),
			Side:      string(m.Side),
			Price:     m.Price,
			Size:      m.Size,
		})
	}

	return records
}

func orderRecords(orders []types.Order) []OrderRecord {
	records := make([]OrderRecord, 0, len(orders))
	for _, o := range orders {
		limit := 0.0
		if o.LimitPrice.IsSome() {
			limit = o.LimitPrice.Unwrap()
		}

		records = append(records, OrderRecord{
			ID:          o.ID,
			Symbol:      o.Symbol,
			Side:        string(o.Side),
			Type:        string(o.Type),
			Size:        o.Size,
			LimitPrice:  limit,
			CloseAll:    o.CloseAll,
			Status:      string(o.Status),
			Reason:      o.Reason,
			SubmittedAt: o.SubmittedAt.UnixMilli(),
			UpdatedAt:   o.UpdatedAt.UnixMilli(),
		})
	}

	return records
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExportFailed, "failed to read "+filepath.Base(path), err)
	}

	return rows, nil
}
