package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// Writer persists bars to a destination.
type Writer interface {
	Initialize() error
	Write(bar types.Bar) error
	// Finalize flushes written bars and returns the output path.
	Finalize() (string, error)
	Close() error
}

// DuckDBWriter buffers bars in an in-memory DuckDB table and exports them
// as one parquet file on Finalize.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
	count      int
}

// NewDuckDBWriter creates a writer producing outputPath.
func NewDuckDBWriter(outputPath string) *DuckDBWriter {
	return &DuckDBWriter{outputPath: outputPath}
}

func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to open duckdb", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE bars (
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to begin transaction", err)
	}

	w.stmt, err = w.tx.Prepare(`INSERT INTO bars (time, symbol, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to prepare statement", err)
	}

	return nil
}

func (w *DuckDBWriter) Write(bar types.Bar) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	if _, err := w.stmt.Exec(bar.Time.UTC(), bar.Symbol, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to insert bar", err)
	}

	w.count++

	return nil
}

// Finalize commits and exports the bars ordered by time. Duplicate
// timestamps keep a single row.
func (w *DuckDBWriter) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	if err := w.tx.Commit(); err != nil {
		_ = w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to commit", err)
	}

	w.tx = nil

	if dir := filepath.Dir(w.outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create output directory", err)
		}
	}

	query := fmt.Sprintf(`
		COPY (
			SELECT time, any_value(symbol) AS symbol, any_value(open) AS open, any_value(high) AS high,
				any_value(low) AS low, any_value(close) AS close, any_value(volume) AS volume
			FROM bars GROUP BY time ORDER BY time
		) TO '%s' (FORMAT PARQUET)`, strings.ReplaceAll(w.outputPath, "'", "''"))

	if _, err := w.db.Exec(query); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to export parquet", err)
	}

	return w.outputPath, nil
}

// Count returns the number of bars written so far.
func (w *DuckDBWriter) Count() int {
	return w.count
}

func (w *DuckDBWriter) Close() error {
	var errs []error

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			errs = append(errs, err)
		}

		w.stmt = nil
	}

	if w.tx != nil {
		_ = w.tx.Rollback()
		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			errs = append(errs, err)
		}

		w.db = nil
	}

	if len(errs) > 0 {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to close writer", errs[0])
	}

	return nil
}
