package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBSource reads bars from parquet files named <dir>/<SYMBOL>.parquet.
type DuckDBSource struct {
	db     *sql.DB
	dir    string
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBSource opens an in-memory DuckDB used to query the parquet files
// under dir.
func NewDuckDBSource(dir string, log *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBSource{
		db:     db,
		dir:    dir,
		logger: log.Named("duckdb"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Path returns the parquet file backing symbol.
func (d *DuckDBSource) Path(symbol string) string {
	return ParquetPath(d.dir, symbol)
}

// ParquetPath returns <dir>/<SYMBOL>.parquet with path separators removed
// from the symbol.
func ParquetPath(dir, symbol string) string {
	name := strings.NewReplacer("/", "", "\\", "", "..", "").Replace(strings.ToUpper(symbol))

	return filepath.Join(dir, name+".parquet")
}

func (d *DuckDBSource) Load(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	path := d.Path(symbol)

	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "no data file for %s", symbol)
	}

	query, args, err := d.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From(fmt.Sprintf("read_parquet('%s')", strings.ReplaceAll(path, "'", "''"))).
		Where(squirrel.GtOrEq{"time": start}).
		Where(squirrel.Lt{"time": end}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	d.logger.Debug("Loading bars", zap.String("symbol", symbol), zap.String("path", path))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query %s", path)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		bar := types.Bar{Symbol: symbol}

		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bar.Time = bar.Time.UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read bars", err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s between %s and %s", symbol, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return bars, nil
}

// Count returns the number of stored bars for symbol.
func (d *DuckDBSource) Count(ctx context.Context, symbol string) (int, error) {
	path := d.Path(symbol)

	query, args, err := d.sq.
		Select("COUNT(*)").
		From(fmt.Sprintf("read_parquet('%s')", strings.ReplaceAll(path, "'", "''"))).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count %s", path)
	}

	return count, nil
}

// Close closes the underlying database.
func (d *DuckDBSource) Close() error {
	return d.db.Close()
}
