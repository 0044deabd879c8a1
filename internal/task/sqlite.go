package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var _ Store = (*SQLiteStore)(nil)

const createTasksTable = `CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	request    TEXT NOT NULL,
	result     TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore persists tasks in a SQLite database so statuses survive a
// restart.
type SQLiteStore struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
}

// NewSQLiteStore opens (or creates) the database at path and creates the
// tasks table.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to open task database", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTasksTable); err != nil {
		_ = db.Close()

		return nil, errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to create tasks table", err)
	}

	return &SQLiteStore{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, status types.TaskStatus) error {
	row, err := encode(status)
	if err != nil {
		return err
	}

	query, args, err := s.sq.Insert("tasks").
		Columns("id", "state", "request", "result", "error", "created_at", "updated_at").
		Values(row.id, row.state, row.request, row.result, row.err, row.createdAt, row.updatedAt).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to build insert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeTaskStoreFailed, err, "failed to create task %s", status.ID)
	}

	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, status types.TaskStatus) error {
	row, err := encode(status)
	if err != nil {
		return err
	}

	query, args, err := s.sq.Update("tasks").
		Set("state", row.state).
		Set("request", row.request).
		Set("result", row.result).
		Set("error", row.err).
		Set("updated_at", row.updatedAt).
		Where(squirrel.Eq{"id": status.ID}).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to build update", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeTaskStoreFailed, err, "failed to update task %s", status.ID)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Newf(errors.ErrCodeTaskNotFound, "task %s not found", status.ID)
	}

	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (types.TaskStatus, error) {
	query, args, err := s.selectTasks().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return types.TaskStatus{}, errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to build select", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.TaskStatus{}, errors.Wrapf(errors.ErrCodeTaskStoreFailed, err, "failed to read task %s", id)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return types.TaskStatus{}, err
	}

	if len(tasks) == 0 {
		return types.TaskStatus{}, errors.Newf(errors.ErrCodeTaskNotFound, "task %s not found", id)
	}

	return tasks[0], nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]types.TaskStatus, error) {
	query, args, err := s.selectTasks().OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to build select", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to list tasks", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) selectTasks() squirrel.SelectBuilder {
	return s.sq.Select("id", "state", "request", "result", "error", "created_at", "updated_at").From("tasks")
}

type taskRow struct {
	id        string
	state     string
	request   string
	result    sql.NullString
	err       string
	createdAt int64
	updatedAt int64
}

func encode(status types.TaskStatus) (taskRow, error) {
	request, err := json.Marshal(status.Request)
	if err != nil {
		return taskRow{}, errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to encode request", err)
	}

	row := taskRow{
		id:        status.ID,
		state:     string(status.State),
		request:   string(request),
		err:       status.Error,
		createdAt: status.CreatedAt.UnixNano(),
		updatedAt: status.UpdatedAt.UnixNano(),
	}

	if status.Result != nil {
		result, err := json.Marshal(status.Result)
		if err != nil {
			return taskRow{}, errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to encode result", err)
		}

		row.result = sql.NullString{String: string(result), Valid: true}
	}

	return row, nil
}

func scanTasks(rows *sql.Rows) ([]types.TaskStatus, error) {
	var out []types.TaskStatus

	for rows.Next() {
		var row taskRow
		if err := rows.Scan(&row.id, &row.state, &row.request, &row.result, &row.err, &row.createdAt, &row.updatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to scan task", err)
		}

		status := types.TaskStatus{
			ID:        row.id,
			State:     types.TaskState(row.state),
			Error:     row.err,
			CreatedAt: time.Unix(0, row.createdAt).UTC(),
			UpdatedAt: time.Unix(0, row.updatedAt).UTC(),
		}

		if err := json.Unmarshal([]byte(row.request), &status.Request); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeTaskStoreFailed, err, "failed to decode request of task %s", row.id)
		}

		if row.result.Valid {
			var result types.RunResult
			if err := json.Unmarshal([]byte(row.result.String), &result); err != nil {
				return nil, errors.Wrapf(errors.ErrCodeTaskStoreFailed, err, "failed to decode result of task %s", row.id)
			}

			status.Result = &result
		}

		out = append(out, status)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTaskStoreFailed, "failed to read tasks", err)
	}

	return out, nil
}

// OpenStore opens the store selected by driver: "memory" or "sqlite".
func OpenStore(driver, path string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown task store driver %q", driver)
	}
}
