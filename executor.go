package sqlpager

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"gorm.io/gorm"
)

// Executor runs compiled statements.
type Executor interface {
	Query(ctx context.Context, query Query) ([]Row, error)
}

// ConcurrentExecutor is an Executor which can tell if it runs several
// statements at the same time safely. Fetch runs the page and count queries
// sequentially for any other Executor.
type ConcurrentExecutor interface {
	Executor
	Concurrent() bool
}

// Queryer is implemented by *sql.DB, *sql.Tx and *sql.Conn.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DBExecutor runs statements through database/sql passing bindings as
// sql.Named arguments. The driver has to understand ":name" placeholders.
//
// *sql.Tx and *sql.Conn pin a single connection, which cannot serve two open
// result sets, so only a *sql.DB runs statements concurrently.
type DBExecutor struct {
	DB Queryer
}

var _ ConcurrentExecutor = DBExecutor{}

func (e DBExecutor) Concurrent() bool {
	_, ok := e.DB.(*sql.DB)
	return ok
}

func (e DBExecutor) Query(ctx context.Context, query Query) ([]Row, error) {
	rows, err := e.DB.QueryContext(ctx, query.SQL, query.Args()...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w (SQL: %s)", err, query.SQL)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("cannot read columns: %w", err)
	}

	var ret []Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err = rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("cannot scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeBoundaryValue(values[i])
		}
		ret = append(ret, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot iterate rows: %w", err)
	}

	return ret, nil
}

// GORMExecutor runs statements through gorm.DB.Raw. A DB inside a
// transaction runs them one by one.
type GORMExecutor struct {
	DB *gorm.DB
}

var _ ConcurrentExecutor = GORMExecutor{}

func (e GORMExecutor) Concurrent() bool {
	if e.DB == nil || e.DB.Statement == nil {
		return false
	}

	switch e.DB.Statement.ConnPool.(type) {
	case gorm.TxCommitter, *sql.Conn:
		return false
	default:
		return true
	}
}

func (e GORMExecutor) Query(ctx context.Context, query Query) ([]Row, error) {
	var ret []map[string]any
	if err := scanGORM(ctx, e.DB, query, &ret); err != nil {
		return nil, err
	}

	return ret, nil
}

// QueryGORM runs query through gorm and scans the rows into T, which lets
// Paging work with typed Getters.
func QueryGORM[T any](ctx context.Context, db *gorm.DB, query Query) ([]T, error) {
	var ret []T
	if err := scanGORM(ctx, db, query, &ret); err != nil {
		return nil, err
	}

	return ret, nil
}

func scanGORM(ctx context.Context, db *gorm.DB, query Query, dest any) error {
	statement, args := query.GORM()

	tx := db.WithContext(ctx)
	if len(args) > 0 {
		tx = tx.Raw(statement, args)
	} else {
		tx = tx.Raw(statement)
	}

	if err := tx.Scan(dest).Error; err != nil {
		return fmt.Errorf("query failed: %w (SQL: %s)", err, query.SQL)
	}

	return nil
}

// readTotal extracts the "total" column of a count query result.
func readTotal(rows []Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	switch v := rows[0]["total"].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case nil:
		return 0, fmt.Errorf("count query returned no total column")
	default:
		return 0, fmt.Errorf("unexpected total type %T", v)
	}
}
