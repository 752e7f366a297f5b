package store

import (
	"context"

	perr "nhanes/internal/platform/errors"
)

// Many runs sql and maps every row with scan; no rows is an empty, non nil slice
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	return gather(ctx, q, scan, 0, sql, args...)
}

// One runs sql expecting exactly one row; none is perr.ErrNotFound
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var zero T
	got, err := gather(ctx, q, scan, 2, sql, args...)
	switch {
	case err != nil:
		return zero, err
	case len(got) == 0:
		return zero, perr.ErrNotFound
	case len(got) > 1:
		return zero, perr.New(perr.ErrorCodeDB, "expected one row, got more")
	}
	return got[0], nil
}

// gather scans at most limit rows; limit 0 means all
func gather[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), limit int, sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, rows.Err()
}
