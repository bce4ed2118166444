// Package checkpoint persists resume cursors across externally
// terminated runs. The store is a small durable key-value map; cursor
// helpers layer the (row, col) convention the matrix engine uses on
// top of it.
package checkpoint

import (
	"context"
	"strconv"
)

// Store is a persistent key-value map scoped to this tool. Values
// survive process termination.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Cursor is the last attempted (row, col) position of a resumable run.
type Cursor struct {
	Row int
	Col int
}

// Key names mirror the script properties the workflows originally kept
// their progress under.
func rowKey(job string) string { return job + ".lastProcessedRow" }
func colKey(job string) string { return job + ".lastProcessedCol" }

// LoadCursor reads the saved cursor for a job. The second return is
// false when no cursor is present (fresh run).
func LoadCursor(ctx context.Context, s Store, job string) (Cursor, bool, error) {
	rowVal, rowOK, err := s.Get(ctx, rowKey(job))
	if err != nil {
		return Cursor{}, false, err
	}
	colVal, colOK, err := s.Get(ctx, colKey(job))
	if err != nil {
		return Cursor{}, false, err
	}
	if !rowOK || !colOK {
		return Cursor{}, false, nil
	}

	row, err1 := strconv.Atoi(rowVal)
	col, err2 := strconv.Atoi(colVal)
	if err1 != nil || err2 != nil {
		// A corrupt cursor is treated as absent rather than wedging the
		// run; the next save overwrites it.
		return Cursor{}, false, nil
	}
	return Cursor{Row: row, Col: col}, true, nil
}

// SaveCursor persists the cursor for a job. Called before each cell's
// work so an ungraceful termination resumes at the attempted cell.
func SaveCursor(ctx context.Context, s Store, job string, c Cursor) error {
	if err := s.Set(ctx, rowKey(job), strconv.Itoa(c.Row)); err != nil {
		return err
	}
	return s.Set(ctx, colKey(job), strconv.Itoa(c.Col))
}

// ClearCursor removes a job's cursor after full completion or an
// explicit operator reset.
func ClearCursor(ctx context.Context, s Store, job string) error {
	if err := s.Delete(ctx, rowKey(job)); err != nil {
		return err
	}
	return s.Delete(ctx, colKey(job))
}
