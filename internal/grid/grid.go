// Package grid abstracts the tabular data source the engines read and
// write. Coordinates are 1-based, matching the sheet layouts the column
// configuration describes.
package grid

// Style is the visual outcome state of a cell: a background fill color
// (hex, "#rrggbb") and an annotation note.
type Style struct {
	Background string
	Note       string
}

// Store is a single sheet of cells. Only single-cell writes are atomic;
// callers working from a bulk-read snapshot must tolerate it going
// stale against their own later writes.
type Store interface {
	// ReadRegion returns a rows x cols block starting at (row, col).
	// Cells outside the populated area read as "".
	ReadRegion(row, col, rows, cols int) ([][]string, error)
	ReadCell(row, col int) (string, error)
	WriteCell(row, col int, value string) error
	SetStyle(row, col int, style Style) error
	// AppendRow adds a row after the last populated row and returns its
	// 1-based index.
	AppendRow(values []string) (int, error)
	// Truncate drops every row past the first keep rows.
	Truncate(keep int) error
	Rows() int
	Cols() int
}

// IsEmpty reports whether a cell value counts as unpopulated.
func IsEmpty(value string) bool {
	return value == ""
}
