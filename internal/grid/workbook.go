package grid

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/protaige/outreach-cli/internal/resilience"
)

// Workbook is an xlsx file holding the data sheets. Mutations happen in
// memory; Save writes the file back to disk.
type Workbook struct {
	file *xlsx.File
	path string
}

// OpenWorkbook opens an existing workbook, or starts a new one when the
// file does not exist yet.
func OpenWorkbook(path string) (*Workbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Workbook{file: xlsx.NewFile(), path: path}, nil
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "workbook: open %s", path)
	}
	return &Workbook{file: f, path: path}, nil
}

// Sheet returns a Store over the named sheet. A missing sheet is a
// ConfigurationError: the environment is unusable, not one row failing.
func (w *Workbook) Sheet(name string) (*WorkbookStore, error) {
	sheet, ok := w.file.Sheet[name]
	if !ok {
		return nil, &resilience.ConfigurationError{Reason: "sheet " + name + " not found in " + w.path}
	}
	return &WorkbookStore{wb: w, sheet: sheet, name: name}, nil
}

// EnsureSheet returns the named sheet, creating it with the given
// header row when absent.
func (w *Workbook) EnsureSheet(name string, header []string) (*WorkbookStore, error) {
	if sheet, ok := w.file.Sheet[name]; ok {
		return &WorkbookStore{wb: w, sheet: sheet, name: name}, nil
	}

	sheet, err := w.file.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "workbook: add sheet %s", name)
	}
	st := &WorkbookStore{wb: w, sheet: sheet, name: name}
	if len(header) > 0 {
		if _, err := st.AppendRow(header); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Save writes the workbook back to its path.
func (w *Workbook) Save() error {
	return eris.Wrapf(w.file.Save(w.path), "workbook: save %s", w.path)
}

// WorkbookStore is a Store over one sheet of a Workbook. Cell notes
// have no direct xlsx representation here, so they live in a shadow
// sheet named "<sheet> Notes" at the same coordinates.
type WorkbookStore struct {
	wb    *Workbook
	sheet *xlsx.Sheet
	name  string
}

func (s *WorkbookStore) cellAt(row, col int) *xlsx.Cell {
	for len(s.sheet.Rows) < row {
		s.sheet.AddRow()
	}
	r := s.sheet.Rows[row-1]
	for len(r.Cells) < col {
		r.AddCell()
	}
	return r.Cells[col-1]
}

func (s *WorkbookStore) ReadRegion(row, col, rows, cols int) ([][]string, error) {
	out := make([][]string, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]string, cols)
		for j := 0; j < cols; j++ {
			v, err := s.ReadCell(row+i, col+j)
			if err != nil {
				return nil, err
			}
			out[i][j] = v
		}
	}
	return out, nil
}

func (s *WorkbookStore) ReadCell(row, col int) (string, error) {
	if row < 1 || col < 1 || row > len(s.sheet.Rows) {
		return "", nil
	}
	r := s.sheet.Rows[row-1]
	if col > len(r.Cells) {
		return "", nil
	}
	return r.Cells[col-1].String(), nil
}

func (s *WorkbookStore) WriteCell(row, col int, value string) error {
	s.cellAt(row, col).SetString(value)
	return nil
}

func (s *WorkbookStore) SetStyle(row, col int, style Style) error {
	if style.Background != "" {
		cell := s.cellAt(row, col)
		st := cell.GetStyle()
		st.Fill = *xlsx.NewFill("solid", argb(style.Background), "00FFFFFF")
		st.ApplyFill = true
		cell.SetStyle(st)
	}

	if style.Note != "" {
		notes, err := s.wb.EnsureSheet(s.name+" Notes", nil)
		if err != nil {
			return err
		}
		if err := notes.WriteCell(row, col, style.Note); err != nil {
			return err
		}
	}
	return nil
}

func (s *WorkbookStore) AppendRow(values []string) (int, error) {
	row := s.sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
	return len(s.sheet.Rows), nil
}

func (s *WorkbookStore) Truncate(keep int) error {
	if keep < 0 {
		keep = 0
	}
	if keep < len(s.sheet.Rows) {
		s.sheet.Rows = s.sheet.Rows[:keep]
	}
	if s.sheet.MaxRow > keep {
		s.sheet.MaxRow = keep
	}
	return nil
}

func (s *WorkbookStore) Rows() int {
	return len(s.sheet.Rows)
}

func (s *WorkbookStore) Cols() int {
	max := 0
	for _, r := range s.sheet.Rows {
		if len(r.Cells) > max {
			max = len(r.Cells)
		}
	}
	return max
}

// argb converts "#b7e1cd" into the AARRGGBB form xlsx fills use.
func argb(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	return "FF" + strings.ToUpper(hex)
}
