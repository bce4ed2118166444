package grid

// MemoryStore is an in-memory Store. It grows on write and append, and
// keeps styles in a side map so tests can assert on cell classification.
type MemoryStore struct {
	cells  [][]string
	styles map[[2]int]Style
}

// NewMemoryStore creates an empty in-memory sheet.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{styles: make(map[[2]int]Style)}
}

// NewMemoryStoreFrom creates an in-memory sheet pre-populated with rows.
func NewMemoryStoreFrom(rows [][]string) *MemoryStore {
	s := NewMemoryStore()
	for _, r := range rows {
		row := make([]string, len(r))
		copy(row, r)
		s.cells = append(s.cells, row)
	}
	return s
}

func (s *MemoryStore) grow(row, col int) {
	for len(s.cells) < row {
		s.cells = append(s.cells, nil)
	}
	for len(s.cells[row-1]) < col {
		s.cells[row-1] = append(s.cells[row-1], "")
	}
}

func (s *MemoryStore) ReadRegion(row, col, rows, cols int) ([][]string, error) {
	out := make([][]string, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]string, cols)
		for j := 0; j < cols; j++ {
			v, _ := s.ReadCell(row+i, col+j)
			out[i][j] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) ReadCell(row, col int) (string, error) {
	if row < 1 || col < 1 || row > len(s.cells) || col > len(s.cells[row-1]) {
		return "", nil
	}
	return s.cells[row-1][col-1], nil
}

func (s *MemoryStore) WriteCell(row, col int, value string) error {
	s.grow(row, col)
	s.cells[row-1][col-1] = value
	return nil
}

func (s *MemoryStore) SetStyle(row, col int, style Style) error {
	s.styles[[2]int{row, col}] = style
	return nil
}

// StyleAt returns the style last set on a cell.
func (s *MemoryStore) StyleAt(row, col int) (Style, bool) {
	st, ok := s.styles[[2]int{row, col}]
	return st, ok
}

func (s *MemoryStore) AppendRow(values []string) (int, error) {
	row := make([]string, len(values))
	copy(row, values)
	s.cells = append(s.cells, row)
	return len(s.cells), nil
}

func (s *MemoryStore) Truncate(keep int) error {
	if keep < 0 {
		keep = 0
	}
	if keep < len(s.cells) {
		s.cells = s.cells[:keep]
	}
	for key := range s.styles {
		if key[0] > keep {
			delete(s.styles, key)
		}
	}
	return nil
}

func (s *MemoryStore) Rows() int {
	return len(s.cells)
}

func (s *MemoryStore) Cols() int {
	max := 0
	for _, r := range s.cells {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}
