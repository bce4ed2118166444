package grid

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protaige/outreach-cli/internal/resilience"
)

func TestMemoryStoreReadWrite(t *testing.T) {
	s := NewMemoryStoreFrom([][]string{
		{"Name", "Website"},
		{"Acme", "acme.com"},
	})

	v, err := s.ReadCell(2, 1)
	require.NoError(t, err)
	assert.Equal(t, "Acme", v)

	// Reads outside the populated area are blank, not errors.
	v, err = s.ReadCell(10, 10)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.WriteCell(5, 3, "late"))
	v, _ = s.ReadCell(5, 3)
	assert.Equal(t, "late", v)
	assert.Equal(t, 5, s.Rows())
	assert.Equal(t, 3, s.Cols())
}

func TestMemoryStoreReadRegion(t *testing.T) {
	s := NewMemoryStoreFrom([][]string{
		{"h1", "h2", "h3"},
		{"a", "b", "c"},
		{"d", "e"},
	})

	region, err := s.ReadRegion(2, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d", "e", ""}}, region)
}

func TestMemoryStoreAppendAndStyle(t *testing.T) {
	s := NewMemoryStore()
	idx, err := s.AppendRow([]string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	require.NoError(t, s.SetStyle(1, 2, Style{Background: "#fff2cc", Note: "n"}))
	st, ok := s.StyleAt(1, 2)
	require.True(t, ok)
	assert.Equal(t, "#fff2cc", st.Background)
	assert.Equal(t, "n", st.Note)
}

func TestWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	wb, err := OpenWorkbook(path)
	require.NoError(t, err)

	sheet, err := wb.EnsureSheet("List of companies", []string{"Company Name", "Website"})
	require.NoError(t, err)

	_, err = sheet.AppendRow([]string{"Acme", "acme.com"})
	require.NoError(t, err)
	require.NoError(t, sheet.WriteCell(2, 3, "builds anvils"))
	require.NoError(t, sheet.SetStyle(2, 3, Style{Background: "#b7e1cd", Note: "Score: 80%"}))
	require.NoError(t, wb.Save())

	reopened, err := OpenWorkbook(path)
	require.NoError(t, err)

	sheet2, err := reopened.Sheet("List of companies")
	require.NoError(t, err)

	v, err := sheet2.ReadCell(2, 3)
	require.NoError(t, err)
	assert.Equal(t, "builds anvils", v)
	assert.Equal(t, 2, sheet2.Rows())

	notes, err := reopened.Sheet("List of companies Notes")
	require.NoError(t, err)
	note, err := notes.ReadCell(2, 3)
	require.NoError(t, err)
	assert.Equal(t, "Score: 80%", note)
}

func TestWorkbookMissingSheetIsConfigurationError(t *testing.T) {
	wb, err := OpenWorkbook(filepath.Join(t.TempDir(), "empty.xlsx"))
	require.NoError(t, err)

	_, err = wb.Sheet("CollaborationMatrix")
	require.Error(t, err)
	assert.True(t, resilience.IsConfiguration(err))
}

func TestArgb(t *testing.T) {
	assert.Equal(t, "FFB7E1CD", argb("#b7e1cd"))
	assert.Equal(t, "FFF4C7C3", argb("f4c7c3"))
}
