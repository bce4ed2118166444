package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protaige/outreach-cli/internal/grid"
	"github.com/protaige/outreach-cli/internal/model"
	"github.com/protaige/outreach-cli/internal/resilience"
)

func fillAnalyzer(calls *int, updates map[int]string) RowAnalyzer {
	return RowAnalyzerFunc(func(_ context.Context, _ Row) (RowResult, error) {
		*calls++
		return RowResult{Updates: updates}, nil
	})
}

func TestRowsRunEnrichesCandidates(t *testing.T) {
	store := grid.NewMemoryStoreFrom([][]string{
		{"Name", "Title", "About"},
		{"Ada", "", ""},
		{"Grace", "", ""},
		{"", "", ""},
	})

	calls := 0
	cfg := RowsConfig{KeyCol: 1, OutputCols: []int{2, 3}}
	eng := NewRowsEngine(store, fillAnalyzer(&calls, map[int]string{2: "Engineer", 3: "Builds things"}), nil, cfg, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Worked)
	assert.Equal(t, 2, calls, "blank key rows are not candidates")

	v, err := store.ReadCell(2, 2)
	require.NoError(t, err)
	assert.Equal(t, "Engineer", v)

	st, ok := store.StyleAt(2, 1)
	require.True(t, ok)
	assert.Equal(t, model.ColorCompleted, st.Background)
}

func TestRowsSkipWhenOutputsComplete(t *testing.T) {
	store := grid.NewMemoryStoreFrom([][]string{
		{"Name", "Title", "About"},
		{"Ada", "Engineer", "Done already"},
		{"Grace", "Admiral", ""},
	})

	calls := 0
	cfg := RowsConfig{KeyCol: 1, OutputCols: []int{2, 3}}
	eng := NewRowsEngine(store, fillAnalyzer(&calls, map[int]string{3: "Filled"}), nil, cfg, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Worked, "partially filled rows are reworked")
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, calls)
}

func TestRowsSkipWhenMarkedAndBatchNumbering(t *testing.T) {
	store := grid.NewMemoryStoreFrom([][]string{
		{"Name", "URL", "Out", "Batch"},
		{"Ada", "u1", "", "1"},
		{"Grace", "u2", "", "2"},
		{"Edsger", "u3", "", ""},
	})

	calls := 0
	cfg := RowsConfig{KeyCol: 1, OutputCols: []int{3}, MarkerCol: 4, Policy: SkipWhenMarked}
	eng := NewRowsEngine(store, fillAnalyzer(&calls, map[int]string{3: "x"}), nil, cfg, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Batch, "batch is one past the highest existing marker")
	assert.Equal(t, 1, report.Worked)
	assert.Equal(t, 2, report.Skipped, "marked rows are skipped even with empty outputs")
	assert.Equal(t, 1, calls)

	v, err := store.ReadCell(4, 4)
	require.NoError(t, err)
	assert.Equal(t, "3", v, "completed rows receive the batch number")
}

func TestRowsSkipWhenMarkedHonorsCompletionColumn(t *testing.T) {
	// A hand-filled row with content but no batch number counts as
	// processed; its content is never overwritten.
	store := grid.NewMemoryStoreFrom([][]string{
		{"Name", "URL", "Out", "Batch"},
		{"Ada", "u1", "curated by hand", ""},
		{"Grace", "u2", "", ""},
	})

	calls := 0
	cfg := RowsConfig{KeyCol: 1, OutputCols: []int{3}, MarkerCol: 4, CompletionCol: 3, Policy: SkipWhenMarked}
	eng := NewRowsEngine(store, fillAnalyzer(&calls, map[int]string{3: "generated"}), nil, cfg, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Worked)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, calls)

	v, err := store.ReadCell(2, 3)
	require.NoError(t, err)
	assert.Equal(t, "curated by hand", v)

	v, err = store.ReadCell(3, 3)
	require.NoError(t, err)
	assert.Equal(t, "generated", v)
}

func TestRowsBatchSizeCapsWork(t *testing.T) {
	rows := [][]string{{"Name", "Out"}}
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		rows = append(rows, []string{n, ""})
	}
	store := grid.NewMemoryStoreFrom(rows)

	calls := 0
	cfg := RowsConfig{KeyCol: 1, OutputCols: []int{2}, BatchSize: 5}
	eng := NewRowsEngine(store, fillAnalyzer(&calls, map[int]string{2: "x"}), nil, cfg, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Worked)
	assert.Equal(t, 5, calls)

	// The rows past the cap are untouched and picked up next run.
	v, err := store.ReadCell(7, 2)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestRowsExplicitRowFilter(t *testing.T) {
	store := grid.NewMemoryStoreFrom([][]string{
		{"Name", "Out"},
		{"Ada", ""},
		{"Grace", ""},
		{"Edsger", ""},
	})

	calls := 0
	cfg := RowsConfig{KeyCol: 1, OutputCols: []int{2}, Rows: []int{3}}
	eng := NewRowsEngine(store, fillAnalyzer(&calls, map[int]string{2: "x"}), nil, cfg, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Worked)

	v, err := store.ReadCell(3, 2)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
	v, err = store.ReadCell(2, 2)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestRowsValidationAndPermanentErrors(t *testing.T) {
	store := grid.NewMemoryStoreFrom([][]string{
		{"Name", "Out"},
		{"Ada", ""},
		{"Grace", ""},
		{"Edsger", ""},
	})

	analyzer := RowAnalyzerFunc(func(_ context.Context, row Row) (RowResult, error) {
		switch row.Cell(1) {
		case "Ada":
			return RowResult{}, &resilience.ValidationError{Reason: "no usable email"}
		case "Grace":
			return RowResult{}, &resilience.APIError{Provider: "openai", Status: 400, Body: "bad"}
		}
		return RowResult{Updates: map[int]string{2: "x"}}, nil
	})
	eng := NewRowsEngine(store, analyzer, nil, RowsConfig{KeyCol: 1, OutputCols: []int{2}}, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Worked)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)

	st, ok := store.StyleAt(2, 1)
	require.True(t, ok)
	assert.Equal(t, model.ColorSkipped, st.Background)
	assert.Contains(t, st.Note, "no usable email")

	st, ok = store.StyleAt(3, 1)
	require.True(t, ok)
	assert.Equal(t, model.ColorError, st.Background)
}

type stubDiscoverer struct {
	seeds []model.Seed
	got   []model.Seed
}

func (s *stubDiscoverer) Discover(_ context.Context, seeds []model.Seed) ([]model.Seed, error) {
	s.got = seeds
	return s.seeds, nil
}

func TestRowsDiscoveryAppendsAndDeduplicates(t *testing.T) {
	store := grid.NewMemoryStoreFrom([][]string{
		{"Name", "URL", "Out", "Batch"},
		{"Ada Lovelace", "https://a.example", "done", "1"},
		{"Grace Hopper", "https://b.example", "done", "1"},
	})

	disc := &stubDiscoverer{seeds: []model.Seed{
		{Name: "Grace Hopper Again", URL: "HTTPS://B.EXAMPLE"},
		{Name: "Katherine Johnson", URL: "https://c.example"},
	}}

	calls := 0
	cfg := RowsConfig{
		KeyCol:     1,
		OutputCols: []int{3},
		MarkerCol:  4,
		Policy:     SkipWhenMarked,
		BatchSize:  5,
		NameCol:    1,
		URLCol:     2,
		SeedCount:  5,
	}
	eng := NewRowsEngine(store, fillAnalyzer(&calls, map[int]string{3: "enriched"}), disc, cfg, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Discovered, "URLs matching under case folding are dropped")
	assert.Equal(t, 1, report.Worked)
	assert.Equal(t, 2, report.Batch)
	require.Len(t, disc.got, 2, "existing rows seed the discovery prompt")

	name, err := store.ReadCell(4, 1)
	require.NoError(t, err)
	assert.Equal(t, "Katherine Johnson", name)
	url, err := store.ReadCell(4, 2)
	require.NoError(t, err)
	assert.Equal(t, "https://c.example", url)
	batch, err := store.ReadCell(4, 4)
	require.NoError(t, err)
	assert.Equal(t, "2", batch)
}
