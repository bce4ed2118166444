package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/time/rate"

	"github.com/protaige/outreach-cli/internal/grid"
	"github.com/protaige/outreach-cli/internal/model"
	"github.com/protaige/outreach-cli/internal/resilience"
)

// Row is one sheet row handed to the analyzer. Cells are the full row,
// 0-indexed by column minus one.
type Row struct {
	Index int
	Cells []string
}

// Cell returns the 1-based column's value, or "" when out of range.
func (r Row) Cell(col int) string {
	if col < 1 || col > len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[col-1])
}

// RowResult maps 1-based columns to the values the analyzer produced.
type RowResult struct {
	Updates map[int]string
}

// RowAnalyzer enriches one row.
type RowAnalyzer interface {
	AnalyzeRow(ctx context.Context, row Row) (RowResult, error)
}

// RowAnalyzerFunc adapts a function to RowAnalyzer.
type RowAnalyzerFunc func(ctx context.Context, row Row) (RowResult, error)

func (f RowAnalyzerFunc) AnalyzeRow(ctx context.Context, row Row) (RowResult, error) {
	return f(ctx, row)
}

// Discoverer proposes new seed rows from recent existing ones. The
// engine appends the proposals it has room for after deduplication.
type Discoverer interface {
	Discover(ctx context.Context, seeds []model.Seed) ([]model.Seed, error)
}

// SkipPolicy decides which existing rows still need work.
type SkipPolicy int

const (
	// SkipWhenOutputsComplete skips rows whose output columns are all
	// filled. Partially enriched rows are reworked.
	SkipWhenOutputsComplete SkipPolicy = iota
	// SkipWhenMarked skips rows whose marker column is non-empty, or
	// whose completion column holds content when one is configured.
	SkipWhenMarked
)

// RowsConfig tunes one enrichment run.
type RowsConfig struct {
	HeaderRow int

	// KeyCol must be non-empty for a row to be a candidate. Its cell
	// also carries the row's status color.
	KeyCol int

	// OutputCols are the columns the analyzer fills; they drive the
	// SkipWhenOutputsComplete policy and completion marking.
	OutputCols []int

	// MarkerCol drives SkipWhenMarked and, when set, receives the
	// batch number on completion.
	MarkerCol int

	// CompletionCol, under SkipWhenMarked, treats a row with content
	// in this column as already processed even when its marker is
	// blank. Hand-filled rows keep their content.
	CompletionCol int

	// StatusCol, when set, receives the processing state text and the
	// status color. Otherwise the color goes on the key cell.
	StatusCol int

	Policy SkipPolicy

	// BatchSize caps rows worked per run. Zero means no cap.
	BatchSize int

	// Rows, when non-empty, restricts the run to these 1-based rows
	// instead of scanning. The skip policy still applies.
	Rows []int

	// Discovery settings; a nil Discoverer on the engine disables it.
	SeedCount int
	NameCol   int
	URLCol    int

	// RowInterval paces LLM calls. Zero disables pacing.
	RowInterval time.Duration

	Retry resilience.RetryConfig
}

func (c *RowsConfig) setDefaults() {
	if c.HeaderRow == 0 {
		c.HeaderRow = 1
	}
	if c.KeyCol == 0 {
		c.KeyCol = 1
	}
	if c.SeedCount == 0 {
		c.SeedCount = 5
	}
	if c.NameCol == 0 {
		c.NameCol = c.KeyCol
	}
}

// RowsReport summarizes one enrichment run.
type RowsReport struct {
	Worked     int
	Skipped    int
	Failed     int
	Discovered int
	// Batch is the number assigned to rows completed this run, when a
	// marker column is configured.
	Batch int
}

// RowsEngine walks sheet rows below the header, enriching each
// candidate through the analyzer and optionally growing the sheet
// through discovery before processing.
type RowsEngine struct {
	store      grid.Store
	analyzer   RowAnalyzer
	discoverer Discoverer
	cfg        RowsConfig
	log        *zap.Logger
	limiter    *rate.Limiter
	fold       cases.Caser
}

// NewRowsEngine builds an engine. discoverer may be nil.
func NewRowsEngine(store grid.Store, analyzer RowAnalyzer, discoverer Discoverer, cfg RowsConfig, log *zap.Logger) *RowsEngine {
	cfg.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	e := &RowsEngine{
		store:      store,
		analyzer:   analyzer,
		discoverer: discoverer,
		cfg:        cfg,
		log:        log,
		fold:       cases.Fold(),
	}
	if cfg.RowInterval > 0 {
		e.limiter = rate.NewLimiter(rate.Every(cfg.RowInterval), 1)
	}
	return e
}

// Run selects candidate rows, tops them up through discovery when
// configured, and enriches each in order.
func (e *RowsEngine) Run(ctx context.Context) (RowsReport, error) {
	var report RowsReport

	rows, err := e.loadRows()
	if err != nil {
		return report, err
	}

	if e.cfg.MarkerCol > 0 {
		report.Batch = e.nextBatch(rows)
	}

	candidates := e.selectCandidates(rows, &report)

	if e.discoverer != nil && (e.cfg.BatchSize == 0 || len(candidates) < e.cfg.BatchSize) {
		added, err := e.discover(ctx, rows)
		if err != nil {
			// Discovery failure should not sink the rows we already
			// have; log and continue with them.
			e.log.Warn("discovery failed", zap.Error(err))
		} else {
			report.Discovered = len(added)
			candidates = append(candidates, added...)
		}
	}

	if e.cfg.BatchSize > 0 && len(candidates) > e.cfg.BatchSize {
		candidates = append([]Row(nil), candidates[:e.cfg.BatchSize]...)
	}

	for _, row := range candidates {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return report, eris.Wrap(err, "engine: rate limit wait")
			}
		}
		if err := e.workRow(ctx, row, &report); err != nil {
			return report, err
		}
	}

	e.log.Info("row enrichment complete",
		zap.Int("worked", report.Worked),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("discovered", report.Discovered))
	return report, nil
}

func (e *RowsEngine) loadRows() ([]Row, error) {
	total := e.store.Rows()
	cols := e.store.Cols()
	if total <= e.cfg.HeaderRow {
		return nil, nil
	}
	region, err := e.store.ReadRegion(e.cfg.HeaderRow+1, 1, total-e.cfg.HeaderRow, cols)
	if err != nil {
		return nil, eris.Wrap(err, "engine: read rows")
	}
	rows := make([]Row, 0, len(region))
	for i, cells := range region {
		rows = append(rows, Row{Index: e.cfg.HeaderRow + 1 + i, Cells: cells})
	}
	return rows, nil
}

func (e *RowsEngine) selectCandidates(rows []Row, report *RowsReport) []Row {
	wanted := make(map[int]bool, len(e.cfg.Rows))
	for _, r := range e.cfg.Rows {
		wanted[r] = true
	}

	var out []Row
	for _, row := range rows {
		if len(wanted) > 0 && !wanted[row.Index] {
			continue
		}
		if row.Cell(e.cfg.KeyCol) == "" {
			continue
		}
		if e.skipRow(row) {
			report.Skipped++
			continue
		}
		out = append(out, row)
	}
	return out
}

func (e *RowsEngine) skipRow(row Row) bool {
	switch e.cfg.Policy {
	case SkipWhenMarked:
		if e.cfg.MarkerCol > 0 && row.Cell(e.cfg.MarkerCol) != "" {
			return true
		}
		return e.cfg.CompletionCol > 0 && row.Cell(e.cfg.CompletionCol) != ""
	default:
		if len(e.cfg.OutputCols) == 0 {
			return false
		}
		for _, col := range e.cfg.OutputCols {
			if row.Cell(col) == "" {
				return false
			}
		}
		return true
	}
}

// nextBatch returns one past the highest batch number in the marker
// column. Non-numeric markers count as occupied but contribute no
// number.
func (e *RowsEngine) nextBatch(rows []Row) int {
	max := 0
	for _, row := range rows {
		n, err := strconv.Atoi(row.Cell(e.cfg.MarkerCol))
		if err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// discover asks for new seeds similar to the most recent rows, drops
// any matching an existing row under case folding (by URL when a URL
// column is configured, by name otherwise), and appends the rest.
func (e *RowsEngine) discover(ctx context.Context, rows []Row) ([]Row, error) {
	var seeds []model.Seed
	for _, row := range rows {
		if name := row.Cell(e.cfg.NameCol); name != "" {
			seeds = append(seeds, model.Seed{Name: name, URL: row.Cell(e.cfg.URLCol)})
		}
	}
	if len(seeds) == 0 {
		return nil, nil
	}
	if len(seeds) > e.cfg.SeedCount {
		seeds = seeds[len(seeds)-e.cfg.SeedCount:]
	}

	found, err := resilience.Retry(ctx, e.cfg.Retry, func(ctx context.Context) ([]model.Seed, error) {
		return e.discoverer.Discover(ctx, seeds)
	})
	if err != nil {
		return nil, err
	}

	dedupeCol := e.cfg.NameCol
	if e.cfg.URLCol > 0 {
		dedupeCol = e.cfg.URLCol
	}
	known := make(map[string]bool, len(rows))
	for _, row := range rows {
		if v := row.Cell(dedupeCol); v != "" {
			known[e.fold.String(v)] = true
		}
	}

	var added []Row
	for _, seed := range found {
		name := strings.TrimSpace(seed.Name)
		if name == "" {
			continue
		}
		key := e.fold.String(name)
		if e.cfg.URLCol > 0 {
			key = e.fold.String(strings.TrimSpace(seed.URL))
		}
		if key == "" || known[key] {
			continue
		}
		known[key] = true

		width := e.cfg.NameCol
		if e.cfg.URLCol > width {
			width = e.cfg.URLCol
		}
		cells := make([]string, width)
		cells[e.cfg.NameCol-1] = name
		if e.cfg.URLCol > 0 {
			cells[e.cfg.URLCol-1] = strings.TrimSpace(seed.URL)
		}
		idx, err := e.store.AppendRow(cells)
		if err != nil {
			return added, eris.Wrap(err, "engine: append discovered row")
		}
		added = append(added, Row{Index: idx, Cells: cells})
	}
	return added, nil
}

func (e *RowsEngine) workRow(ctx context.Context, row Row, report *RowsReport) error {
	if err := e.setState(row.Index, model.StateProcessing, model.ColorProcessing, ""); err != nil {
		return eris.Wrapf(err, "engine: mark row %d processing", row.Index)
	}

	result, err := resilience.Retry(ctx, e.cfg.Retry, func(ctx context.Context) (RowResult, error) {
		return e.analyzer.AnalyzeRow(ctx, row)
	})
	if err != nil {
		if ctx.Err() != nil || resilience.IsConfiguration(err) {
			return eris.Wrapf(err, "engine: enrich row %d", row.Index)
		}
		if resilience.IsValidation(err) {
			report.Skipped++
			return e.setState(row.Index, model.StateSkipped, model.ColorSkipped, err.Error())
		}
		report.Failed++
		e.log.Warn("row enrichment failed", zap.Int("row", row.Index), zap.Error(err))
		return e.setState(row.Index, model.StateError, model.ColorError, truncate(err.Error(), 180))
	}

	for col, value := range result.Updates {
		if err := e.store.WriteCell(row.Index, col, value); err != nil {
			return eris.Wrapf(err, "engine: write row %d col %d", row.Index, col)
		}
	}
	if e.cfg.MarkerCol > 0 {
		if err := e.store.WriteCell(row.Index, e.cfg.MarkerCol, strconv.Itoa(report.Batch)); err != nil {
			return eris.Wrapf(err, "engine: mark row %d batch", row.Index)
		}
	}
	if err := e.setState(row.Index, model.StateCompleted, model.ColorCompleted, ""); err != nil {
		return eris.Wrapf(err, "engine: mark row %d completed", row.Index)
	}
	report.Worked++
	return nil
}

// setState colors the row's status cell and, when a dedicated status
// column exists, records the state text there with any detail.
func (e *RowsEngine) setState(row int, state model.ProcessingState, color, detail string) error {
	col := e.cfg.StatusCol
	if col == 0 {
		col = e.cfg.KeyCol
	}
	if e.cfg.StatusCol > 0 {
		text := string(state)
		if detail != "" {
			text += ": " + detail
		}
		if err := e.store.WriteCell(row, e.cfg.StatusCol, text); err != nil {
			return err
		}
	}
	style := grid.Style{Background: color}
	if e.cfg.StatusCol == 0 && detail != "" {
		style.Note = detail
	}
	return e.store.SetStyle(row, col, style)
}
