// Package engine drives grid processing: the symmetric pair matrix walk
// and batched row enrichment. Engines own traversal, checkpointing,
// pacing, and error policy; what each cell or row means is supplied by
// the workflows as analyzer callbacks.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/protaige/outreach-cli/internal/checkpoint"
	"github.com/protaige/outreach-cli/internal/grid"
	"github.com/protaige/outreach-cli/internal/model"
	"github.com/protaige/outreach-cli/internal/resilience"
)

// PairResult is the outcome of analyzing one entity pair. A non-empty
// Value is written to both cells of the pair; a non-nil Style is
// applied to both.
type PairResult struct {
	Value string
	Style *grid.Style
}

// PairAnalyzer computes the result for one ordered entity pair.
// current is the cell's content at the time of the call, which the
// analyzer may use as context or ignore.
type PairAnalyzer interface {
	AnalyzePair(ctx context.Context, a, b model.Entity, current string) (PairResult, error)
}

// PairAnalyzerFunc adapts a function to PairAnalyzer.
type PairAnalyzerFunc func(ctx context.Context, a, b model.Entity, current string) (PairResult, error)

func (f PairAnalyzerFunc) AnalyzePair(ctx context.Context, a, b model.Entity, current string) (PairResult, error) {
	return f(ctx, a, b, current)
}

// MatrixConfig tunes one matrix pass.
type MatrixConfig struct {
	// Job namespaces the checkpoint cursor so narrative and scoring
	// passes resume independently.
	Job string

	// HeaderRow holds entity names across the top; HeaderCol holds
	// them down the side. The data region starts one past each.
	HeaderRow int
	HeaderCol int

	// StartRow and StartCol set where the walk begins when no
	// checkpoint exists. Rows before StartRow are never visited;
	// StartCol applies only to the first row walked, and every later
	// row restarts at the first data column. Zero means the first
	// data cell after the headers.
	StartRow int
	StartCol int

	// SkipWhenEmpty inverts the skip rule: visit only cells that
	// already have content (the scoring pass annotates existing
	// narratives). When false, cells with content are skipped (the
	// narrative pass fills blanks).
	SkipWhenEmpty bool

	// Deadline, when set, bounds the run. The engine checks it every
	// DeadlineEvery worked pairs and suspends gracefully, leaving the
	// cursor pointing at the next unvisited cell.
	Deadline      time.Time
	DeadlineEvery int

	// PairInterval paces LLM calls. Zero disables pacing.
	PairInterval time.Duration

	Retry resilience.RetryConfig
}

func (c *MatrixConfig) setDefaults() {
	if c.HeaderRow == 0 {
		c.HeaderRow = 1
	}
	if c.HeaderCol == 0 {
		c.HeaderCol = 1
	}
	if c.StartRow == 0 {
		c.StartRow = c.HeaderRow + 1
	}
	if c.StartCol == 0 {
		c.StartCol = c.HeaderCol + 1
	}
	if c.DeadlineEvery == 0 {
		c.DeadlineEvery = 10
	}
}

// MatrixReport summarizes one matrix run.
type MatrixReport struct {
	Worked    int
	Skipped   int
	Failed    int
	Suspended bool
	// Resume is the saved cursor when Suspended.
	Resume checkpoint.Cursor
}

// MatrixEngine walks the symmetric pair region of a sheet, calling the
// analyzer for each cell that passes the skip rule and mirroring every
// write across the diagonal. Each pair is worked at most once per run
// regardless of which side of the diagonal the walk reaches first.
type MatrixEngine struct {
	store    grid.Store
	cp       checkpoint.Store
	analyzer PairAnalyzer
	resolve  func(name string) model.Entity
	cfg      MatrixConfig
	log      *zap.Logger
	limiter  *rate.Limiter
	now      func() time.Time

	// dataRow and dataCol anchor the square data region; all
	// entity-index and mirror math is relative to them.
	dataRow int
	dataCol int
}

// NewMatrixEngine builds an engine. resolve maps a header name to its
// entity; a nil resolve yields name-only entities.
func NewMatrixEngine(store grid.Store, cp checkpoint.Store, analyzer PairAnalyzer, resolve func(string) model.Entity, cfg MatrixConfig, log *zap.Logger) *MatrixEngine {
	cfg.setDefaults()
	if resolve == nil {
		resolve = func(name string) model.Entity { return model.Entity{Name: name} }
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &MatrixEngine{
		store:    store,
		cp:       cp,
		analyzer: analyzer,
		resolve:  resolve,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		dataRow:  cfg.HeaderRow + 1,
		dataCol:  cfg.HeaderCol + 1,
	}
	if cfg.PairInterval > 0 {
		e.limiter = rate.NewLimiter(rate.Every(cfg.PairInterval), 1)
	}
	return e
}

// Run walks the matrix from the resumed cursor, or from the configured
// start when no checkpoint exists. The cursor is persisted before each
// worked cell so a crash never loses more than the cell in flight.
func (e *MatrixEngine) Run(ctx context.Context) (MatrixReport, error) {
	var report MatrixReport

	names, err := e.headerNames()
	if err != nil {
		return report, err
	}
	if len(names) == 0 {
		e.log.Warn("matrix has no entities", zap.String("job", e.cfg.Job))
		return report, nil
	}

	// One bulk read up front; writes update the snapshot so skip
	// decisions track what this run has already produced.
	snapshot, err := e.store.ReadRegion(e.dataRow, e.dataCol, len(names), len(names))
	if err != nil {
		return report, eris.Wrap(err, "engine: read matrix region")
	}

	cursor, found, err := checkpoint.LoadCursor(ctx, e.cp, e.cfg.Job)
	if err != nil {
		return report, err
	}
	startRow, startCol := e.cfg.StartRow, e.cfg.StartCol
	if found {
		startRow, startCol = cursor.Row, cursor.Col
		e.log.Info("resuming matrix run",
			zap.String("job", e.cfg.Job),
			zap.Int("row", startRow),
			zap.Int("col", startCol))
	}

	endRow := e.dataRow + len(names) - 1
	endCol := e.dataCol + len(names) - 1
	done := make(map[[2]int]bool)
	attempts := 0

	for r := startRow; r <= endRow; r++ {
		// StartCol (or a resumed cursor column) applies only to the
		// walk's first row; later rows restart at the first data
		// column.
		firstCol := e.dataCol
		if r == startRow {
			firstCol = startCol
		}
		for c := firstCol; c <= endCol; c++ {
			ri, ci := r-e.dataRow, c-e.dataCol
			if ri == ci {
				continue
			}
			if done[[2]int{ri, ci}] {
				report.Skipped++
				continue
			}
			if e.skip(snapshot[ri][ci]) {
				report.Skipped++
				continue
			}

			if err := checkpoint.SaveCursor(ctx, e.cp, e.cfg.Job, checkpoint.Cursor{Row: r, Col: c}); err != nil {
				return report, err
			}

			if e.limiter != nil {
				if err := e.limiter.Wait(ctx); err != nil {
					return report, eris.Wrap(err, "engine: rate limit wait")
				}
			}

			if err := e.workCell(ctx, r, c, names[ri], names[ci], snapshot, &report); err != nil {
				return report, err
			}
			done[[2]int{ri, ci}] = true
			done[[2]int{ci, ri}] = true

			// Every cell reaching workCell counts toward the deadline
			// check, validation-skipped pairs included; they still
			// cost analyzer calls and pacing waits.
			attempts++
			if !e.cfg.Deadline.IsZero() && attempts%e.cfg.DeadlineEvery == 0 && e.now().After(e.cfg.Deadline) {
				next := e.nextCursor(r, c, endCol)
				if err := checkpoint.SaveCursor(ctx, e.cp, e.cfg.Job, next); err != nil {
					return report, err
				}
				report.Suspended = true
				report.Resume = next
				e.log.Info("deadline reached, suspending",
					zap.String("job", e.cfg.Job),
					zap.Int("row", next.Row),
					zap.Int("col", next.Col),
					zap.Int("worked", report.Worked))
				return report, nil
			}
		}
	}

	if err := checkpoint.ClearCursor(ctx, e.cp, e.cfg.Job); err != nil {
		return report, err
	}
	e.log.Info("matrix run complete",
		zap.String("job", e.cfg.Job),
		zap.Int("worked", report.Worked),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (e *MatrixEngine) skip(current string) bool {
	if e.cfg.SkipWhenEmpty {
		return grid.IsEmpty(current)
	}
	return !grid.IsEmpty(current)
}

func (e *MatrixEngine) workCell(ctx context.Context, r, c int, rowName, colName string, snapshot [][]string, report *MatrixReport) error {
	a := e.resolve(rowName)
	b := e.resolve(colName)
	current := snapshot[r-e.dataRow][c-e.dataCol]

	result, err := resilience.Retry(ctx, e.cfg.Retry, func(ctx context.Context) (PairResult, error) {
		return e.analyzer.AnalyzePair(ctx, a, b, current)
	})
	if err != nil {
		if ctx.Err() != nil || resilience.IsConfiguration(err) {
			return eris.Wrap(err, "engine: analyze pair")
		}
		if resilience.IsValidation(err) {
			report.Skipped++
			return e.markPair(r, c, snapshot, PairResult{
				Style: &grid.Style{Background: model.ColorSkipped, Note: "Skipped: " + err.Error()},
			})
		}
		report.Failed++
		e.log.Warn("pair analysis failed",
			zap.String("row_entity", rowName),
			zap.String("col_entity", colName),
			zap.Error(err))
		return e.markPair(r, c, snapshot, PairResult{
			Style: &grid.Style{Background: model.ColorError, Note: "Error: " + truncate(err.Error(), 180)},
		})
	}

	report.Worked++
	return e.markPair(r, c, snapshot, result)
}

// markPair applies a result to the cell and its mirror across the
// diagonal, keeping the snapshot in sync with live content.
func (e *MatrixEngine) markPair(r, c int, snapshot [][]string, result PairResult) error {
	ri, ci := r-e.dataRow, c-e.dataCol
	mr, mc := e.dataRow+ci, e.dataCol+ri

	for _, cell := range [][2]int{{r, c}, {mr, mc}} {
		if result.Value != "" {
			if err := e.store.WriteCell(cell[0], cell[1], result.Value); err != nil {
				return eris.Wrapf(err, "engine: write cell (%d,%d)", cell[0], cell[1])
			}
		}
		if result.Style != nil {
			if err := e.store.SetStyle(cell[0], cell[1], *result.Style); err != nil {
				return eris.Wrapf(err, "engine: style cell (%d,%d)", cell[0], cell[1])
			}
		}
	}
	if result.Value != "" {
		snapshot[ri][ci] = result.Value
		snapshot[ci][ri] = result.Value
	}
	return nil
}

// nextCursor advances past (r,c) in row-major order. Rows after the
// current one begin at the first data column.
func (e *MatrixEngine) nextCursor(r, c, endCol int) checkpoint.Cursor {
	if c < endCol {
		return checkpoint.Cursor{Row: r, Col: c + 1}
	}
	return checkpoint.Cursor{Row: r + 1, Col: e.dataCol}
}

// headerNames reads entity names down the header column until the
// first blank, then verifies the top header agrees.
func (e *MatrixEngine) headerNames() ([]string, error) {
	var names []string
	for r := e.cfg.HeaderRow + 1; ; r++ {
		v, err := e.store.ReadCell(r, e.cfg.HeaderCol)
		if err != nil {
			return nil, eris.Wrap(err, "engine: read header column")
		}
		if grid.IsEmpty(v) {
			break
		}
		names = append(names, strings.TrimSpace(v))
	}
	for i, name := range names {
		v, err := e.store.ReadCell(e.cfg.HeaderRow, e.cfg.HeaderCol+1+i)
		if err != nil {
			return nil, eris.Wrap(err, "engine: read header row")
		}
		if strings.TrimSpace(v) != name {
			return nil, &resilience.ConfigurationError{
				Reason: fmt.Sprintf("matrix headers disagree at index %d: row has %q, column has %q", i, v, name),
			}
		}
	}
	return names, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
