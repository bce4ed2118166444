// Package runlog appends an operator-visible audit trail to a log sheet
// inside the workbook, mirroring each entry to the structured logger.
package runlog

import (
	"time"

	"go.uber.org/zap"

	"github.com/protaige/outreach-cli/internal/grid"
)

// SheetName is the workbook sheet the trail lives on.
const SheetName = "ProcessLog"

// Header is the log sheet's first row.
var Header = []string{"Timestamp", "Process", "Status", "Details"}

// Statuses recorded in the log sheet.
const (
	StatusStarted    = "Started"
	StatusInProgress = "In Progress"
	StatusSuccess    = "Success"
	StatusSkipped    = "Skipped"
	StatusError      = "Error"
	StatusPaused     = "Paused"
	StatusCompleted  = "Completed"
)

// Recorder appends log rows to a sheet.
type Recorder struct {
	store grid.Store
	log   *zap.Logger
	now   func() time.Time
}

// New builds a Recorder over the given sheet store.
func New(store grid.Store, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, log: log, now: time.Now}
}

// Record appends one entry. Sheet write failures are logged and
// swallowed; a broken audit trail must not sink the run itself.
func (r *Recorder) Record(process, status, details string) {
	r.log.Info("process log",
		zap.String("process", process),
		zap.String("status", status),
		zap.String("details", details))

	ts := r.now().Format(time.RFC3339)
	if _, err := r.store.AppendRow([]string{ts, process, status, details}); err != nil {
		r.log.Warn("failed to append process log row", zap.Error(err))
	}
}

// Clear drops every entry, keeping the header row.
func (r *Recorder) Clear() error {
	return r.store.Truncate(1)
}
