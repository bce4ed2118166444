package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/protaige/outreach-cli/internal/checkpoint"
	"github.com/protaige/outreach-cli/internal/config"
	"github.com/protaige/outreach-cli/internal/grid"
	"github.com/protaige/outreach-cli/internal/llm"
	"github.com/protaige/outreach-cli/internal/resilience"
	"github.com/protaige/outreach-cli/internal/runlog"
	"github.com/protaige/outreach-cli/pkg/anthropic"
	"github.com/protaige/outreach-cli/pkg/openai"
	"github.com/protaige/outreach-cli/pkg/perplexity"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "outreach-cli",
	Short: "Spreadsheet-driven outreach enrichment pipeline",
	Long:  "Enriches xlsx workbooks with LLM research: company profiles, pairwise collaboration narratives with probability scores, contact outreach drafts, and LinkedIn profile batches.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		// Tag every log line from this invocation so interleaved runs
		// against the same workbook can be told apart.
		zap.ReplaceGlobals(zap.L().With(zap.String("run_id", uuid.New().String())))

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildClients constructs provider clients for every configured key.
// Commands validate that the keys they need are present before calling.
func buildClients() llm.Clients {
	var clients llm.Clients

	if cfg.Perplexity.Key != "" {
		opts := []perplexity.Option{perplexity.WithModel(cfg.Perplexity.Model)}
		if cfg.Perplexity.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(cfg.Perplexity.BaseURL))
		}
		clients.Perplexity = perplexity.NewClient(cfg.Perplexity.Key, opts...)
	}
	if cfg.Anthropic.Key != "" {
		clients.Anthropic = anthropic.NewClient(cfg.Anthropic.Key)
	}
	if cfg.OpenAI.Key != "" {
		var opts []openai.Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		clients.OpenAI = openai.NewClient(cfg.OpenAI.Key, opts...)
	}

	return clients
}

func openWorkbook() (*grid.Workbook, error) {
	return grid.OpenWorkbook(cfg.Workbook.Path)
}

func openCheckpoint() (*checkpoint.SQLiteStore, error) {
	return checkpoint.NewSQLite(cfg.Checkpoint.Path)
}

// newRecorder attaches the audit trail to the workbook's log sheet,
// creating the sheet on first use.
func newRecorder(wb *grid.Workbook, log *zap.Logger) (*runlog.Recorder, error) {
	sheet, err := wb.EnsureSheet(cfg.Workbook.LogSheet, runlog.Header)
	if err != nil {
		return nil, err
	}
	return runlog.New(sheet, log), nil
}

func reportDetails(worked, skipped, failed int) string {
	return fmt.Sprintf("worked=%d skipped=%d failed=%d", worked, skipped, failed)
}

// parseRows accepts "5-20" as an inclusive range or "3,7,9" as a list
// of 1-based sheet rows. Empty input means no restriction.
func parseRows(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if lo, hi, ok := strings.Cut(s, "-"); ok {
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, eris.Errorf("invalid row range %q", s)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil || end < start || start < 1 {
			return nil, eris.Errorf("invalid row range %q", s)
		}
		rows := make([]int, 0, end-start+1)
		for r := start; r <= end; r++ {
			rows = append(rows, r)
		}
		return rows, nil
	}

	var rows []int
	for _, part := range strings.Split(s, ",") {
		r, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || r < 1 {
			return nil, eris.Errorf("invalid row %q", part)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
		// Malformed model output is worth a re-ask, not just
		// transport failures.
		ShouldRetry: resilience.RetryTransientOrExtraction,
	}
}
