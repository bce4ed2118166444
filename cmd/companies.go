package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/protaige/outreach-cli/internal/engine"
	"github.com/protaige/outreach-cli/internal/llm"
	"github.com/protaige/outreach-cli/internal/runlog"
	"github.com/protaige/outreach-cli/internal/workflow"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Populate company research columns",
	Long: `Fill the business overview, target audience, products, and pricing
columns for every company row that is missing one of them.

Each company name (and optional website) is sent to Perplexity, which
returns a structured JSON profile. Rows with all four columns already
filled are skipped, so the command can be re-run after adding names.`,
	RunE: runCompanies,
}

func init() {
	f := companiesCmd.Flags()
	f.String("rows", "", "restrict to sheet rows, e.g. 5-20 or 3,7,9")

	rootCmd.AddCommand(companiesCmd)
}

func runCompanies(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("companies"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "companies"))

	wb, err := openWorkbook()
	if err != nil {
		return err
	}
	sheet, err := wb.Sheet(cfg.Workbook.CompanySheet)
	if err != nil {
		return err
	}
	recorder, err := newRecorder(wb, log)
	if err != nil {
		return err
	}

	completer, err := buildClients().For(llm.ProviderPerplexity)
	if err != nil {
		return err
	}

	rowsFlag, _ := cmd.Flags().GetString("rows")
	rows, err := parseRows(rowsFlag)
	if err != nil {
		return err
	}

	cols := workflow.DefaultCompanyColumns()
	analyzer := workflow.NewCompanyEnricher(completer, cfg.Perplexity.Model, cols, log)

	eng := engine.NewRowsEngine(sheet, analyzer, nil, engine.RowsConfig{
		KeyCol:      cols.Name,
		OutputCols:  cols.Outputs(),
		Policy:      engine.SkipWhenOutputsComplete,
		Rows:        rows,
		RowInterval: time.Duration(cfg.Matrix.PairIntervalMS) * time.Millisecond,
		Retry:       retryConfig(),
	}, log)

	recorder.Record("Company Research", runlog.StatusStarted, "populating company profiles")

	report, err := eng.Run(ctx)
	if err != nil {
		recorder.Record("Company Research", runlog.StatusError, err.Error())
		if saveErr := wb.Save(); saveErr != nil {
			log.Error("save workbook", zap.Error(saveErr))
		}
		return eris.Wrap(err, "companies")
	}

	recorder.Record("Company Research", runlog.StatusCompleted,
		reportDetails(report.Worked, report.Skipped, report.Failed))

	if err := wb.Save(); err != nil {
		return eris.Wrap(err, "companies: save workbook")
	}

	log.Info("company research finished",
		zap.Int("worked", report.Worked),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return nil
}
