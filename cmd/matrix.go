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

const matrixJob = "matrix-narrative"

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Fill the collaboration matrix with narratives",
	Long: `Walk the pairwise collaboration matrix and fill every empty cell
with a short narrative describing how the two companies could work
together, written symmetrically into both orientations of the pair.

Company profiles come from the company sheet, so run "companies" first.
The walk checkpoints its position before each cell; an interrupted or
deadline-bounded run resumes exactly where it stopped.`,
	RunE: runMatrix,
}

func init() {
	f := matrixCmd.Flags()
	f.Duration("deadline", 0, "suspend gracefully after this duration (0=no limit)")

	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("matrix"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "matrix"))

	wb, err := openWorkbook()
	if err != nil {
		return err
	}
	companySheet, err := wb.Sheet(cfg.Workbook.CompanySheet)
	if err != nil {
		return err
	}
	matrixSheet, err := wb.Sheet(cfg.Workbook.MatrixSheet)
	if err != nil {
		return err
	}
	recorder, err := newRecorder(wb, log)
	if err != nil {
		return err
	}

	companies, err := workflow.LoadCompanies(companySheet, workflow.DefaultCompanyColumns())
	if err != nil {
		return eris.Wrap(err, "matrix: load companies")
	}
	log.Info("loaded company profiles", zap.Int("count", len(companies)))

	completer, err := buildClients().For(llm.ProviderAnthropic)
	if err != nil {
		return err
	}

	cp, err := openCheckpoint()
	if err != nil {
		return err
	}
	defer cp.Close()

	analyzer := workflow.NewNarrativeAnalyzer(completer, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, cfg.Anthropic.Temperature)

	engCfg := engine.MatrixConfig{
		Job:           matrixJob,
		PairInterval:  time.Duration(cfg.Matrix.PairIntervalMS) * time.Millisecond,
		DeadlineEvery: cfg.Matrix.DeadlineEvery,
		Retry:         retryConfig(),
	}
	if limit, _ := cmd.Flags().GetDuration("deadline"); limit > 0 {
		engCfg.Deadline = time.Now().Add(limit)
	}

	eng := engine.NewMatrixEngine(matrixSheet, cp, analyzer, workflow.CompanyResolver(companies), engCfg, log)

	recorder.Record("Collaboration Matrix", runlog.StatusStarted, "filling narratives")

	report, err := eng.Run(ctx)
	if err != nil {
		recorder.Record("Collaboration Matrix", runlog.StatusError, err.Error())
		if saveErr := wb.Save(); saveErr != nil {
			log.Error("save workbook", zap.Error(saveErr))
		}
		return eris.Wrap(err, "matrix")
	}

	if report.Suspended {
		recorder.Record("Collaboration Matrix", runlog.StatusPaused,
			reportDetails(report.Worked, report.Skipped, report.Failed))
		log.Info("matrix suspended at deadline",
			zap.Int("resume_row", report.Resume.Row),
			zap.Int("resume_col", report.Resume.Col))
	} else {
		recorder.Record("Collaboration Matrix", runlog.StatusCompleted,
			reportDetails(report.Worked, report.Skipped, report.Failed))
	}

	if err := wb.Save(); err != nil {
		return eris.Wrap(err, "matrix: save workbook")
	}

	log.Info("matrix run finished",
		zap.Int("worked", report.Worked),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Bool("suspended", report.Suspended))
	return nil
}
