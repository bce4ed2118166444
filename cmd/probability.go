package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/protaige/outreach-cli/internal/checkpoint"
	"github.com/protaige/outreach-cli/internal/engine"
	"github.com/protaige/outreach-cli/internal/llm"
	"github.com/protaige/outreach-cli/internal/runlog"
	"github.com/protaige/outreach-cli/internal/workflow"
)

const probabilityJob = "matrix-probability"

var probabilityCmd = &cobra.Command{
	Use:   "probability",
	Short: "Score filled matrix cells with success probabilities",
	Long: `Walk the collaboration matrix and annotate every cell that already
holds a narrative with a probability-of-success score. The score drives
the cell's background tier color and a note carrying the model's
reasoning; the narrative text itself is left untouched.

The walk starts at the configured start row and column and checkpoints
independently of the narrative pass, so both can be resumed separately.`,
	RunE: runProbability,
}

var probabilityResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the scoring pass checkpoint",
	Long: `Delete the saved scoring cursor so the next "probability" run starts
over from the configured start position instead of resuming.`,
	RunE: runProbabilityReset,
}

func init() {
	f := probabilityCmd.Flags()
	f.Duration("deadline", 0, "suspend gracefully after this duration (0=no limit)")

	probabilityCmd.AddCommand(probabilityResetCmd)
	rootCmd.AddCommand(probabilityCmd)
}

func runProbability(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("probability"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "probability"))

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
		return eris.Wrap(err, "probability: load companies")
	}

	completer, err := buildClients().For(llm.ProviderOpenAI)
	if err != nil {
		return err
	}

	cp, err := openCheckpoint()
	if err != nil {
		return err
	}
	defer cp.Close()

	analyzer := workflow.NewProbabilityAnalyzer(completer, cfg.OpenAI.ScoringModel)

	engCfg := engine.MatrixConfig{
		Job:           probabilityJob,
		StartRow:      cfg.Probability.StartRow,
		StartCol:      cfg.Probability.StartCol,
		SkipWhenEmpty: true,
		PairInterval:  time.Duration(cfg.Probability.PairIntervalMS) * time.Millisecond,
		DeadlineEvery: cfg.Probability.DeadlineEvery,
		Retry:         retryConfig(),
	}
	if limit, _ := cmd.Flags().GetDuration("deadline"); limit > 0 {
		engCfg.Deadline = time.Now().Add(limit)
	}

	eng := engine.NewMatrixEngine(matrixSheet, cp, analyzer, workflow.CompanyResolver(companies), engCfg, log)

	recorder.Record("Probability Scoring", runlog.StatusStarted, "scoring filled cells")

	report, err := eng.Run(ctx)
	if err != nil {
		recorder.Record("Probability Scoring", runlog.StatusError, err.Error())
		if saveErr := wb.Save(); saveErr != nil {
			log.Error("save workbook", zap.Error(saveErr))
		}
		return eris.Wrap(err, "probability")
	}

	if report.Suspended {
		recorder.Record("Probability Scoring", runlog.StatusPaused,
			reportDetails(report.Worked, report.Skipped, report.Failed))
		log.Info("scoring suspended at deadline",
			zap.Int("resume_row", report.Resume.Row),
			zap.Int("resume_col", report.Resume.Col))
	} else {
		recorder.Record("Probability Scoring", runlog.StatusCompleted,
			reportDetails(report.Worked, report.Skipped, report.Failed))
	}

	if err := wb.Save(); err != nil {
		return eris.Wrap(err, "probability: save workbook")
	}

	log.Info("scoring run finished",
		zap.Int("worked", report.Worked),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Bool("suspended", report.Suspended))
	return nil
}

func runProbabilityReset(cmd *cobra.Command, _ []string) error {
	cp, err := openCheckpoint()
	if err != nil {
		return err
	}
	defer cp.Close()

	if err := checkpoint.ClearCursor(context.Background(), cp, probabilityJob); err != nil {
		return eris.Wrap(err, "probability: clear checkpoint")
	}

	zap.L().Info("scoring checkpoint cleared", zap.String("job", probabilityJob))
	return nil
}
