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

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Enrich a batch of LinkedIn profiles and discover new ones",
	Long: `Work one batch of unprocessed profile rows: draft a personalized
email subject and body for each, stamp the row with the next batch
number, and record its status.

When fewer unprocessed rows remain than the batch size, discovery asks
for profiles similar to the most recently processed ones and appends
them to the sheet before the batch runs. Duplicate LinkedIn URLs are
dropped regardless of case.`,
	RunE: runProfiles,
}

func init() {
	f := profilesCmd.Flags()
	f.Bool("no-discovery", false, "skip profile discovery even when the batch is short")

	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("profiles"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "profiles"))

	wb, err := openWorkbook()
	if err != nil {
		return err
	}
	sheet, err := wb.EnsureSheet(cfg.Workbook.ProfilesSheet, workflow.ProfileHeader)
	if err != nil {
		return err
	}
	recorder, err := newRecorder(wb, log)
	if err != nil {
		return err
	}

	clients := buildClients()
	drafter, err := clients.For(llm.ProviderOpenAI)
	if err != nil {
		return err
	}

	pitch := workflow.Pitch{
		Product:  cfg.Profiles.Product,
		Benefits: cfg.Profiles.Benefits,
	}

	cols := workflow.DefaultProfileColumns()
	analyzer := workflow.NewProfileEnricher(drafter, cfg.OpenAI.OutreachModel, pitch, cols, log)

	var discoverer engine.Discoverer
	if noDiscovery, _ := cmd.Flags().GetBool("no-discovery"); !noDiscovery {
		finder, err := clients.For(llm.ProviderPerplexity)
		if err != nil {
			return err
		}
		discoverer = workflow.NewProfileDiscoverer(finder, cfg.Perplexity.DiscoveryModel, pitch, log)
	}

	eng := engine.NewRowsEngine(sheet, analyzer, discoverer, engine.RowsConfig{
		KeyCol:        cols.Name,
		OutputCols:    cols.Outputs(),
		MarkerCol:     cols.Batch,
		CompletionCol: cols.Content,
		StatusCol:     cols.Status,
		Policy:        engine.SkipWhenMarked,
		BatchSize:     cfg.Profiles.BatchSize,
		SeedCount:     cfg.Profiles.SeedCount,
		NameCol:       cols.Name,
		URLCol:        cols.URL,
		RowInterval:   time.Duration(cfg.Profiles.RowIntervalMS) * time.Millisecond,
		Retry:         retryConfig(),
	}, log)

	recorder.Record("Profile Enrichment", runlog.StatusStarted, "working next profile batch")

	report, err := eng.Run(ctx)
	if err != nil {
		recorder.Record("Profile Enrichment", runlog.StatusError, err.Error())
		if saveErr := wb.Save(); saveErr != nil {
			log.Error("save workbook", zap.Error(saveErr))
		}
		return eris.Wrap(err, "profiles")
	}

	recorder.Record("Profile Enrichment", runlog.StatusCompleted,
		reportDetails(report.Worked, report.Skipped, report.Failed))

	if err := wb.Save(); err != nil {
		return eris.Wrap(err, "profiles: save workbook")
	}

	log.Info("profile batch finished",
		zap.Int("batch", report.Batch),
		zap.Int("worked", report.Worked),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("discovered", report.Discovered))
	return nil
}
