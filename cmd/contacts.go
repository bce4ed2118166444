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

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Enrich contact rows with research and outreach drafts",
	Long: `Enrich each contact row in three chained steps: look up the
contact's LinkedIn background, find decision-makers at their company who
could champion a deal, and draft a personalized outreach email grounded
in both.

Contact cells hold the name on the first line and the email underneath;
the company is inferred from the email domain. Progress lands in the
status column so partial runs are visible on the sheet.`,
	RunE: runContacts,
}

func init() {
	f := contactsCmd.Flags()
	f.String("rows", "", "restrict to sheet rows, e.g. 5-20 or 3,7,9")

	rootCmd.AddCommand(contactsCmd)
}

func runContacts(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("contacts"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "contacts"))

	wb, err := openWorkbook()
	if err != nil {
		return err
	}
	sheet, err := wb.Sheet(cfg.Workbook.ContactsSheet)
	if err != nil {
		return err
	}
	recorder, err := newRecorder(wb, log)
	if err != nil {
		return err
	}

	clients := buildClients()
	research, err := clients.For(llm.ProviderPerplexity)
	if err != nil {
		return err
	}
	writer, err := clients.For(llm.ProviderAnthropic)
	if err != nil {
		return err
	}

	rowsFlag, _ := cmd.Flags().GetString("rows")
	rows, err := parseRows(rowsFlag)
	if err != nil {
		return err
	}

	cols := workflow.DefaultContactColumns()
	analyzer := workflow.NewContactEnricher(research, writer,
		cfg.Perplexity.Model, cfg.Anthropic.Model,
		cfg.Contacts.WriterMaxToken, cfg.Contacts.Product, cols, log)

	eng := engine.NewRowsEngine(sheet, analyzer, nil, engine.RowsConfig{
		KeyCol:      cols.Name,
		OutputCols:  cols.Outputs(),
		StatusCol:   cols.Status,
		Policy:      engine.SkipWhenOutputsComplete,
		Rows:        rows,
		RowInterval: time.Duration(cfg.Contacts.RowIntervalMS) * time.Millisecond,
		Retry:       retryConfig(),
	}, log)

	recorder.Record("Contact Enrichment", runlog.StatusStarted, "enriching contact rows")

	report, err := eng.Run(ctx)
	if err != nil {
		recorder.Record("Contact Enrichment", runlog.StatusError, err.Error())
		if saveErr := wb.Save(); saveErr != nil {
			log.Error("save workbook", zap.Error(saveErr))
		}
		return eris.Wrap(err, "contacts")
	}

	recorder.Record("Contact Enrichment", runlog.StatusCompleted,
		reportDetails(report.Worked, report.Skipped, report.Failed))

	if err := wb.Save(); err != nil {
		return eris.Wrap(err, "contacts: save workbook")
	}

	log.Info("contact enrichment finished",
		zap.Int("worked", report.Worked),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return nil
}
