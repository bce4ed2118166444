package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Manage the workbook's process log sheet",
}

var logClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all process log entries, keeping the header",
	RunE:  runLogClear,
}

func init() {
	logCmd.AddCommand(logClearCmd)
	rootCmd.AddCommand(logCmd)
}

func runLogClear(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate("log"); err != nil {
		return err
	}

	wb, err := openWorkbook()
	if err != nil {
		return err
	}
	recorder, err := newRecorder(wb, zap.L())
	if err != nil {
		return err
	}

	if err := recorder.Clear(); err != nil {
		return eris.Wrap(err, "log: clear sheet")
	}
	if err := wb.Save(); err != nil {
		return eris.Wrap(err, "log: save workbook")
	}

	zap.L().Info("process log cleared")
	return nil
}
