// Package output provides a service for writing the report file and
// rendering results to the console.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/thirukguru/aws-ic-report/model"
	reporttable "github.com/thirukguru/aws-ic-report/shared/report_table"
)

// NewService creates a new output service with the specified format.
func NewService(format string) Service {
	f := FormatTable
	if format == "json" {
		f = FormatJSON
	}

	return &service{
		format: f,
	}
}

// WriteReportFile rewrites the report file from scratch: a header row plus
// one row per resolved (assignment, user) pair.
func (s *service) WriteReportFile(path string, rows []model.ReportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(model.ReportHeader); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row.Columns()); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush report file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}

func (s *service) Render(input RenderInput) error {
	if s.format == FormatJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(input); err != nil {
			return fmt.Errorf("failed to encode json output: %w", err)
		}
		return nil
	}

	reporttable.DrawReportTable(input.Rows)
	reporttable.DrawFailureTable(input.Failures)
	reporttable.DrawSummary(input.Summary)
	return nil
}
