package output

import "github.com/thirukguru/aws-ic-report/model"

// Format is the console rendering format.
type Format int

const (
	FormatTable Format = iota
	FormatJSON
)

type service struct {
	format Format
}

// RenderInput carries everything the console rendering needs. Failures are
// rendered separately from row data.
type RenderInput struct {
	Summary  model.RunSummary       `json:"summary"`
	Rows     []model.ReportRow      `json:"rows"`
	Failures []model.AccountFailure `json:"failures"`
}

// Service renders results to the console and writes the report file.
type Service interface {
	WriteReportFile(path string, rows []model.ReportRow) error
	Render(input RenderInput) error
}
