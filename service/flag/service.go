// Package flag provides command-line flag parsing.
package flag

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/thirukguru/aws-ic-report/model"
)

// NewService creates a new flag service.
func NewService() Service {
	return &service{}
}

// GetParsedFlags parses and returns the command-line flags.
func (s *service) GetParsedFlags() (model.Flags, error) {
	accounts := pflag.StringP("accounts", "a", "", "Comma-separated AWS account IDs (prompted interactively when omitted)")
	ownersFile := pflag.String("owners-file", "AWS Account Owners.csv", "CSV file with account ownership metadata")
	reportFile := pflag.StringP("report-file", "f", "ic_access_report.csv", "Report output file path")
	output := pflag.StringP("output", "o", "table", "Console output format (table or json)")
	profile := pflag.StringP("profile", "p", "", "AWS profile to use")
	region := pflag.StringP("region", "r", "", "AWS region to use")
	workers := pflag.Int("workers", 4, "Maximum accounts aggregated concurrently")
	maxAttempts := pflag.Int("max-attempts", 5, "Retry budget for throttled or transient API calls")
	failFast := pflag.Bool("fail-fast", false, "Abort the whole run on the first account failure")
	sortRows := pflag.Bool("sort", false, "Sort rows by account, permission set, principal and user for reproducible diffs")
	store := pflag.Bool("store", false, "Persist run history in local SQLite database")
	dbPath := pflag.String("db-path", "", "Custom SQLite database path (default ~/.aws-ic-report/history.db)")
	version := pflag.BoolP("version", "v", false, "Show version information")

	pflag.Parse()

	flags := model.Flags{
		Accounts:    SplitAccounts(*accounts),
		OwnersFile:  *ownersFile,
		ReportFile:  *reportFile,
		Output:      *output,
		Profile:     *profile,
		Region:      *region,
		Workers:     *workers,
		MaxAttempts: *maxAttempts,
		FailFast:    *failFast,
		Sort:        *sortRows,
		Store:       *store,
		DBPath:      *dbPath,
		Version:     *version,
	}

	return flags, nil
}

// SplitAccounts splits a comma-separated account list, trimming whitespace
// and dropping empty entries. Validation of the 12-digit format happens
// per-account in the engine so one bad entry does not block the rest.
func SplitAccounts(input string) []string {
	var out []string
	for _, a := range strings.Split(input, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}
