// Package reporttable provides utilities for rendering the access report in a table format.
package reporttable

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/thirukguru/aws-ic-report/model"
)

const inlinePolicyPreviewLen = 60

// DrawReportTable renders the report rows grouped per account.
func DrawReportTable(rows []model.ReportRow) {
	if len(rows) == 0 {
		fmt.Println("\nNo assignments found for the requested accounts")
		return
	}

	var current string
	var t table.Writer
	for _, row := range rows {
		if row.AccountNumber != current {
			if t != nil {
				t.Render()
			}
			current = row.AccountNumber
			title := current
			if row.AccountName != "" {
				title = fmt.Sprintf("%s (%s)", current, row.AccountName)
			}
			fmt.Printf("\n🔐 Account %s\n", title)

			t = table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Permission Set", "Principal Type", "Group/User", "Resolved User", "AWS Managed", "Customer Managed", "Inline Policy"})
			t.SetStyle(table.StyleRounded)
		}
		t.AppendRow(table.Row{
			row.PermissionSetName,
			row.PrincipalType,
			row.GroupOrUserName,
			row.ResolvedUserName,
			row.ManagedPolicies,
			row.CustomerManagedPolicies,
			truncate(row.InlinePolicyJSON, inlinePolicyPreviewLen),
		})
	}
	if t != nil {
		t.Render()
	}
}

// DrawFailureTable renders incomplete accounts and degraded references,
// separate from the row data.
func DrawFailureTable(failures []model.AccountFailure) {
	if len(failures) == 0 {
		return
	}

	fmt.Printf("\n%s\n", text.FgYellow.Sprintf("⚠️  Incomplete data (%d)", len(failures)))
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Account", "Stage", "Kind", "Detail"})
	for _, f := range failures {
		t.AppendRow(table.Row{f.AccountID, f.Stage, f.Kind, truncate(f.Message, 80)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// DrawSummary prints the run totals.
func DrawSummary(summary model.RunSummary) {
	fmt.Printf("\n📊 %d rows across %d account(s)", summary.RowCount, summary.AccountsRequested)
	if summary.AccountsFailed > 0 {
		fmt.Printf(" - %s", text.FgRed.Sprintf("%d account(s) failed", summary.AccountsFailed))
	}
	fmt.Printf(" in %.1fs\n", summary.DurationSeconds)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
