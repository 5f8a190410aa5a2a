package model

import "time"

// Principal types as reported by the Identity Center account-assignment API.
const (
	PrincipalTypeUser  = "USER"
	PrincipalTypeGroup = "GROUP"
)

// EmptyGroupMarker is written to the resolved-user column when a GROUP
// assignment has no current members. The assignment itself still exists, so
// the row is emitted rather than silently dropped.
const EmptyGroupMarker = "(no members)"

// ReportRow is one flattened entry of the access report: one row per
// (account, permission set, principal, resolved user) combination.
type ReportRow struct {
	AccountNumber           string `json:"accountNumber"`
	AccountName             string `json:"accountName"`
	AccountType             string `json:"accountType"`
	AccountOwner            string `json:"accountOwner"`
	PrincipalID             string `json:"principalId"`
	PrincipalType           string `json:"principalType"`
	GroupOrUserName         string `json:"groupOrUserName"`
	ResolvedUserID          string `json:"resolvedUserId"`
	ResolvedUserName        string `json:"resolvedUserName"`
	PermissionSetID         string `json:"permissionSetId"`
	PermissionSetName       string `json:"permissionSetName"`
	ManagedPolicies         string `json:"managedPolicies"`
	CustomerManagedPolicies string `json:"customerManagedPolicies"`
	InlinePolicyJSON        string `json:"inlinePolicyJson"`
}

// ReportHeader lists the report file columns in output order.
var ReportHeader = []string{
	"Account ID",
	"Account Name",
	"Account Type",
	"Account Owner",
	"Principal ID",
	"Principal Type",
	"Group/User Name",
	"Users in Group / Direct User",
	"Permission Set Name",
	"AWS Managed Policies",
	"Customer Managed Policies",
	"Inline Policy JSON",
}

// Columns returns the row's values in ReportHeader order.
func (r ReportRow) Columns() []string {
	return []string{
		r.AccountNumber,
		r.AccountName,
		r.AccountType,
		r.AccountOwner,
		r.PrincipalID,
		r.PrincipalType,
		r.GroupOrUserName,
		r.ResolvedUserName,
		r.PermissionSetName,
		r.ManagedPolicies,
		r.CustomerManagedPolicies,
		r.InlinePolicyJSON,
	}
}

// AccountFailure records why one account's aggregation is incomplete.
// Failures are reported separately from the row data, never mixed into it.
type AccountFailure struct {
	AccountID string `json:"accountId"`
	Stage     string `json:"stage"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// RunSummary describes one report run.
type RunSummary struct {
	AccountsRequested int           `json:"accountsRequested"`
	AccountsSucceeded int           `json:"accountsSucceeded"`
	AccountsFailed    int           `json:"accountsFailed"`
	RowCount          int           `json:"rowCount"`
	Duration          time.Duration `json:"-"`
	DurationSeconds   float64       `json:"durationSeconds"`
}
