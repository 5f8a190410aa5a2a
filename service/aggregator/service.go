// Package aggregator walks the Identity Center object graph for a set of
// accounts and flattens it into report rows: one row per (account, permission
// set, principal, resolved user) combination.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thirukguru/aws-ic-report/model"
	"github.com/thirukguru/aws-ic-report/service/accounts"
	awsidentity "github.com/thirukguru/aws-ic-report/service/identitystore"
	awssso "github.com/thirukguru/aws-ic-report/service/ssoadmin"
)

var accountNumberRe = regexp.MustCompile(`^\d{12}$`)

// Aggregate produces the full report for the requested accounts. Accounts are
// processed concurrently but each account's rows keep traversal order, and the
// final sequence is merged in request order. Account-local failures degrade to
// entries in Result.Failures; authorization failures (and any failure under
// FailFast) abort the run.
func (s *service) Aggregate(ctx context.Context, accountIDs []string) (*Result, error) {
	started := time.Now()

	type outcome struct {
		rows     []model.ReportRow
		warnings []model.AccountFailure
		failure  *model.AccountFailure
	}
	outcomes := make([]outcome, len(accountIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, accountID := range accountIDs {
		g.Go(func() error {
			if !accountNumberRe.MatchString(accountID) {
				outcomes[i].failure = &model.AccountFailure{
					AccountID: accountID,
					Stage:     "validate-account",
					Kind:      string(KindConfiguration),
					Message:   fmt.Sprintf("%q is not a 12-digit account number", accountID),
				}
				return nil
			}

			rows, warnings, err := s.aggregateAccount(gctx, accountID)
			if err != nil {
				if Classify(err) == KindAuthorization || s.opts.FailFast {
					return err
				}
				outcomes[i].failure = failureFrom(accountID, err)
				return nil
			}
			outcomes[i].rows = rows
			outcomes[i].warnings = warnings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	succeeded := 0
	failed := 0
	for _, o := range outcomes {
		if o.failure != nil {
			failed++
			res.Failures = append(res.Failures, *o.failure)
			continue
		}
		succeeded++
		res.Rows = append(res.Rows, o.rows...)
		res.Failures = append(res.Failures, o.warnings...)
	}

	if s.opts.Sort {
		sortRows(res.Rows)
	}

	duration := time.Since(started)
	res.Summary = model.RunSummary{
		AccountsRequested: len(accountIDs),
		AccountsSucceeded: succeeded,
		AccountsFailed:    failed,
		RowCount:          len(res.Rows),
		Duration:          duration,
		DurationSeconds:   duration.Seconds(),
	}
	return res, nil
}

// accountRun holds per-account caches and the uniqueness guard. Group
// memberships and user names are cached because the same group commonly
// recurs across permission sets within one account.
type accountRun struct {
	groupNames   map[string]string
	groupMembers map[string][]string
	users        map[string]awsidentity.User
	seen         map[rowKey]struct{}
}

type rowKey struct {
	permissionSetArn string
	principalID      string
	resolvedUserID   string
}

func newAccountRun() *accountRun {
	return &accountRun{
		groupNames:   map[string]string{},
		groupMembers: map[string][]string{},
		users:        map[string]awsidentity.User{},
		seen:         map[rowKey]struct{}{},
	}
}

// mark records a row tuple, returning false if it was already emitted.
func (r *accountRun) mark(permissionSetArn, principalID, resolvedUserID string) bool {
	k := rowKey{permissionSetArn, principalID, resolvedUserID}
	if _, ok := r.seen[k]; ok {
		return false
	}
	r.seen[k] = struct{}{}
	return true
}

func (s *service) aggregateAccount(ctx context.Context, accountID string) ([]model.ReportRow, []model.AccountFailure, error) {
	meta := s.meta.Lookup(accountID)

	psArns, err := collectPages(ctx, pagerWithRetry(s.retry, func(ctx context.Context, token *string) ([]string, *string, error) {
		return s.sso.ListPermissionSetsPage(ctx, s.instance.InstanceArn, accountID, token)
	}))
	if err != nil {
		return nil, nil, stageErr(accountID, "list-permission-sets", err)
	}

	run := newAccountRun()

	var (
		rows     []model.ReportRow
		warnings []model.AccountFailure
	)
	for _, psArn := range psArns {
		ps, warn, err := s.resolvePermissionSet(ctx, accountID, psArn)
		if err != nil {
			return nil, nil, err
		}
		if warn != nil {
			warnings = append(warnings, *warn)
		}

		assignments, err := collectPages(ctx, pagerWithRetry(s.retry, func(ctx context.Context, token *string) ([]awssso.Assignment, *string, error) {
			return s.sso.ListAccountAssignmentsPage(ctx, s.instance.InstanceArn, accountID, psArn, token)
		}))
		if err != nil {
			return nil, nil, stageErr(accountID, "list-assignments", err)
		}

		for _, a := range assignments {
			emitted, warns, err := s.rowsForAssignment(ctx, run, meta, accountID, ps, a)
			if err != nil {
				return nil, nil, err
			}
			warnings = append(warnings, warns...)
			rows = append(rows, emitted...)
		}
	}
	return rows, warnings, nil
}

// permissionSet holds one permission set's resolved facets. All three policy
// facets may legitimately be empty.
type permissionSet struct {
	arn             string
	name            string
	managed         string
	customerManaged string
	inline          string
}

func (s *service) resolvePermissionSet(ctx context.Context, accountID, psArn string) (permissionSet, *model.AccountFailure, error) {
	ps := permissionSet{arn: psArn}

	var name string
	err := s.retry.do(ctx, func(ctx context.Context) error {
		var err error
		name, err = s.sso.DescribePermissionSet(ctx, s.instance.InstanceArn, psArn)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			// deleted between enumeration and resolution; degrade, don't abort
			return ps, warnRef(accountID, "describe-permission-set",
				fmt.Sprintf("permission set %s no longer resolves", psArn)), nil
		}
		return ps, nil, stageErr(accountID, "describe-permission-set", err)
	}
	ps.name = name

	attached, err := collectPages(ctx, pagerWithRetry(s.retry, func(ctx context.Context, token *string) ([]awssso.AttachedPolicy, *string, error) {
		return s.sso.ListManagedPoliciesPage(ctx, s.instance.InstanceArn, psArn, token)
	}))
	if err != nil {
		return ps, nil, stageErr(accountID, "list-managed-policies", err)
	}

	var awsManaged, customerManaged []string
	for _, p := range attached {
		if p.AWSManaged() {
			awsManaged = append(awsManaged, p.Name)
		} else {
			customerManaged = append(customerManaged, p.Name)
		}
	}

	refs, err := collectPages(ctx, pagerWithRetry(s.retry, func(ctx context.Context, token *string) ([]awssso.PolicyRef, *string, error) {
		return s.sso.ListCustomerManagedPolicyRefsPage(ctx, s.instance.InstanceArn, psArn, token)
	}))
	if err != nil {
		return ps, nil, stageErr(accountID, "list-customer-managed-policies", err)
	}
	for _, r := range refs {
		customerManaged = append(customerManaged, r.QualifiedName())
	}

	var inline string
	err = s.retry.do(ctx, func(ctx context.Context) error {
		var err error
		inline, err = s.sso.GetInlinePolicy(ctx, s.instance.InstanceArn, psArn)
		return err
	})
	if err != nil && !isNotFound(err) {
		return ps, nil, stageErr(accountID, "get-inline-policy", err)
	}

	ps.managed = strings.Join(awsManaged, ", ")
	ps.customerManaged = strings.Join(customerManaged, ", ")
	ps.inline = inline
	return ps, nil, nil
}

func (s *service) rowsForAssignment(ctx context.Context, run *accountRun, meta accounts.Record, accountID string, ps permissionSet, a awssso.Assignment) ([]model.ReportRow, []model.AccountFailure, error) {
	if a.PrincipalType == model.PrincipalTypeGroup {
		return s.groupRows(ctx, run, meta, accountID, ps, a)
	}
	return s.userRow(ctx, run, meta, accountID, ps, a)
}

// userRow resolves a direct USER assignment to exactly one row.
func (s *service) userRow(ctx context.Context, run *accountRun, meta accounts.Record, accountID string, ps permissionSet, a awssso.Assignment) ([]model.ReportRow, []model.AccountFailure, error) {
	row := baseRow(accountID, meta, ps)
	row.PrincipalID = a.PrincipalID
	row.PrincipalType = a.PrincipalType
	row.ResolvedUserID = a.PrincipalID

	var warnings []model.AccountFailure
	user, err := s.lookupUser(ctx, run, a.PrincipalID)
	switch {
	case err == nil:
		row.GroupOrUserName = user.Name()
		row.ResolvedUserName = user.Name()
		if user.ID != "" {
			row.ResolvedUserID = user.ID
		}
	case isNotFound(err):
		warnings = append(warnings, *warnRef(accountID, "describe-user",
			fmt.Sprintf("assigned user %s no longer resolves", a.PrincipalID)))
	default:
		return nil, nil, stageErr(accountID, "describe-user", err)
	}

	if !run.mark(ps.arn, a.PrincipalID, row.ResolvedUserID) {
		return nil, warnings, nil
	}
	return []model.ReportRow{row}, warnings, nil
}

// groupRows fans a GROUP assignment out to one row per current member. An
// empty group still yields one marker row so the assignment stays visible.
func (s *service) groupRows(ctx context.Context, run *accountRun, meta accounts.Record, accountID string, ps permissionSet, a awssso.Assignment) ([]model.ReportRow, []model.AccountFailure, error) {
	groupName, err := s.lookupGroupName(ctx, run, a.PrincipalID)
	if err != nil {
		if isNotFound(err) {
			row := baseRow(accountID, meta, ps)
			row.PrincipalID = a.PrincipalID
			row.PrincipalType = a.PrincipalType
			warning := warnRef(accountID, "describe-group",
				fmt.Sprintf("assigned group %s no longer resolves", a.PrincipalID))
			if !run.mark(ps.arn, a.PrincipalID, "") {
				return nil, []model.AccountFailure{*warning}, nil
			}
			return []model.ReportRow{row}, []model.AccountFailure{*warning}, nil
		}
		return nil, nil, stageErr(accountID, "describe-group", err)
	}

	members, err := s.lookupGroupMembers(ctx, run, a.PrincipalID)
	if err != nil {
		return nil, nil, stageErr(accountID, "list-group-memberships", err)
	}

	if len(members) == 0 {
		row := baseRow(accountID, meta, ps)
		row.PrincipalID = a.PrincipalID
		row.PrincipalType = a.PrincipalType
		row.GroupOrUserName = groupName
		row.ResolvedUserName = model.EmptyGroupMarker
		if !run.mark(ps.arn, a.PrincipalID, "") {
			return nil, nil, nil
		}
		return []model.ReportRow{row}, nil, nil
	}

	var (
		rows     []model.ReportRow
		warnings []model.AccountFailure
	)
	for _, userID := range members {
		row := baseRow(accountID, meta, ps)
		row.PrincipalID = a.PrincipalID
		row.PrincipalType = a.PrincipalType
		row.GroupOrUserName = groupName
		row.ResolvedUserID = userID

		user, err := s.lookupUser(ctx, run, userID)
		switch {
		case err == nil:
			row.ResolvedUserName = user.Name()
		case isNotFound(err):
			warnings = append(warnings, *warnRef(accountID, "describe-user",
				fmt.Sprintf("group member %s no longer resolves", userID)))
		default:
			return nil, nil, stageErr(accountID, "describe-user", err)
		}

		if run.mark(ps.arn, a.PrincipalID, userID) {
			rows = append(rows, row)
		}
	}
	return rows, warnings, nil
}

func (s *service) lookupUser(ctx context.Context, run *accountRun, userID string) (awsidentity.User, error) {
	if u, ok := run.users[userID]; ok {
		return u, nil
	}
	var u awsidentity.User
	err := s.retry.do(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.identity.DescribeUser(ctx, userID)
		return err
	})
	if err != nil {
		return awsidentity.User{}, err
	}
	run.users[userID] = u
	return u, nil
}

func (s *service) lookupGroupName(ctx context.Context, run *accountRun, groupID string) (string, error) {
	if name, ok := run.groupNames[groupID]; ok {
		return name, nil
	}
	var name string
	err := s.retry.do(ctx, func(ctx context.Context) error {
		var err error
		name, err = s.identity.DescribeGroup(ctx, groupID)
		return err
	})
	if err != nil {
		return "", err
	}
	run.groupNames[groupID] = name
	return name, nil
}

// lookupGroupMembers reads the group's membership live, deduplicated by user
// ID in first-seen order.
func (s *service) lookupGroupMembers(ctx context.Context, run *accountRun, groupID string) ([]string, error) {
	if members, ok := run.groupMembers[groupID]; ok {
		return members, nil
	}
	members, err := collectPages(ctx, pagerWithRetry(s.retry, func(ctx context.Context, token *string) ([]string, *string, error) {
		return s.identity.ListGroupMembershipsPage(ctx, groupID, token)
	}))
	if err != nil {
		return nil, err
	}
	members = dedupe(members)
	run.groupMembers[groupID] = members
	return members, nil
}

func baseRow(accountID string, meta accounts.Record, ps permissionSet) model.ReportRow {
	return model.ReportRow{
		AccountNumber:           accountID,
		AccountName:             meta.Name,
		AccountType:             meta.Type,
		AccountOwner:            meta.Owner,
		PermissionSetID:         ps.arn,
		PermissionSetName:       ps.name,
		ManagedPolicies:         ps.managed,
		CustomerManagedPolicies: ps.customerManaged,
		InlinePolicyJSON:        ps.inline,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sortRows(rows []model.ReportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.AccountNumber != b.AccountNumber {
			return a.AccountNumber < b.AccountNumber
		}
		if a.PermissionSetName != b.PermissionSetName {
			return a.PermissionSetName < b.PermissionSetName
		}
		if a.PrincipalID != b.PrincipalID {
			return a.PrincipalID < b.PrincipalID
		}
		return a.ResolvedUserID < b.ResolvedUserID
	})
}

func warnRef(accountID, stage, message string) *model.AccountFailure {
	return &model.AccountFailure{
		AccountID: accountID,
		Stage:     stage,
		Kind:      string(KindInconsistentReference),
		Message:   message,
	}
}

func failureFrom(accountID string, err error) *model.AccountFailure {
	stage := ""
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	return &model.AccountFailure{
		AccountID: accountID,
		Stage:     stage,
		Kind:      string(Classify(err)),
		Message:   err.Error(),
	}
}
