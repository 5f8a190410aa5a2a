package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thirukguru/aws-ic-report/model"
	"github.com/thirukguru/aws-ic-report/service/accounts"
	awsidentity "github.com/thirukguru/aws-ic-report/service/identitystore"
	awssso "github.com/thirukguru/aws-ic-report/service/ssoadmin"
)

const (
	testAccount  = "007952453283"
	testAccountB = "111122223333"
	psReadOnly   = "arn:aws:sso:::permissionSet/ssoins-test/ps-readonly"
	psAdmin      = "arn:aws:sso:::permissionSet/ssoins-test/ps-admin"
)

func newTestService(t *testing.T, sso *fakeSSO, identity *fakeIdentity, store accounts.Store, opts Options) *service {
	t.Helper()
	svc, ok := NewService(awssso.Instance{
		InstanceArn:     "arn:aws:sso:::instance/ssoins-test",
		IdentityStoreID: "d-test",
	}, sso, identity, store, opts).(*service)
	require.True(t, ok)
	svc.retry.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

// devScenario is one account with a single ReadOnly permission set assigned to
// the Developers group, whose two members are alice and bob.
func devScenario() (*fakeSSO, *fakeIdentity, accounts.Store) {
	sso := newFakeSSO()
	sso.psPages[testAccount] = [][]string{{psReadOnly}}
	sso.psNames[psReadOnly] = "PS-ReadOnly"
	sso.managedPages[psReadOnly] = [][]awssso.AttachedPolicy{{
		{Name: "ReadOnlyAccess", Arn: "arn:aws:iam::aws:policy/ReadOnlyAccess"},
	}}
	sso.assignmentPages[testAccount+"|"+psReadOnly] = [][]awssso.Assignment{{
		{AccountID: testAccount, PermissionSetArn: psReadOnly, PrincipalID: "g-devs", PrincipalType: model.PrincipalTypeGroup},
	}}

	identity := newFakeIdentity()
	identity.groups["g-devs"] = "Developers"
	identity.memberPages["g-devs"] = [][]string{{"u-alice", "u-bob"}}
	identity.users["u-alice"] = awsidentity.User{ID: "u-alice", UserName: "alice", DisplayName: "Alice Anders"}
	identity.users["u-bob"] = awsidentity.User{ID: "u-bob", UserName: "bob", DisplayName: "Bob Binns"}

	store := accounts.NewStore(map[string]accounts.Record{
		testAccount: {Number: testAccount, Name: "Dev-App", Owner: "Venura U.", Type: "Development"},
	})
	return sso, identity, store
}

func TestAggregateGroupFanOut(t *testing.T) {
	sso, identity, store := devScenario()
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Empty(t, res.Failures)

	for _, row := range res.Rows {
		assert.Equal(t, testAccount, row.AccountNumber)
		assert.Equal(t, "Dev-App", row.AccountName)
		assert.Equal(t, "Venura U.", row.AccountOwner)
		assert.Equal(t, "Development", row.AccountType)
		assert.Equal(t, "g-devs", row.PrincipalID)
		assert.Equal(t, model.PrincipalTypeGroup, row.PrincipalType)
		assert.Equal(t, "Developers", row.GroupOrUserName)
		assert.Equal(t, "PS-ReadOnly", row.PermissionSetName)
		assert.Equal(t, "ReadOnlyAccess", row.ManagedPolicies)
	}
	assert.Equal(t, "u-alice", res.Rows[0].ResolvedUserID)
	assert.Equal(t, "Alice Anders", res.Rows[0].ResolvedUserName)
	assert.Equal(t, "u-bob", res.Rows[1].ResolvedUserID)
	assert.Equal(t, "Bob Binns", res.Rows[1].ResolvedUserName)

	assert.Equal(t, 1, res.Summary.AccountsRequested)
	assert.Equal(t, 1, res.Summary.AccountsSucceeded)
	assert.Equal(t, 0, res.Summary.AccountsFailed)
	assert.Equal(t, 2, res.Summary.RowCount)
}

func TestAggregateDirectUserAssignment(t *testing.T) {
	sso, identity, store := devScenario()
	sso.assignmentPages[testAccount+"|"+psReadOnly] = [][]awssso.Assignment{{
		{AccountID: testAccount, PermissionSetArn: psReadOnly, PrincipalID: "u-alice", PrincipalType: model.PrincipalTypeUser},
	}}
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, model.PrincipalTypeUser, row.PrincipalType)
	assert.Equal(t, "u-alice", row.PrincipalID)
	assert.Equal(t, "Alice Anders", row.GroupOrUserName)
	assert.Equal(t, "u-alice", row.ResolvedUserID)
	assert.Equal(t, "Alice Anders", row.ResolvedUserName)
}

func TestAggregatePaginationComplete(t *testing.T) {
	sso, identity, store := devScenario()
	// permission sets split across three pages, assignments for the first one
	// across two pages
	sso.psPages[testAccount] = [][]string{{psReadOnly}, {psAdmin}, {"arn:aws:sso:::permissionSet/ssoins-test/ps-billing"}}
	for _, arn := range []string{psAdmin, "arn:aws:sso:::permissionSet/ssoins-test/ps-billing"} {
		sso.psNames[arn] = arn
		sso.assignmentPages[testAccount+"|"+arn] = [][]awssso.Assignment{{
			{AccountID: testAccount, PermissionSetArn: arn, PrincipalID: "u-alice", PrincipalType: model.PrincipalTypeUser},
		}}
	}
	sso.assignmentPages[testAccount+"|"+psReadOnly] = [][]awssso.Assignment{
		{{AccountID: testAccount, PermissionSetArn: psReadOnly, PrincipalID: "u-alice", PrincipalType: model.PrincipalTypeUser}},
		{{AccountID: testAccount, PermissionSetArn: psReadOnly, PrincipalID: "u-bob", PrincipalType: model.PrincipalTypeUser}},
	}
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 4)

	// every page fetched exactly once, and no page beyond the last
	for _, page := range []string{"0", "1", "2"} {
		assert.Equal(t, 1, sso.callCount("ListPermissionSets:"+testAccount+":"+page), "ps page %s", page)
	}
	assert.Equal(t, 0, sso.callCount("ListPermissionSets:"+testAccount+":3"))
	for _, page := range []string{"0", "1"} {
		assert.Equal(t, 1, sso.callCount("ListAssignments:"+testAccount+":"+psReadOnly+":"+page), "assignment page %s", page)
	}
}

func TestAggregateDeduplicatesGroupMembers(t *testing.T) {
	sso, identity, store := devScenario()
	identity.users["u-carol"] = awsidentity.User{ID: "u-carol", UserName: "carol"}
	// u-bob appears on both membership pages; only one row may result
	identity.memberPages["g-devs"] = [][]string{{"u-alice", "u-bob"}, {"u-bob", "u-carol"}}
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "u-alice", res.Rows[0].ResolvedUserID)
	assert.Equal(t, "u-bob", res.Rows[1].ResolvedUserID)
	assert.Equal(t, "u-carol", res.Rows[2].ResolvedUserID)
}

func TestAggregateDuplicateAssignmentsCollapse(t *testing.T) {
	sso, identity, store := devScenario()
	dup := awssso.Assignment{AccountID: testAccount, PermissionSetArn: psReadOnly, PrincipalID: "g-devs", PrincipalType: model.PrincipalTypeGroup}
	sso.assignmentPages[testAccount+"|"+psReadOnly] = [][]awssso.Assignment{{dup}, {dup}}
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)

	type key struct{ ps, principal, user string }
	seen := map[key]bool{}
	for _, row := range res.Rows {
		k := key{row.PermissionSetID, row.PrincipalID, row.ResolvedUserID}
		assert.False(t, seen[k], "duplicate row %+v", k)
		seen[k] = true
	}
	// the cached membership listing is read once
	assert.Equal(t, 1, identity.callCount("ListGroupMemberships:g-devs:0"))
}

func TestAggregateEmptyGroupMarkerRow(t *testing.T) {
	sso, identity, store := devScenario()
	identity.memberPages["g-devs"] = nil
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, "Developers", row.GroupOrUserName)
	assert.Equal(t, model.EmptyGroupMarker, row.ResolvedUserName)
	assert.Empty(t, row.ResolvedUserID)
	assert.Empty(t, res.Failures)
}

func TestAggregateMissingMetadataLeavesBlanks(t *testing.T) {
	sso, identity, _ := devScenario()
	svc := newTestService(t, sso, identity, accounts.NewStore(nil), Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Empty(t, res.Rows[0].AccountName)
	assert.Empty(t, res.Rows[0].AccountOwner)
	assert.Empty(t, res.Rows[0].AccountType)
	assert.Empty(t, res.Failures)
}

func TestAggregateRetriesThrottling(t *testing.T) {
	sso, identity, store := devScenario()
	sso.throttle["ListAssignments:"+testAccount] = 2
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Empty(t, res.Failures)
}

func TestAggregateRetryBudgetExhausted(t *testing.T) {
	sso, identity, store := devScenario()
	sso.psPages[testAccountB] = [][]string{{psReadOnly}}
	sso.assignmentPages[testAccountB+"|"+psReadOnly] = [][]awssso.Assignment{{
		{AccountID: testAccountB, PermissionSetArn: psReadOnly, PrincipalID: "u-alice", PrincipalType: model.PrincipalTypeUser},
	}}
	sso.throttle["ListPermissionSets:"+testAccount] = 100
	svc := newTestService(t, sso, identity, store, Options{MaxAttempts: 3, Workers: 1})

	res, err := svc.Aggregate(context.Background(), []string{testAccount, testAccountB})
	require.NoError(t, err)

	// the throttled account fails alone; the healthy one still reports
	require.Len(t, res.Failures, 1)
	assert.Equal(t, testAccount, res.Failures[0].AccountID)
	assert.Equal(t, "list-permission-sets", res.Failures[0].Stage)
	assert.Equal(t, string(KindThrottled), res.Failures[0].Kind)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, testAccountB, res.Rows[0].AccountNumber)
	assert.Equal(t, 1, res.Summary.AccountsSucceeded)
	assert.Equal(t, 1, res.Summary.AccountsFailed)
}

func TestAggregateAuthorizationAbortsRun(t *testing.T) {
	sso, identity, store := devScenario()
	sso.denied["ListPermissionSets:"+testAccount] = true
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, KindAuthorization, Classify(err))
}

func TestAggregateFailFast(t *testing.T) {
	sso, identity, store := devScenario()
	sso.throttle["ListPermissionSets:"+testAccount] = 100
	svc := newTestService(t, sso, identity, store, Options{MaxAttempts: 2, FailFast: true})

	_, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.Error(t, err)
	assert.Equal(t, KindThrottled, Classify(err))
}

func TestAggregateRejectsMalformedAccountNumber(t *testing.T) {
	sso, identity, store := devScenario()
	svc := newTestService(t, sso, identity, store, Options{Workers: 1})

	res, err := svc.Aggregate(context.Background(), []string{"12345", testAccount})
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "12345", res.Failures[0].AccountID)
	assert.Equal(t, "validate-account", res.Failures[0].Stage)
	assert.Equal(t, string(KindConfiguration), res.Failures[0].Kind)

	// the well-formed account is unaffected
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.Summary.AccountsFailed)
	assert.Equal(t, 1, res.Summary.AccountsSucceeded)
}

func TestAggregateDanglingPermissionSet(t *testing.T) {
	sso, identity, store := devScenario()
	sso.psNameErr[psReadOnly] = notFoundErr()
	sso.assignmentPages[testAccount+"|"+psReadOnly] = [][]awssso.Assignment{{
		{AccountID: testAccount, PermissionSetArn: psReadOnly, PrincipalID: "u-alice", PrincipalType: model.PrincipalTypeUser},
	}}
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)

	// degraded row, not a dropped one
	require.Len(t, res.Rows, 1)
	assert.Empty(t, res.Rows[0].PermissionSetName)
	assert.Equal(t, psReadOnly, res.Rows[0].PermissionSetID)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, string(KindInconsistentReference), res.Failures[0].Kind)
	assert.Equal(t, "describe-permission-set", res.Failures[0].Stage)
	assert.Equal(t, 1, res.Summary.AccountsSucceeded)
}

func TestAggregateDanglingGroupMember(t *testing.T) {
	sso, identity, store := devScenario()
	delete(identity.users, "u-bob")
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, "Alice Anders", res.Rows[0].ResolvedUserName)
	assert.Equal(t, "u-bob", res.Rows[1].ResolvedUserID)
	assert.Empty(t, res.Rows[1].ResolvedUserName)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, string(KindInconsistentReference), res.Failures[0].Kind)
	assert.Equal(t, "describe-user", res.Failures[0].Stage)
}

func TestAggregateDanglingGroup(t *testing.T) {
	sso, identity, store := devScenario()
	delete(identity.groups, "g-devs")
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "g-devs", res.Rows[0].PrincipalID)
	assert.Empty(t, res.Rows[0].GroupOrUserName)
	assert.Empty(t, res.Rows[0].ResolvedUserID)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, string(KindInconsistentReference), res.Failures[0].Kind)
	assert.Equal(t, "describe-group", res.Failures[0].Stage)
}

func TestAggregateMergesInRequestOrder(t *testing.T) {
	sso, identity, store := devScenario()
	sso.psPages[testAccountB] = [][]string{{psAdmin}}
	sso.psNames[psAdmin] = "PS-Admin"
	sso.assignmentPages[testAccountB+"|"+psAdmin] = [][]awssso.Assignment{{
		{AccountID: testAccountB, PermissionSetArn: psAdmin, PrincipalID: "u-bob", PrincipalType: model.PrincipalTypeUser},
	}}
	svc := newTestService(t, sso, identity, store, Options{Workers: 2})

	// testAccountB requested first, so its rows come first even though
	// accounts run concurrently
	res, err := svc.Aggregate(context.Background(), []string{testAccountB, testAccount})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, testAccountB, res.Rows[0].AccountNumber)
	assert.Equal(t, testAccount, res.Rows[1].AccountNumber)
	assert.Equal(t, testAccount, res.Rows[2].AccountNumber)
}

func TestAggregateSortOption(t *testing.T) {
	sso, identity, store := devScenario()
	sso.psPages[testAccountB] = [][]string{{psAdmin}}
	sso.psNames[psAdmin] = "PS-Admin"
	sso.assignmentPages[testAccountB+"|"+psAdmin] = [][]awssso.Assignment{{
		{AccountID: testAccountB, PermissionSetArn: psAdmin, PrincipalID: "u-bob", PrincipalType: model.PrincipalTypeUser},
	}}
	svc := newTestService(t, sso, identity, store, Options{Sort: true})

	res, err := svc.Aggregate(context.Background(), []string{testAccount, testAccountB})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)

	// canonical order puts the lower account number first regardless of
	// request order
	assert.Equal(t, testAccount, res.Rows[0].AccountNumber)
	assert.Equal(t, "u-alice", res.Rows[0].ResolvedUserID)
	assert.Equal(t, "u-bob", res.Rows[1].ResolvedUserID)
	assert.Equal(t, testAccountB, res.Rows[2].AccountNumber)
}

func TestAggregateInlineAndCustomerPolicies(t *testing.T) {
	sso, identity, store := devScenario()
	sso.managedPages[psReadOnly] = [][]awssso.AttachedPolicy{{
		{Name: "ReadOnlyAccess", Arn: "arn:aws:iam::aws:policy/ReadOnlyAccess"},
		{Name: "TeamBoundary", Arn: "arn:aws:iam::007952453283:policy/TeamBoundary"},
	}}
	sso.customerPages[psReadOnly] = [][]awssso.PolicyRef{{
		{Name: "DeployAccess", Path: "/ci/"},
	}}
	sso.inline[psReadOnly] = `{"Version":"2012-10-17"}`
	svc := newTestService(t, sso, identity, store, Options{})

	res, err := svc.Aggregate(context.Background(), []string{testAccount})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	row := res.Rows[0]
	assert.Equal(t, "ReadOnlyAccess", row.ManagedPolicies)
	assert.Equal(t, "TeamBoundary, /ci/DeployAccess", row.CustomerManagedPolicies)
	assert.Equal(t, `{"Version":"2012-10-17"}`, row.InlinePolicyJSON)
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "", "c", "b"})
	want := []string{"a", "b", "c"}
	require.Equal(t, want, got)
}

func TestNewServiceDefaults(t *testing.T) {
	svc := newTestService(t, newFakeSSO(), newFakeIdentity(), nil, Options{})
	assert.Equal(t, defaultWorkers, svc.opts.Workers)
	assert.Equal(t, defaultMaxAttempts, svc.retry.maxAttempts)
	assert.NotNil(t, svc.meta)
}
