package aggregator

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/smithy-go"
	awsidentity "github.com/thirukguru/aws-ic-report/service/identitystore"
	awssso "github.com/thirukguru/aws-ic-report/service/ssoadmin"
)

func throttlingErr() error {
	return &smithy.GenericAPIError{Code: "ThrottlingException", Message: "rate exceeded"}
}

func accessDeniedErr() error {
	return &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"}
}

func notFoundErr() error {
	return &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "gone"}
}

// pageOf serves one page of a scripted multi-page listing. Tokens are page
// indexes, mirroring how the engine treats tokens as opaque.
func pageOf[T any](pages [][]T, token *string) ([]T, *string, error) {
	idx := 0
	if token != nil {
		idx, _ = strconv.Atoi(*token)
	}
	if idx >= len(pages) {
		return nil, nil, nil
	}
	var next *string
	if idx+1 < len(pages) {
		s := strconv.Itoa(idx + 1)
		next = &s
	}
	return pages[idx], next, nil
}

func tok(t *string) string {
	if t == nil {
		return "0"
	}
	return *t
}

// fakeSSO scripts the admin API: psPages keys by account, assignmentPages by
// "accountID|psArn", and throttle/denied force errors per op name.
type fakeSSO struct {
	mu              sync.Mutex
	psPages         map[string][][]string
	psNames         map[string]string
	psNameErr       map[string]error
	managedPages    map[string][][]awssso.AttachedPolicy
	customerPages   map[string][][]awssso.PolicyRef
	inline          map[string]string
	assignmentPages map[string][][]awssso.Assignment
	throttle        map[string]int
	denied          map[string]bool
	calls           map[string]int
}

func newFakeSSO() *fakeSSO {
	return &fakeSSO{
		psPages:         map[string][][]string{},
		psNames:         map[string]string{},
		psNameErr:       map[string]error{},
		managedPages:    map[string][][]awssso.AttachedPolicy{},
		customerPages:   map[string][][]awssso.PolicyRef{},
		inline:          map[string]string{},
		assignmentPages: map[string][][]awssso.Assignment{},
		throttle:        map[string]int{},
		denied:          map[string]bool{},
		calls:           map[string]int{},
	}
}

// gate applies scripted throttling/denial for one op. Callers hold the mutex.
func (f *fakeSSO) gate(op string) error {
	if n := f.throttle[op]; n > 0 {
		f.throttle[op] = n - 1
		return throttlingErr()
	}
	if f.denied[op] {
		return accessDeniedErr()
	}
	return nil
}

func (f *fakeSSO) GetInstance(ctx context.Context) (awssso.Instance, error) {
	return awssso.Instance{InstanceArn: "arn:aws:sso:::instance/ssoins-test", IdentityStoreID: "d-test"}, nil
}

func (f *fakeSSO) ListPermissionSetsPage(ctx context.Context, instanceArn, accountID string, token *string) ([]string, *string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := "ListPermissionSets:" + accountID
	if err := f.gate(op); err != nil {
		return nil, nil, err
	}
	f.calls[op+":"+tok(token)]++
	return pageOf(f.psPages[accountID], token)
}

func (f *fakeSSO) DescribePermissionSet(ctx context.Context, instanceArn, psArn string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate("DescribePermissionSet"); err != nil {
		return "", err
	}
	if err := f.psNameErr[psArn]; err != nil {
		return "", err
	}
	return f.psNames[psArn], nil
}

func (f *fakeSSO) ListManagedPoliciesPage(ctx context.Context, instanceArn, psArn string, token *string) ([]awssso.AttachedPolicy, *string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate("ListManagedPolicies"); err != nil {
		return nil, nil, err
	}
	return pageOf(f.managedPages[psArn], token)
}

func (f *fakeSSO) ListCustomerManagedPolicyRefsPage(ctx context.Context, instanceArn, psArn string, token *string) ([]awssso.PolicyRef, *string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate("ListCustomerManagedPolicyRefs"); err != nil {
		return nil, nil, err
	}
	return pageOf(f.customerPages[psArn], token)
}

func (f *fakeSSO) GetInlinePolicy(ctx context.Context, instanceArn, psArn string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate("GetInlinePolicy"); err != nil {
		return "", err
	}
	return f.inline[psArn], nil
}

func (f *fakeSSO) ListAccountAssignmentsPage(ctx context.Context, instanceArn, accountID, psArn string, token *string) ([]awssso.Assignment, *string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := "ListAssignments:" + accountID
	if err := f.gate(op); err != nil {
		return nil, nil, err
	}
	f.calls[op+":"+psArn+":"+tok(token)]++
	return pageOf(f.assignmentPages[accountID+"|"+psArn], token)
}

func (f *fakeSSO) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// fakeIdentity scripts the directory: unknown group or user IDs resolve to a
// not-found error, matching the live API.
type fakeIdentity struct {
	mu          sync.Mutex
	groups      map[string]string
	memberPages map[string][][]string
	users       map[string]awsidentity.User
	calls       map[string]int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		groups:      map[string]string{},
		memberPages: map[string][][]string{},
		users:       map[string]awsidentity.User{},
		calls:       map[string]int{},
	}
}

func (f *fakeIdentity) DescribeGroup(ctx context.Context, groupID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DescribeGroup:"+groupID]++
	name, ok := f.groups[groupID]
	if !ok {
		return "", notFoundErr()
	}
	return name, nil
}

func (f *fakeIdentity) DescribeUser(ctx context.Context, userID string) (awsidentity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DescribeUser:"+userID]++
	u, ok := f.users[userID]
	if !ok {
		return awsidentity.User{}, notFoundErr()
	}
	return u, nil
}

func (f *fakeIdentity) ListGroupMembershipsPage(ctx context.Context, groupID string, token *string) ([]string, *string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListGroupMemberships:"+groupID+":"+tok(token)]++
	return pageOf(f.memberPages[groupID], token)
}

func (f *fakeIdentity) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}
