package awssso

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
)

// SSOAdminClientAPI is the interface for the AWS SSO Admin client methods used by the service.
type SSOAdminClientAPI interface {
	ListInstances(ctx context.Context, params *ssoadmin.ListInstancesInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListInstancesOutput, error)
	ListPermissionSetsProvisionedToAccount(ctx context.Context, params *ssoadmin.ListPermissionSetsProvisionedToAccountInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListPermissionSetsProvisionedToAccountOutput, error)
	DescribePermissionSet(ctx context.Context, params *ssoadmin.DescribePermissionSetInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.DescribePermissionSetOutput, error)
	ListManagedPoliciesInPermissionSet(ctx context.Context, params *ssoadmin.ListManagedPoliciesInPermissionSetInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListManagedPoliciesInPermissionSetOutput, error)
	ListCustomerManagedPolicyReferencesInPermissionSet(ctx context.Context, params *ssoadmin.ListCustomerManagedPolicyReferencesInPermissionSetInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListCustomerManagedPolicyReferencesInPermissionSetOutput, error)
	GetInlinePolicyForPermissionSet(ctx context.Context, params *ssoadmin.GetInlinePolicyForPermissionSetInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.GetInlinePolicyForPermissionSetOutput, error)
	ListAccountAssignments(ctx context.Context, params *ssoadmin.ListAccountAssignmentsInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListAccountAssignmentsOutput, error)
}

type service struct {
	client SSOAdminClientAPI
}

// Instance identifies one Identity Center instance.
type Instance struct {
	InstanceArn     string
	IdentityStoreID string
}

// AttachedPolicy is a managed policy attached to a permission set by ARN.
type AttachedPolicy struct {
	Name string
	Arn  string
}

// AWSManaged reports whether the policy lives in the shared aws policy namespace.
func (p AttachedPolicy) AWSManaged() bool {
	return strings.HasPrefix(p.Arn, "arn:aws:iam::aws:policy")
}

// PolicyRef is a customer managed policy attached to a permission set by name and path.
type PolicyRef struct {
	Name string
	Path string
}

// QualifiedName returns the path-qualified policy name, e.g. "/team/ReadOnly".
func (p PolicyRef) QualifiedName() string {
	if p.Path == "" || p.Path == "/" {
		return p.Name
	}
	return strings.TrimSuffix(p.Path, "/") + "/" + p.Name
}

// Assignment binds one principal to one permission set on one account.
type Assignment struct {
	AccountID        string
	PermissionSetArn string
	PrincipalID      string
	PrincipalType    string
}

// Service is the interface for the Identity Center admin API surface. The
// List*Page methods return a single page plus the continuation token; callers
// drive pagination so completeness stays under their control.
type Service interface {
	GetInstance(ctx context.Context) (Instance, error)
	ListPermissionSetsPage(ctx context.Context, instanceArn, accountID string, nextToken *string) ([]string, *string, error)
	DescribePermissionSet(ctx context.Context, instanceArn, permissionSetArn string) (string, error)
	ListManagedPoliciesPage(ctx context.Context, instanceArn, permissionSetArn string, nextToken *string) ([]AttachedPolicy, *string, error)
	ListCustomerManagedPolicyRefsPage(ctx context.Context, instanceArn, permissionSetArn string, nextToken *string) ([]PolicyRef, *string, error)
	GetInlinePolicy(ctx context.Context, instanceArn, permissionSetArn string) (string, error)
	ListAccountAssignmentsPage(ctx context.Context, instanceArn, accountID, permissionSetArn string, nextToken *string) ([]Assignment, *string, error)
}
