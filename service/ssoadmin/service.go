// Package awssso provides a service for the AWS IAM Identity Center admin APIs.
package awssso

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
)

// NewService creates a new Identity Center admin service.
func NewService(awsconfig aws.Config) Service {
	client := ssoadmin.NewFromConfig(awsconfig)

	return &service{
		client: client,
	}
}

// GetInstance auto-discovers the first Identity Center instance visible to the caller.
func (s *service) GetInstance(ctx context.Context) (Instance, error) {
	out, err := s.client.ListInstances(ctx, &ssoadmin.ListInstancesInput{})
	if err != nil {
		return Instance{}, fmt.Errorf("listing identity center instances: %w", err)
	}
	if len(out.Instances) == 0 {
		return Instance{}, fmt.Errorf("no IAM Identity Center instance found in this region")
	}

	inst := out.Instances[0]
	return Instance{
		InstanceArn:     aws.ToString(inst.InstanceArn),
		IdentityStoreID: aws.ToString(inst.IdentityStoreId),
	}, nil
}

func (s *service) ListPermissionSetsPage(ctx context.Context, instanceArn, accountID string, nextToken *string) ([]string, *string, error) {
	out, err := s.client.ListPermissionSetsProvisionedToAccount(ctx, &ssoadmin.ListPermissionSetsProvisionedToAccountInput{
		InstanceArn: aws.String(instanceArn),
		AccountId:   aws.String(accountID),
		NextToken:   nextToken,
	})
	if err != nil {
		return nil, nil, err
	}
	return out.PermissionSets, out.NextToken, nil
}

func (s *service) DescribePermissionSet(ctx context.Context, instanceArn, permissionSetArn string) (string, error) {
	out, err := s.client.DescribePermissionSet(ctx, &ssoadmin.DescribePermissionSetInput{
		InstanceArn:      aws.String(instanceArn),
		PermissionSetArn: aws.String(permissionSetArn),
	})
	if err != nil {
		return "", err
	}
	if out.PermissionSet == nil {
		return "", nil
	}
	return aws.ToString(out.PermissionSet.Name), nil
}

func (s *service) ListManagedPoliciesPage(ctx context.Context, instanceArn, permissionSetArn string, nextToken *string) ([]AttachedPolicy, *string, error) {
	out, err := s.client.ListManagedPoliciesInPermissionSet(ctx, &ssoadmin.ListManagedPoliciesInPermissionSetInput{
		InstanceArn:      aws.String(instanceArn),
		PermissionSetArn: aws.String(permissionSetArn),
		NextToken:        nextToken,
	})
	if err != nil {
		return nil, nil, err
	}

	policies := make([]AttachedPolicy, 0, len(out.AttachedManagedPolicies))
	for _, p := range out.AttachedManagedPolicies {
		policies = append(policies, AttachedPolicy{
			Name: aws.ToString(p.Name),
			Arn:  aws.ToString(p.Arn),
		})
	}
	return policies, out.NextToken, nil
}

func (s *service) ListCustomerManagedPolicyRefsPage(ctx context.Context, instanceArn, permissionSetArn string, nextToken *string) ([]PolicyRef, *string, error) {
	out, err := s.client.ListCustomerManagedPolicyReferencesInPermissionSet(ctx, &ssoadmin.ListCustomerManagedPolicyReferencesInPermissionSetInput{
		InstanceArn:      aws.String(instanceArn),
		PermissionSetArn: aws.String(permissionSetArn),
		NextToken:        nextToken,
	})
	if err != nil {
		return nil, nil, err
	}

	refs := make([]PolicyRef, 0, len(out.CustomerManagedPolicyReferences))
	for _, r := range out.CustomerManagedPolicyReferences {
		refs = append(refs, PolicyRef{
			Name: aws.ToString(r.Name),
			Path: aws.ToString(r.Path),
		})
	}
	return refs, out.NextToken, nil
}

// GetInlinePolicy returns the permission set's inline policy document verbatim.
// An empty string means no inline policy is configured, which is normal.
func (s *service) GetInlinePolicy(ctx context.Context, instanceArn, permissionSetArn string) (string, error) {
	out, err := s.client.GetInlinePolicyForPermissionSet(ctx, &ssoadmin.GetInlinePolicyForPermissionSetInput{
		InstanceArn:      aws.String(instanceArn),
		PermissionSetArn: aws.String(permissionSetArn),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.InlinePolicy), nil
}

func (s *service) ListAccountAssignmentsPage(ctx context.Context, instanceArn, accountID, permissionSetArn string, nextToken *string) ([]Assignment, *string, error) {
	out, err := s.client.ListAccountAssignments(ctx, &ssoadmin.ListAccountAssignmentsInput{
		InstanceArn:      aws.String(instanceArn),
		AccountId:        aws.String(accountID),
		PermissionSetArn: aws.String(permissionSetArn),
		NextToken:        nextToken,
	})
	if err != nil {
		return nil, nil, err
	}

	assignments := make([]Assignment, 0, len(out.AccountAssignments))
	for _, a := range out.AccountAssignments {
		assignments = append(assignments, Assignment{
			AccountID:        aws.ToString(a.AccountId),
			PermissionSetArn: aws.ToString(a.PermissionSetArn),
			PrincipalID:      aws.ToString(a.PrincipalId),
			PrincipalType:    string(a.PrincipalType),
		})
	}
	return assignments, out.NextToken, nil
}
