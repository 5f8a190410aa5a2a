package awsidentity

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/identitystore"
)

// IdentityStoreClientAPI is the interface for the AWS Identity Store client methods used by the service.
type IdentityStoreClientAPI interface {
	DescribeGroup(ctx context.Context, params *identitystore.DescribeGroupInput, optFns ...func(*identitystore.Options)) (*identitystore.DescribeGroupOutput, error)
	DescribeUser(ctx context.Context, params *identitystore.DescribeUserInput, optFns ...func(*identitystore.Options)) (*identitystore.DescribeUserOutput, error)
	ListGroupMemberships(ctx context.Context, params *identitystore.ListGroupMembershipsInput, optFns ...func(*identitystore.Options)) (*identitystore.ListGroupMembershipsOutput, error)
}

type service struct {
	client          IdentityStoreClientAPI
	identityStoreID string
}

// User describes one directory user.
type User struct {
	ID          string
	UserName    string
	DisplayName string
}

// Name returns the best human-readable identifier for the user.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.UserName != "" {
		return u.UserName
	}
	return "Unknown"
}

// Service is the interface for the Identity Store directory API surface.
type Service interface {
	DescribeGroup(ctx context.Context, groupID string) (string, error)
	DescribeUser(ctx context.Context, userID string) (User, error)
	ListGroupMembershipsPage(ctx context.Context, groupID string, nextToken *string) ([]string, *string, error)
}
