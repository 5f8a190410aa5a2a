// Package awsidentity provides a service for the AWS Identity Store directory APIs.
package awsidentity

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/identitystore/types"
)

// NewService creates a new Identity Store service scoped to one identity store.
func NewService(awsconfig aws.Config, identityStoreID string) Service {
	client := identitystore.NewFromConfig(awsconfig)

	return &service{
		client:          client,
		identityStoreID: identityStoreID,
	}
}

// DescribeGroup returns the group's display name.
func (s *service) DescribeGroup(ctx context.Context, groupID string) (string, error) {
	out, err := s.client.DescribeGroup(ctx, &identitystore.DescribeGroupInput{
		IdentityStoreId: aws.String(s.identityStoreID),
		GroupId:         aws.String(groupID),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.DisplayName), nil
}

func (s *service) DescribeUser(ctx context.Context, userID string) (User, error) {
	out, err := s.client.DescribeUser(ctx, &identitystore.DescribeUserInput{
		IdentityStoreId: aws.String(s.identityStoreID),
		UserId:          aws.String(userID),
	})
	if err != nil {
		return User{}, err
	}
	return User{
		ID:          aws.ToString(out.UserId),
		UserName:    aws.ToString(out.UserName),
		DisplayName: aws.ToString(out.DisplayName),
	}, nil
}

// ListGroupMembershipsPage returns one page of member user IDs for a group.
func (s *service) ListGroupMembershipsPage(ctx context.Context, groupID string, nextToken *string) ([]string, *string, error) {
	out, err := s.client.ListGroupMemberships(ctx, &identitystore.ListGroupMembershipsInput{
		IdentityStoreId: aws.String(s.identityStoreID),
		GroupId:         aws.String(groupID),
		NextToken:       nextToken,
	})
	if err != nil {
		return nil, nil, err
	}

	userIDs := make([]string, 0, len(out.GroupMemberships))
	for _, m := range out.GroupMemberships {
		if member, ok := m.MemberId.(*types.MemberIdMemberUserId); ok {
			userIDs = append(userIDs, member.Value)
		}
	}
	return userIDs, out.NextToken, nil
}
