// Package awssts provides a service for interacting with AWS STS.
package awssts

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// NewService creates a new STS service.
func NewService(awsconfig aws.Config) Service {
	client := sts.NewFromConfig(awsconfig)

	return &service{
		client: client,
	}
}

// GetCallerIdentity is used as a credential preflight: it fails fast when the
// session has no usable credentials at all.
func (s *service) GetCallerIdentity(ctx context.Context) (CallerIdentity, error) {
	out, err := s.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return CallerIdentity{}, err
	}
	return CallerIdentity{
		Account: aws.ToString(out.Account),
		Arn:     aws.ToString(out.Arn),
	}, nil
}
