package provider

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	hbconfig "github.com/cuemby/hostbroker/pkg/config"
)

// AWSClient bundles the per-service AWS SDK v2 clients every provider
// handler variant and health checker draws from, constructed once at
// startup and shared across every Handler implementation (the SDK
// clients are safe for concurrent use by construction, spec §5).
type AWSClient struct {
	EC2         ec2API
	AutoScaling autoScalingAPI
	IAM         iamAPI
	CloudWatch  cloudwatchAPI
	STS         *sts.Client
}

// NewAWSClient loads SDK configuration for cfg.Region/Profile, optionally
// assuming cfg.RoleARN, and builds the per-service clients.
func NewAWSClient(ctx context.Context, cfg hbconfig.ProviderConfig) (*AWSClient, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS SDK config: %w", err)
	}

	if cfg.RoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		provider := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN)
		awsCfg.Credentials = awssdk.NewCredentialsCache(provider)
	}

	return &AWSClient{
		EC2:         ec2.NewFromConfig(awsCfg),
		AutoScaling: autoscaling.NewFromConfig(awsCfg),
		IAM:         iam.NewFromConfig(awsCfg),
		CloudWatch:  cloudwatch.NewFromConfig(awsCfg),
		STS:         sts.NewFromConfig(awsCfg),
	}, nil
}
