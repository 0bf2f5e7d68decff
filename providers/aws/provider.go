// Package aws provides adapters for AWS-backed resource kinds. Each
// adapter is a thin wrapper over one service API; orchestration concerns
// (ordering, retries, containment) stay in the engine.
package aws

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

// Provider holds the shared service clients behind every AWS adapter.
type Provider struct {
	ec2Client *ec2.Client
	rdsClient *rds.Client
	s3Client  *s3.Client
}

// New loads AWS configuration from the environment and shared config
// files, honoring AWS_REGION and AWS_PROFILE.
func New(ctx context.Context) (*Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region := os.Getenv("AWS_REGION"); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile := os.Getenv("AWS_PROFILE"); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &Provider{
		ec2Client: ec2.NewFromConfig(cfg),
		rdsClient: rds.NewFromConfig(cfg),
		s3Client:  s3.NewFromConfig(cfg),
	}, nil
}

// Adapters returns the closed set of kinds this provider serves.
func (p *Provider) Adapters() map[string]adapter.Adapter {
	return map[string]adapter.Adapter{
		"Network":               &networkAdapter{p: p},
		"Subnet":                &subnetAdapter{p: p},
		"RouteTable":            &routeTableAdapter{p: p},
		"RouteTableAssociation": &routeTableAssociationAdapter{p: p},
		"SecurityGroup":         &securityGroupAdapter{p: p},
		"DBSubnetGroup":         &dbSubnetGroupAdapter{p: p},
		"Database":              &databaseAdapter{p: p},
		"Instance":              &instanceAdapter{p: p},
		"Bucket":                &bucketAdapter{p: p},
		"BucketPolicy":          &bucketPolicyAdapter{p: p},
	}
}

// attribute helpers shared by the adapters

func strAttr(attrs adapter.Attrs, key string) string {
	if v, ok := attrs[key].(string); ok {
		return v
	}
	return ""
}

func boolAttr(attrs adapter.Attrs, key string) bool {
	v, ok := attrs[key].(bool)
	return ok && v
}

func intAttr(attrs adapter.Attrs, key string) int {
	switch v := attrs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func strSliceAttr(attrs adapter.Attrs, key string) []string {
	raw, ok := attrs[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprintf("%v", v))
	}
	return out
}
