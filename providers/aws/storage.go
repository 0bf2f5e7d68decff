package aws

import (
	"context"
	"os"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

// bucketAdapter manages S3 buckets. The bucket name doubles as its ID.
type bucketAdapter struct {
	p *Provider
}

func (a *bucketAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "Bucket",
		Immutable: []string{"name"},
		Computed:  []string{"id", "arn"},
	}
}

func (a *bucketAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	name := strAttr(attrs, "name")
	input := &s3.CreateBucketInput{
		Bucket: awssdk.String(name),
	}
	// us-east-1 rejects an explicit location constraint.
	if region := os.Getenv("AWS_REGION"); region != "" && region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}

	_, err := a.p.s3Client.CreateBucket(ctx, input)
	if err != nil {
		return nil, classify("create bucket", err)
	}

	if boolAttr(attrs, "versioning") {
		_, err = a.p.s3Client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
			Bucket: awssdk.String(name),
			VersioningConfiguration: &s3types.VersioningConfiguration{
				Status: s3types.BucketVersioningStatusEnabled,
			},
		})
		if err != nil {
			return nil, classify("enable bucket versioning", err)
		}
	}

	return a.Read(ctx, name)
}

func (a *bucketAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	_, err := a.p.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: awssdk.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("read bucket", err)
	}

	attrs := adapter.Attrs{
		"id":   id,
		"name": id,
		"arn":  "arn:aws:s3:::" + id,
	}

	ver, err := a.p.s3Client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{
		Bucket: awssdk.String(id),
	})
	if err == nil {
		attrs["versioning"] = ver.Status == s3types.BucketVersioningStatusEnabled
	}
	return attrs, nil
}

func (a *bucketAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	if v, ok := changed["versioning"]; ok {
		status := s3types.BucketVersioningStatusSuspended
		if enabled, _ := v.(bool); enabled {
			status = s3types.BucketVersioningStatusEnabled
		}
		_, err := a.p.s3Client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
			Bucket: awssdk.String(id),
			VersioningConfiguration: &s3types.VersioningConfiguration{
				Status: status,
			},
		})
		if err != nil {
			return nil, classify("update bucket versioning", err)
		}
	}
	return a.Read(ctx, id)
}

func (a *bucketAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.s3Client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: awssdk.String(id),
	})
	if err != nil && !isNotFound(err) {
		return classify("delete bucket", err)
	}
	return nil
}

// bucketPolicyAdapter attaches a policy document to a bucket. The
// policy shares the bucket's name as its ID since a bucket carries at
// most one policy.
type bucketPolicyAdapter struct {
	p *Provider
}

func (a *bucketPolicyAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "BucketPolicy",
		Immutable: []string{"bucket"},
		Computed:  []string{"id"},
	}
}

func (a *bucketPolicyAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	bucket := strAttr(attrs, "bucket")
	_, err := a.p.s3Client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: awssdk.String(bucket),
		Policy: awssdk.String(strAttr(attrs, "policy")),
	})
	if err != nil {
		return nil, classify("put bucket policy", err)
	}
	return a.Read(ctx, bucket)
}

func (a *bucketPolicyAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	out, err := a.p.s3Client.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{
		Bucket: awssdk.String(id),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("read bucket policy", err)
	}
	return adapter.Attrs{
		"id":     id,
		"bucket": id,
		"policy": awssdk.ToString(out.Policy),
	}, nil
}

func (a *bucketPolicyAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	if policy := strAttr(changed, "policy"); policy != "" {
		_, err := a.p.s3Client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
			Bucket: awssdk.String(id),
			Policy: awssdk.String(policy),
		})
		if err != nil {
			return nil, classify("update bucket policy", err)
		}
	}
	return a.Read(ctx, id)
}

func (a *bucketPolicyAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	_, err := a.p.s3Client.DeleteBucketPolicy(ctx, &s3.DeleteBucketPolicyInput{
		Bucket: awssdk.String(id),
	})
	if err != nil && !isNotFound(err) {
		return classify("delete bucket policy", err)
	}
	return nil
}
