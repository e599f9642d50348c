// Package source checks that the S3 source buckets are reachable with the
// credentials that will be handed to the transfer service.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ErrBucketNotFound is returned when a source bucket does not exist
var ErrBucketNotFound = errors.New("source bucket not found")

// ErrAccessDenied is returned when the credentials cannot read a source bucket
var ErrAccessDenied = errors.New("access denied to source bucket")

// HeadBucketAPI is the subset of the S3 client the validator needs
type HeadBucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// BucketValidator probes source buckets
type BucketValidator struct {
	client HeadBucketAPI
}

// NewBucketValidator creates a validator around an S3 client
func NewBucketValidator(client HeadBucketAPI) *BucketValidator {
	return &BucketValidator{client: client}
}

// NewBucketValidatorFromConfig creates an S3 client from cfg
func NewBucketValidatorFromConfig(cfg aws.Config, optFns ...func(*s3.Options)) *BucketValidator {
	return NewBucketValidator(s3.NewFromConfig(cfg, optFns...))
}

// Validate returns nil when the bucket exists and is accessible
func (bv *BucketValidator) Validate(ctx context.Context, bucket string) error {
	_, err := bv.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
		case "Forbidden", "AccessDenied":
			return fmt.Errorf("%w: %s", ErrAccessDenied, bucket)
		}
	}

	return fmt.Errorf("failed to check source bucket %s: %w", bucket, err)
}
