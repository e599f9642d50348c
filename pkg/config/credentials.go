package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// DefaultRegion is used when no AWS region is configured
const DefaultRegion = "us-east-1"

// Credentials holds the AWS access key the transfer service uses to read the source buckets
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// NewCredentials creates credentials for the given key pair
func NewCredentials(accessKey, secretKey, region string) *Credentials {
	return &Credentials{
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		Region:          region,
	}
}

// LoadCredentials builds an aws.Config around the static key pair.
// Unlike the default chain, nothing is picked up from ~/.aws or instance roles:
// the same key pair is handed to the transfer service, so the preflight must
// exercise exactly those credentials.
func LoadCredentials(ctx context.Context, creds *Credentials) (aws.Config, error) {
	if err := creds.Validate(); err != nil {
		return aws.Config{}, err
	}

	region := creds.Region
	if region == "" {
		region = DefaultRegion
	}

	staticProvider := credentials.NewStaticCredentialsProvider(
		creds.AccessKeyID,
		creds.SecretAccessKey,
		"",
	)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(staticProvider),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	return cfg, nil
}

// Validate checks that both parts of the key pair are present
func (c *Credentials) Validate() error {
	if c == nil {
		return fmt.Errorf("no AWS credentials provided")
	}
	if c.AccessKeyID == "" {
		return fmt.Errorf("no access key ID found")
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("no secret access key found")
	}
	return nil
}

// ValidateCredentials checks that the config resolves to a usable key pair
func ValidateCredentials(ctx context.Context, cfg aws.Config) error {
	if cfg.Credentials == nil {
		return fmt.Errorf("no credentials provider configured")
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve credentials: %w", err)
	}

	if creds.AccessKeyID == "" {
		return fmt.Errorf("no access key ID found")
	}

	if creds.SecretAccessKey == "" {
		return fmt.Errorf("no secret access key found")
	}

	return nil
}

// Redacted returns the access key ID with everything but the last four characters masked
func (c *Credentials) Redacted() string {
	if c == nil || c.AccessKeyID == "" {
		return ""
	}
	id := c.AccessKeyID
	if len(id) <= 4 {
		return "****"
	}
	return "****" + id[len(id)-4:]
}
