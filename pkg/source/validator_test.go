package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T, handler http.HandlerFunc) *BucketValidator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIAEXAMPLE", "secret", ""),
		Retryer:     func() aws.Retryer { return aws.NopRetryer{} },
	}
	return NewBucketValidatorFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
	})
}

func TestValidate(t *testing.T) {
	validator := newTestValidator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch strings.TrimPrefix(r.URL.Path, "/") {
		case "present":
			w.WriteHeader(http.StatusOK)
		case "missing":
			w.WriteHeader(http.StatusNotFound)
		case "locked":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	ctx := context.Background()

	require.NoError(t, validator.Validate(ctx, "present"))

	err := validator.Validate(ctx, "missing")
	assert.ErrorIs(t, err, ErrBucketNotFound)

	err = validator.Validate(ctx, "locked")
	assert.ErrorIs(t, err, ErrAccessDenied)

	err = validator.Validate(ctx, "weird")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBucketNotFound)
	assert.NotErrorIs(t, err, ErrAccessDenied)
}

type stubHead struct {
	err     error
	buckets []string
}

func (s *stubHead) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	s.buckets = append(s.buckets, aws.ToString(in.Bucket))
	return &s3.HeadBucketOutput{}, s.err
}

func TestValidate_UsesClient(t *testing.T) {
	stub := &stubHead{}
	require.NoError(t, NewBucketValidator(stub).Validate(context.Background(), "logs"))
	assert.Equal(t, []string{"logs"}, stub.buckets)
}
