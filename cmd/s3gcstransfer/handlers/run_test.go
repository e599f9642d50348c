package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"s3gcstransfer/pkg/config"
	"s3gcstransfer/pkg/gcptest"
	"s3gcstransfer/pkg/providers/gcp"
)

func testConfig(buckets ...string) *config.Config {
	return &config.Config{
		ProjectID:    "proj-1",
		Credentials:  config.NewCredentials("AKIAEXAMPLE", "secret", ""),
		Buckets:      buckets,
		Schedule:     config.DefaultSchedule,
		Location:     config.DefaultLocation,
		StorageClass: config.DefaultStorageClass,
	}
}

func testEnv(srv *gcptest.Server) Env {
	return Env{
		ClientOptions: func(context.Context) ([]option.ClientOption, error) {
			return []option.ClientOption{option.WithoutAuthentication()}, nil
		},
		Endpoints: gcp.Endpoints{
			Transfer: srv.TransferEndpoint(),
			Storage:  srv.StorageEndpoint(),
		},
	}
}

func TestRun_CreatesJobs(t *testing.T) {
	srv := gcptest.NewServer()
	defer srv.Close()

	err := Run(context.Background(), testConfig("logs", "assets"), testr.New(t), testEnv(srv))
	require.NoError(t, err)

	jobs := srv.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "AWS S3: logs to GCS Daily Transfer", jobs[0].Description)
	assert.Equal(t, "AWS S3: assets to GCS Daily Transfer", jobs[1].Description)
	assert.NotNil(t, srv.Bucket("logs"))
	assert.NotNil(t, srv.Bucket("assets"))
}

func TestRun_SkipSinkSetup(t *testing.T) {
	srv := gcptest.NewServer()
	defer srv.Close()

	cfg := testConfig("logs")
	cfg.SkipSinkSetup = true
	require.NoError(t, Run(context.Background(), cfg, testr.New(t), testEnv(srv)))

	assert.Nil(t, srv.Bucket("logs"))
	assert.Len(t, srv.Jobs(), 1)
}

func TestRun_DryRunNeedsNoCredentials(t *testing.T) {
	cfg := testConfig("logs")
	cfg.DryRun = true

	env := Env{ClientOptions: func(context.Context) ([]option.ClientOption, error) {
		return nil, errors.New("should not be called")
	}}
	require.NoError(t, Run(context.Background(), cfg, testr.New(t), env))
}

func TestRun_ClientOptionsError(t *testing.T) {
	env := Env{ClientOptions: func(context.Context) ([]option.ClientOption, error) {
		return nil, errors.New("no application default credentials")
	}}
	err := Run(context.Background(), testConfig("logs"), testr.New(t), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no application default credentials")
}

func TestRun_VerifySource(t *testing.T) {
	srv := gcptest.NewServer()
	defer srv.Close()

	s3srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/") == "present" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer s3srv.Close()

	env := testEnv(srv)
	env.S3Options = []func(*s3.Options){func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s3srv.URL)
		o.UsePathStyle = true
		o.Retryer = aws.NopRetryer{}
	}}

	cfg := testConfig("present", "absent")
	cfg.VerifySource = true

	err := Run(context.Background(), cfg, testr.New(t), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent")

	jobs := srv.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "present", jobs[0].TransferSpec.AwsS3DataSource.BucketName)
}
