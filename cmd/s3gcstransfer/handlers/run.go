// Package handlers wires configuration to the API clients and runs the
// transfer job workflow.
package handlers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-logr/logr"
	"google.golang.org/api/option"

	"s3gcstransfer/pkg/config"
	"s3gcstransfer/pkg/providers/gcp"
	"s3gcstransfer/pkg/runner"
	"s3gcstransfer/pkg/source"
	"s3gcstransfer/pkg/transfer"
)

// Env holds the outside-world hooks Run depends on
type Env struct {
	ClientOptions func(ctx context.Context) ([]option.ClientOption, error)
	Endpoints     gcp.Endpoints
	S3Options     []func(*s3.Options)
}

// DefaultEnv talks to the real Google APIs with Application Default Credentials
func DefaultEnv() Env {
	return Env{ClientOptions: gcp.DefaultClientOptions}
}

// Run creates or patches one transfer job per configured bucket
func Run(ctx context.Context, cfg *config.Config, log logr.Logger, env Env) error {
	opts := runner.Options{
		ProjectID:     cfg.ProjectID,
		Credentials:   cfg.Credentials,
		Schedule:      cfg.Schedule,
		DryRun:        cfg.DryRun,
		SkipSinkSetup: cfg.SkipSinkSetup,
	}
	runnerOpts := []runner.Option{runner.WithLogger(log)}

	log.Info("Starting",
		"project", cfg.ProjectID,
		"buckets", len(cfg.Buckets),
		"accessKey", cfg.Credentials.Redacted(),
		"dryRun", cfg.DryRun)

	if cfg.DryRun {
		_, err := runner.New(opts, nil, runnerOpts...).Run(ctx, cfg.Buckets)
		return err
	}

	clientOpts, err := env.ClientOptions(ctx)
	if err != nil {
		return err
	}
	svcs, err := gcp.NewServices(ctx, env.Endpoints, clientOpts...)
	if err != nil {
		return err
	}

	if !cfg.SkipSinkSetup {
		runnerOpts = append(runnerOpts, runner.WithSink(gcp.NewSinkManager(svcs.Storage, gcp.SinkOptions{
			Location:     cfg.Location,
			StorageClass: cfg.StorageClass,
		})))
	}

	if cfg.VerifySource {
		awsCfg, err := config.LoadCredentials(ctx, cfg.Credentials)
		if err != nil {
			return fmt.Errorf("failed to configure source preflight: %w", err)
		}
		if err := config.ValidateCredentials(ctx, awsCfg); err != nil {
			return fmt.Errorf("failed to configure source preflight: %w", err)
		}
		runnerOpts = append(runnerOpts, runner.WithSourceChecker(source.NewBucketValidatorFromConfig(awsCfg, env.S3Options...)))
	}

	_, err = runner.New(opts, transfer.NewClient(svcs.Transfer), runnerOpts...).Run(ctx, cfg.Buckets)
	return err
}
