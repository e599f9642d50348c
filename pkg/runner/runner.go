// Package runner drives one invocation: for each source bucket in turn it
// prepares the sink bucket and creates or updates the bucket's transfer job.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	storagetransfer "google.golang.org/api/storagetransfer/v1"

	"s3gcstransfer/pkg/config"
	"s3gcstransfer/pkg/models"
	"s3gcstransfer/pkg/scheduler"
	"s3gcstransfer/pkg/transfer"
)

// JobService submits transfer jobs
type JobService interface {
	CreateOrPatch(ctx context.Context, job *storagetransfer.TransferJob) (*transfer.Result, error)
	ServiceAccountEmail(ctx context.Context, projectID string) (string, error)
}

// SinkService prepares destination buckets
type SinkService interface {
	EnsureBucket(ctx context.Context, projectID, bucket string) (bool, error)
	EnsureWriter(ctx context.Context, bucket, serviceAccountEmail string) (bool, error)
}

// SourceChecker verifies a source bucket before a job is requested for it
type SourceChecker interface {
	Validate(ctx context.Context, bucket string) error
}

// Options configures a Runner
type Options struct {
	ProjectID     string
	Credentials   *config.Credentials
	Schedule      string
	DryRun        bool
	SkipSinkSetup bool
}

// Runner processes buckets sequentially
type Runner struct {
	opts   Options
	jobs   JobService
	sink   SinkService
	source SourceChecker
	log    logr.Logger
	now    func() time.Time

	serviceAccount string
}

// Option customises a Runner
type Option func(*Runner)

// WithSink enables sink bucket setup
func WithSink(sink SinkService) Option {
	return func(r *Runner) { r.sink = sink }
}

// WithSourceChecker enables the source bucket preflight
func WithSourceChecker(source SourceChecker) Option {
	return func(r *Runner) { r.source = source }
}

// WithLogger sets the logger
func WithLogger(log logr.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a runner. jobs may be nil for dry runs.
func New(opts Options, jobs JobService, options ...Option) *Runner {
	r := &Runner{
		opts: opts,
		jobs: jobs,
		log:  logr.Discard(),
		now:  time.Now,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Run processes every bucket and returns a summary. The error is non-nil when
// the schedule is invalid, the context is cancelled, or any bucket failed.
func (r *Runner) Run(ctx context.Context, buckets []string) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		ProjectID: r.opts.ProjectID,
		DryRun:    r.opts.DryRun,
		StartTime: r.now(),
	}
	log := r.log.WithValues("run", summary.RunID, "project", r.opts.ProjectID)

	if !r.opts.DryRun && r.jobs == nil {
		return summary, fmt.Errorf("no transfer client configured")
	}
	if err := r.opts.Credentials.Validate(); err != nil {
		return summary, err
	}

	sched, err := scheduler.Compute(r.opts.Schedule, summary.StartTime)
	if err != nil {
		return summary, err
	}
	log.V(1).Info("Computed schedule", "firstRun", sched.FirstRun, "repeatInterval", sched.RepeatInterval)

	for _, bucket := range buckets {
		if err := ctx.Err(); err != nil {
			r.finish(summary)
			return summary, fmt.Errorf("run interrupted: %w", err)
		}

		result := r.processBucket(ctx, log.WithValues("bucket", bucket), bucket, sched)
		summary.Buckets = append(summary.Buckets, result)
	}

	r.finish(summary)
	log.Info("Run complete",
		"created", summary.Count(models.StatusCreated),
		"patched", summary.Count(models.StatusPatched),
		"failed", summary.Count(models.StatusFailed),
		"duration", summary.Duration)

	if failed := summary.FailedBuckets(); len(failed) > 0 {
		return summary, fmt.Errorf("%d of %d buckets failed: %s", len(failed), len(buckets), strings.Join(failed, ", "))
	}
	return summary, nil
}

func (r *Runner) processBucket(ctx context.Context, log logr.Logger, bucket string, sched scheduler.Schedule) models.BucketResult {
	log.Info("Processing bucket")

	job := transfer.BuildJob(r.opts.ProjectID, r.opts.Credentials, bucket, sched)
	result := models.BucketResult{
		Bucket:      bucket,
		Description: job.Description,
	}

	fail := func(err error, msg string) models.BucketResult {
		log.Error(err, msg)
		result.Status = models.StatusFailed
		result.Error = err.Error()
		return result
	}

	if r.opts.DryRun {
		log.Info("Dry run, transfer job not submitted", "job", transfer.Redact(job))
		result.Status = models.StatusDryRun
		return result
	}

	if r.source != nil {
		if err := r.source.Validate(ctx, bucket); err != nil {
			return fail(err, "Source bucket check failed")
		}
	}

	if r.sink != nil && !r.opts.SkipSinkSetup {
		created, err := r.sink.EnsureBucket(ctx, r.opts.ProjectID, bucket)
		if err != nil {
			return fail(err, "Sink bucket setup failed")
		}
		if created {
			log.Info("Created sink bucket in GCS")
		}
		result.SinkCreated = created

		// A missing grant only means the service account may lack write access;
		// the job is still requested.
		if warning := r.grantWriter(ctx, log, bucket, &result); warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}

	res, err := r.jobs.CreateOrPatch(ctx, job)
	if err != nil {
		return fail(err, "Transfer job request failed")
	}

	result.JobNames = res.JobNames
	switch res.Action {
	case transfer.ActionPatched:
		result.Status = models.StatusPatched
		log.Info("Existing job with the same description patched", "description", res.Description, "jobs", res.JobNames)
	default:
		result.Status = models.StatusCreated
		log.Info("Finished creating transfer", "description", res.Description, "job", strings.Join(res.JobNames, ","))
	}
	return result
}

func (r *Runner) grantWriter(ctx context.Context, log logr.Logger, bucket string, result *models.BucketResult) string {
	email, err := r.serviceAccountEmail(ctx)
	if err != nil {
		log.Error(err, "Could not resolve transfer service account")
		return err.Error()
	}

	granted, err := r.sink.EnsureWriter(ctx, bucket, email)
	if err != nil {
		log.Error(err, "Failed to set bucket ACL for service account", "serviceAccount", email)
		return err.Error()
	}
	if granted {
		log.Info("Set ACL on bucket for service account", "serviceAccount", email)
	}
	result.WriterGranted = granted
	return ""
}

func (r *Runner) serviceAccountEmail(ctx context.Context) (string, error) {
	if r.serviceAccount != "" {
		return r.serviceAccount, nil
	}
	email, err := r.jobs.ServiceAccountEmail(ctx, r.opts.ProjectID)
	if err != nil {
		return "", err
	}
	r.serviceAccount = email
	return email, nil
}

func (r *Runner) finish(summary *models.RunSummary) {
	summary.EndTime = r.now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond).String()
}
