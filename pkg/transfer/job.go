// Package transfer builds Storage Transfer Service job descriptors that pull
// an S3 bucket into a GCS bucket of the same name, and submits them.
package transfer

import (
	"fmt"
	"time"

	storagetransfer "google.golang.org/api/storagetransfer/v1"

	"s3gcstransfer/pkg/config"
	"s3gcstransfer/pkg/scheduler"
)

// Job statuses
const (
	StatusEnabled  = "ENABLED"
	StatusDisabled = "DISABLED"
	StatusDeleted  = "DELETED"
)

const redacted = "REDACTED"

// Description is the human readable job description. It doubles as the key
// used to find a job created by an earlier run.
func Description(bucket string) string {
	return fmt.Sprintf("AWS S3: %s to GCS Daily Transfer", bucket)
}

// BuildJob returns the descriptor for pulling bucket from S3 into the GCS
// bucket with the same name. Existing sink objects are never overwritten and
// nothing is deleted on either side.
func BuildJob(projectID string, creds *config.Credentials, bucket string, sched scheduler.Schedule) *storagetransfer.TransferJob {
	year, month, day := sched.StartDate()
	hour, min, sec := sched.TimeOfDay()

	schedule := &storagetransfer.Schedule{
		ScheduleStartDate: &storagetransfer.Date{
			Year:  int64(year),
			Month: int64(month),
			Day:   int64(day),
		},
		StartTimeOfDay: &storagetransfer.TimeOfDay{
			Hours:   int64(hour),
			Minutes: int64(min),
			Seconds: int64(sec),
		},
	}
	if !sched.IsDaily() {
		schedule.RepeatInterval = formatDuration(sched.RepeatInterval)
	}

	return &storagetransfer.TransferJob{
		Description: Description(bucket),
		ProjectId:   projectID,
		TransferSpec: &storagetransfer.TransferSpec{
			AwsS3DataSource: &storagetransfer.AwsS3Data{
				BucketName: bucket,
				AwsAccessKey: &storagetransfer.AwsAccessKey{
					AccessKeyId:     creds.AccessKeyID,
					SecretAccessKey: creds.SecretAccessKey,
				},
			},
			GcsDataSink: &storagetransfer.GcsData{
				BucketName: bucket,
			},
			TransferOptions: &storagetransfer.TransferOptions{
				OverwriteObjectsAlreadyExistingInSink: false,
				DeleteObjectsUniqueInSink:             false,
				DeleteObjectsFromSourceAfterTransfer:  false,
				ForceSendFields: []string{
					"OverwriteObjectsAlreadyExistingInSink",
					"DeleteObjectsUniqueInSink",
					"DeleteObjectsFromSourceAfterTransfer",
				},
			},
		},
		Schedule: schedule,
		Status:   StatusEnabled,
	}
}

// Redact returns a copy of job that is safe to log
func Redact(job *storagetransfer.TransferJob) *storagetransfer.TransferJob {
	if job == nil {
		return nil
	}
	out := *job
	if job.TransferSpec == nil || job.TransferSpec.AwsS3DataSource == nil || job.TransferSpec.AwsS3DataSource.AwsAccessKey == nil {
		return &out
	}

	spec := *job.TransferSpec
	source := *spec.AwsS3DataSource
	key := *source.AwsAccessKey
	if key.SecretAccessKey != "" {
		key.SecretAccessKey = redacted
	}
	source.AwsAccessKey = &key
	spec.AwsS3DataSource = &source
	out.TransferSpec = &spec
	return &out
}

// formatDuration renders d the way google.protobuf.Duration is encoded in JSON
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%ds", int64(d/time.Second))
}
