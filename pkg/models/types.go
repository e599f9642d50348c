package models

import "time"

// BucketStatus is the outcome for one source bucket
type BucketStatus string

const (
	StatusCreated BucketStatus = "created"
	StatusPatched BucketStatus = "patched"
	StatusDryRun  BucketStatus = "dry_run"
	StatusFailed  BucketStatus = "failed"
)

// BucketResult records what happened to one source bucket
type BucketResult struct {
	Bucket        string       `json:"bucket"`
	Status        BucketStatus `json:"status"`
	Description   string       `json:"description"`
	JobNames      []string     `json:"job_names,omitempty"`
	SinkCreated   bool         `json:"sink_created"`
	WriterGranted bool         `json:"writer_granted"`
	Warnings      []string     `json:"warnings,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// Failed reports whether the bucket did not get a transfer job
func (r BucketResult) Failed() bool {
	return r.Status == StatusFailed
}

// RunSummary is the result of one invocation
type RunSummary struct {
	RunID     string         `json:"run_id"`
	ProjectID string         `json:"project_id"`
	DryRun    bool           `json:"dry_run"`
	Buckets   []BucketResult `json:"buckets"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Duration  string         `json:"duration"`
}

// Count returns how many buckets ended with the given status
func (s *RunSummary) Count(status BucketStatus) int {
	n := 0
	for _, b := range s.Buckets {
		if b.Status == status {
			n++
		}
	}
	return n
}

// FailedBuckets returns the names of buckets without a transfer job
func (s *RunSummary) FailedBuckets() []string {
	var failed []string
	for _, b := range s.Buckets {
		if b.Failed() {
			failed = append(failed, b.Bucket)
		}
	}
	return failed
}
