package transfer

import (
	"context"
	"encoding/json"
	"fmt"

	storagetransfer "google.golang.org/api/storagetransfer/v1"
)

// patchFieldMask lists the fields a patch replaces on an existing job
const patchFieldMask = "transferSpec,status"

// Action is what happened to a bucket's transfer job
type Action string

const (
	ActionCreated Action = "created"
	ActionPatched Action = "patched"
)

// Result describes the outcome of CreateOrPatch
type Result struct {
	Action      Action
	Description string
	JobNames    []string
}

// Client wraps the Storage Transfer API
type Client struct {
	svc *storagetransfer.Service
}

// NewClient creates a transfer client
func NewClient(svc *storagetransfer.Service) *Client {
	return &Client{svc: svc}
}

type listFilter struct {
	ProjectID   string   `json:"projectId"`
	JobStatuses []string `json:"jobStatuses,omitempty"`
}

// ListFilter returns the JSON filter selecting the project's live jobs
func ListFilter(projectID string) (string, error) {
	data, err := json.Marshal(listFilter{
		ProjectID:   projectID,
		JobStatuses: []string{StatusEnabled, StatusDisabled},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode job filter: %w", err)
	}
	return string(data), nil
}

// FindByDescription returns every live job in the project with the given description
func (c *Client) FindByDescription(ctx context.Context, projectID, description string) ([]*storagetransfer.TransferJob, error) {
	filter, err := ListFilter(projectID)
	if err != nil {
		return nil, err
	}

	var matched []*storagetransfer.TransferJob
	err = c.svc.TransferJobs.List(filter).Pages(ctx, func(page *storagetransfer.ListTransferJobsResponse) error {
		for _, job := range page.TransferJobs {
			if job.Description == description {
				matched = append(matched, job)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transfer jobs: %w", err)
	}

	return matched, nil
}

// Create submits a new transfer job
func (c *Client) Create(ctx context.Context, job *storagetransfer.TransferJob) (*storagetransfer.TransferJob, error) {
	created, err := c.svc.TransferJobs.Create(job).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer job: %w", err)
	}
	return created, nil
}

// Patch replaces the transfer spec and status of an existing job
func (c *Client) Patch(ctx context.Context, projectID, jobName string, job *storagetransfer.TransferJob) (*storagetransfer.TransferJob, error) {
	req := &storagetransfer.UpdateTransferJobRequest{
		ProjectId: projectID,
		TransferJob: &storagetransfer.TransferJob{
			Description:  job.Description,
			TransferSpec: job.TransferSpec,
			Status:       job.Status,
		},
		UpdateTransferJobFieldMask: patchFieldMask,
	}

	patched, err := c.svc.TransferJobs.Patch(jobName, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to patch transfer job %s: %w", jobName, err)
	}
	return patched, nil
}

// ServiceAccountEmail returns the Google-managed account the transfer service runs as
func (c *Client) ServiceAccountEmail(ctx context.Context, projectID string) (string, error) {
	account, err := c.svc.GoogleServiceAccounts.Get(projectID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get transfer service account: %w", err)
	}
	if account.AccountEmail == "" {
		return "", fmt.Errorf("transfer service account for project %s has no email", projectID)
	}
	return account.AccountEmail, nil
}

// CreateOrPatch patches every existing job with the same description, or
// creates a new one when there is none.
func (c *Client) CreateOrPatch(ctx context.Context, job *storagetransfer.TransferJob) (*Result, error) {
	existing, err := c.FindByDescription(ctx, job.ProjectId, job.Description)
	if err != nil {
		return nil, err
	}

	if len(existing) == 0 {
		created, err := c.Create(ctx, job)
		if err != nil {
			return nil, err
		}
		return &Result{
			Action:      ActionCreated,
			Description: created.Description,
			JobNames:    []string{created.Name},
		}, nil
	}

	result := &Result{
		Action:      ActionPatched,
		Description: job.Description,
	}
	for _, e := range existing {
		if _, err := c.Patch(ctx, job.ProjectId, e.Name, job); err != nil {
			return result, err
		}
		result.JobNames = append(result.JobNames, e.Name)
	}
	return result, nil
}
