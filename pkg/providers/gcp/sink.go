package gcp

import (
	"context"
	"fmt"

	storage "google.golang.org/api/storage/v1"
)

const (
	predefinedACL = "projectPrivate"
	writerRole    = "WRITER"
)

// SinkOptions controls how missing sink buckets are created
type SinkOptions struct {
	Location     string
	StorageClass string
}

// SinkManager prepares destination buckets for the transfer service
type SinkManager struct {
	svc  *storage.Service
	opts SinkOptions
}

// NewSinkManager creates a sink manager
func NewSinkManager(svc *storage.Service, opts SinkOptions) *SinkManager {
	return &SinkManager{svc: svc, opts: opts}
}

// EnsureBucket returns true when the bucket had to be created
func (m *SinkManager) EnsureBucket(ctx context.Context, projectID, bucket string) (bool, error) {
	_, err := m.svc.Buckets.Get(bucket).Context(ctx).Do()
	if err == nil {
		return false, nil
	}
	if !IsNotFound(err) {
		return false, fmt.Errorf("failed to get bucket %s: %w", bucket, err)
	}

	_, err = m.svc.Buckets.Insert(projectID, &storage.Bucket{
		Name:         bucket,
		Location:     m.opts.Location,
		StorageClass: m.opts.StorageClass,
	}).
		PredefinedAcl(predefinedACL).
		PredefinedDefaultObjectAcl(predefinedACL).
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	return true, nil
}

// EnsureWriter grants the service account WRITER on the bucket.
// Returns true when a new ACL entry was inserted.
func (m *SinkManager) EnsureWriter(ctx context.Context, bucket, serviceAccountEmail string) (bool, error) {
	entity := UserEntity(serviceAccountEmail)

	_, err := m.svc.BucketAccessControls.Get(bucket, entity).Context(ctx).Do()
	if err == nil {
		return false, nil
	}
	if !IsNotFound(err) {
		return false, fmt.Errorf("failed to get ACL %s on bucket %s: %w", entity, bucket, err)
	}

	_, err = m.svc.BucketAccessControls.Insert(bucket, &storage.BucketAccessControl{
		Entity: entity,
		Role:   writerRole,
	}).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to set ACL %s on bucket %s: %w", entity, bucket, err)
	}

	return true, nil
}

// UserEntity is the ACL entity name for a user or service account
func UserEntity(email string) string {
	return "user-" + email
}
