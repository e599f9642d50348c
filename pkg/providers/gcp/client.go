package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
	storagetransfer "google.golang.org/api/storagetransfer/v1"
)

// Scope covers both the Storage and Storage Transfer APIs
const Scope = storagetransfer.CloudPlatformScope

// Services holds the Google API clients a run talks to
type Services struct {
	Transfer *storagetransfer.Service
	Storage  *storage.Service
}

// Endpoints overrides the API base paths, mainly for tests
type Endpoints struct {
	Transfer string
	Storage  string
}

// DefaultClientOptions resolves Application Default Credentials
// (gcloud auth application-default login, GOOGLE_APPLICATION_CREDENTIALS,
// or the metadata server) and returns an authenticated HTTP client option.
func DefaultClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	creds, err := google.FindDefaultCredentials(ctx, Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to find application default credentials: %w", err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: 60 * time.Second,
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	return []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(tokenCtx, creds.TokenSource)),
	}, nil
}

// NewServices creates the Storage and Storage Transfer clients
func NewServices(ctx context.Context, endpoints Endpoints, opts ...option.ClientOption) (*Services, error) {
	transferOpts := opts
	if endpoints.Transfer != "" {
		transferOpts = append(append([]option.ClientOption{}, opts...), option.WithEndpoint(endpoints.Transfer))
	}
	transferSvc, err := storagetransfer.NewService(ctx, transferOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage Transfer service: %w", err)
	}

	storageOpts := opts
	if endpoints.Storage != "" {
		storageOpts = append(append([]option.ClientOption{}, opts...), option.WithEndpoint(endpoints.Storage))
	}
	storageSvc, err := storage.NewService(ctx, storageOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage service: %w", err)
	}

	return &Services{
		Transfer: transferSvc,
		Storage:  storageSvc,
	}, nil
}

// IsNotFound reports whether err is a 404 from a Google API
func IsNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
