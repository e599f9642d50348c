package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvProjectID     = "GOOGLE_PROJECT_ID"
	EnvAccessID      = "AWS_ACCESS_ID"
	EnvSecretKey     = "AWS_SECRET_KEY"
	EnvBuckets       = "S3_BUCKETS"
	EnvSchedule      = "TRANSFER_SCHEDULE"
	EnvLocation      = "GCS_LOCATION"
	EnvStorageClass  = "GCS_STORAGE_CLASS"
	EnvRegion        = "AWS_REGION"
	EnvVerifySource  = "VERIFY_SOURCE"
	EnvDryRun        = "DRY_RUN"
	EnvSkipSinkSetup = "SKIP_SINK_SETUP"
)

// Defaults for the optional settings
const (
	DefaultSchedule     = "0 10 * * *" // 10:00 UTC, 5AM US Central
	DefaultLocation     = "US"
	DefaultStorageClass = "NEARLINE"
)

// Config is everything a run needs
type Config struct {
	ProjectID   string
	Credentials *Credentials
	Buckets     []string

	Schedule     string
	Location     string
	StorageClass string

	VerifySource  bool
	DryRun        bool
	SkipSinkSetup bool
}

// MissingEnvError is returned when required environment variables are unset
type MissingEnvError struct {
	Missing []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// Usage describes every required variable
func (e *MissingEnvError) Usage() string {
	return "Fail. Must set the following env vars:\n" +
		EnvProjectID + "\n" +
		EnvAccessID + "\n" +
		EnvSecretKey + "\n" +
		EnvBuckets + " (comma separated)\n"
}

// LoadFromEnvironment reads the configuration from the process environment
func LoadFromEnvironment() (*Config, error) {
	return Load(os.Getenv)
}

// Load reads the configuration using getenv
func Load(getenv func(string) string) (*Config, error) {
	projectID := strings.TrimSpace(getenv(EnvProjectID))
	accessID := strings.TrimSpace(getenv(EnvAccessID))
	secretKey := strings.TrimSpace(getenv(EnvSecretKey))
	buckets := ParseBuckets(getenv(EnvBuckets))

	var missing []string
	if projectID == "" {
		missing = append(missing, EnvProjectID)
	}
	if accessID == "" {
		missing = append(missing, EnvAccessID)
	}
	if secretKey == "" {
		missing = append(missing, EnvSecretKey)
	}
	if len(buckets) == 0 {
		missing = append(missing, EnvBuckets)
	}
	if len(missing) > 0 {
		return nil, &MissingEnvError{Missing: missing}
	}

	cfg := &Config{
		ProjectID:    projectID,
		Credentials:  NewCredentials(accessID, secretKey, getenv(EnvRegion)),
		Buckets:      buckets,
		Schedule:     valueOr(getenv(EnvSchedule), DefaultSchedule),
		Location:     valueOr(getenv(EnvLocation), DefaultLocation),
		StorageClass: valueOr(getenv(EnvStorageClass), DefaultStorageClass),
	}

	var err error
	if cfg.VerifySource, err = parseBool(getenv, EnvVerifySource); err != nil {
		return nil, err
	}
	if cfg.DryRun, err = parseBool(getenv, EnvDryRun); err != nil {
		return nil, err
	}
	if cfg.SkipSinkSetup, err = parseBool(getenv, EnvSkipSinkSetup); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseBuckets splits a comma separated bucket list, dropping blank entries
func ParseBuckets(raw string) []string {
	var buckets []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		buckets = append(buckets, b)
	}
	return buckets
}

func valueOr(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func parseBool(getenv func(string) string, name string) (bool, error) {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid value %q for %s: %w", raw, name, err)
	}
	return v, nil
}
