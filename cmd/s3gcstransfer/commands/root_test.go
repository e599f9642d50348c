package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3gcstransfer/cmd/s3gcstransfer/handlers"
	"s3gcstransfer/pkg/config"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := getenv
	getenv = func(k string) string { return env[k] }
	t.Cleanup(func() { getenv = orig })
}

func captureRun(t *testing.T, err error) **config.Config {
	t.Helper()
	var got *config.Config
	orig := runFn
	runFn = func(_ context.Context, cfg *config.Config, _ logr.Logger, _ handlers.Env) error {
		got = cfg
		return err
	}
	t.Cleanup(func() { runFn = orig })
	return &got
}

func baseEnv() map[string]string {
	return map[string]string{
		config.EnvProjectID: "proj-1",
		config.EnvAccessID:  "AKIAEXAMPLE",
		config.EnvSecretKey: "secret",
		config.EnvBuckets:   "logs,assets",
		config.EnvLocation:  "EU",
	}
}

func execute(args ...string) (string, error) {
	cmd := Root()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRoot_MissingEnvPrintsUsage(t *testing.T) {
	withEnv(t, map[string]string{config.EnvProjectID: "proj-1"})
	got := captureRun(t, nil)

	out, err := execute()
	require.Error(t, err)

	var missing *config.MissingEnvError
	assert.ErrorAs(t, err, &missing)
	assert.Contains(t, out, "Fail. Must set the following env vars")
	assert.Contains(t, out, "S3_BUCKETS (comma separated)")
	assert.Nil(t, *got)
}

func TestRoot_FlagsOverrideEnv(t *testing.T) {
	env := baseEnv()
	env[config.EnvDryRun] = "false"
	withEnv(t, env)
	got := captureRun(t, nil)

	_, err := execute("--dry-run", "--location", "ASIA", "--schedule", "0 4 * * *", "--skip-sink-setup")
	require.NoError(t, err)

	cfg := *got
	require.NotNil(t, cfg)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.SkipSinkSetup)
	assert.Equal(t, "ASIA", cfg.Location)
	assert.Equal(t, "0 4 * * *", cfg.Schedule)
	assert.Equal(t, config.DefaultStorageClass, cfg.StorageClass)
	assert.Equal(t, []string{"logs", "assets"}, cfg.Buckets)
}

func TestRoot_EnvUsedWithoutFlags(t *testing.T) {
	withEnv(t, baseEnv())
	got := captureRun(t, nil)

	_, err := execute()
	require.NoError(t, err)
	assert.Equal(t, "EU", (*got).Location)
	assert.False(t, (*got).DryRun)
}

func TestRoot_RunErrorIsReported(t *testing.T) {
	withEnv(t, baseEnv())
	captureRun(t, errors.New("1 of 2 buckets failed: logs"))

	out, err := execute()
	require.Error(t, err)
	assert.Contains(t, out, "1 of 2 buckets failed: logs")
}

func TestRoot_RejectsArgs(t *testing.T) {
	withEnv(t, baseEnv())
	captureRun(t, nil)

	_, err := execute("extra")
	assert.Error(t, err)
}

func TestRoot_Version(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123")
	t.Cleanup(func() { SetVersionInfo("dev", "none") })

	out, err := execute("--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3 (commit abc123)")
}
