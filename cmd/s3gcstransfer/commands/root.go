// Package commands defines the CLI command and its flag bindings. Execution is
// delegated to the handlers package.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"s3gcstransfer/cmd/s3gcstransfer/handlers"
	"s3gcstransfer/pkg/config"
	"s3gcstransfer/pkg/logging"
)

// swapped out by tests
var (
	getenv = os.Getenv
	runFn  = handlers.Run
)

var (
	versionString = "dev"
	commitString  = "none"
)

// SetVersionInfo records build metadata shown by --version
func SetVersionInfo(version, commit string) {
	versionString = version
	commitString = commit
}

type rootFlags struct {
	dryRun        bool
	verifySource  bool
	skipSinkSetup bool
	schedule      string
	location      string
	storageClass  string
	verbosity     int
}

// Root returns the s3gcstransfer command
func Root() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "s3gcstransfer",
		Short: "Create Google Storage Transfer jobs for AWS S3 buckets",
		Long: `Create one Google Storage Transfer job per S3 bucket, pulling the bucket
into a GCS bucket of the same name once a day.

Required environment variables:
  GOOGLE_PROJECT_ID
  AWS_ACCESS_ID
  AWS_SECRET_KEY
  S3_BUCKETS (comma separated)

A job whose description matches an existing job is patched instead of
created again.`,
		Version:      fmt.Sprintf("%s (commit %s)", versionString, commitString),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(getenv)
			if err != nil {
				var missing *config.MissingEnvError
				if errors.As(err, &missing) {
					fmt.Fprintln(cmd.ErrOrStderr(), "\n"+missing.Usage())
				}
				return err
			}
			applyFlags(cmd, cfg, &flags)

			log := logging.New(logging.Options{
				Output:    cmd.ErrOrStderr(),
				Verbosity: flags.verbosity,
				Timestamp: true,
			})

			return runFn(cmd.Context(), cfg, log, handlers.DefaultEnv())
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.dryRun, "dry-run", false, "Log the transfer jobs without calling any API (env "+config.EnvDryRun+")")
	f.BoolVar(&flags.verifySource, "verify-source", false, "Check each S3 bucket with the supplied credentials first (env "+config.EnvVerifySource+")")
	f.BoolVar(&flags.skipSinkSetup, "skip-sink-setup", false, "Do not create GCS buckets or grant the transfer service account (env "+config.EnvSkipSinkSetup+")")
	f.StringVar(&flags.schedule, "schedule", "", "Cron expression for the transfer, UTC (env "+config.EnvSchedule+", default \""+config.DefaultSchedule+"\")")
	f.StringVar(&flags.location, "location", "", "Location for newly created GCS buckets (env "+config.EnvLocation+", default "+config.DefaultLocation+")")
	f.StringVar(&flags.storageClass, "storage-class", "", "Storage class for newly created GCS buckets (env "+config.EnvStorageClass+", default "+config.DefaultStorageClass+")")
	f.IntVarP(&flags.verbosity, "verbose", "v", 0, "Log verbosity")

	return cmd
}

// applyFlags lets explicitly set flags win over the environment
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags *rootFlags) {
	f := cmd.Flags()
	if f.Changed("dry-run") {
		cfg.DryRun = flags.dryRun
	}
	if f.Changed("verify-source") {
		cfg.VerifySource = flags.verifySource
	}
	if f.Changed("skip-sink-setup") {
		cfg.SkipSinkSetup = flags.skipSinkSetup
	}
	if f.Changed("schedule") {
		cfg.Schedule = flags.schedule
	}
	if f.Changed("location") {
		cfg.Location = flags.location
	}
	if f.Changed("storage-class") {
		cfg.StorageClass = flags.storageClass
	}
}
