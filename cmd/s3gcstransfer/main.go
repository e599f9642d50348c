// Package main is the entry point for s3gcstransfer.
//
// s3gcstransfer creates one Google Storage Transfer job per AWS S3 bucket,
// each pulling the S3 bucket into a GCS bucket of the same name on a daily
// schedule. It is meant to be run once per source environment.
//
// Inputs are environment variables:
//
//	GOOGLE_PROJECT_ID
//	AWS_ACCESS_ID
//	AWS_SECRET_KEY
//	S3_BUCKETS        comma separated
//
// Google credentials come from Application Default Credentials
// (gcloud auth application-default login).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"s3gcstransfer/cmd/s3gcstransfer/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
