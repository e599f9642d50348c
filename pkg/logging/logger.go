package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// Options configures the process logger
type Options struct {
	Output    io.Writer
	Verbosity int
	Timestamp bool
}

// New returns a logr.Logger that writes one key/value line per entry
func New(opts Options) logr.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(out, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(out, args)
	}, funcr.Options{
		LogTimestamp:    opts.Timestamp,
		TimestampFormat: time.RFC3339,
		Verbosity:       opts.Verbosity,
	})
}
