// Package logging builds the structured loggers used by the segsim tools.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// New returns a logger writing to w. Verbosity gates V(n) messages: 0 shows
// only Info at the base level, 1 adds faults and resets, 2 adds register
// traffic.
func New(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{
		LogTimestamp: true,
		Verbosity:    verbosity,
	})
}

// Open returns a logger writing to stderr when path is empty, or appending
// to the file at path otherwise. The returned closer releases the file.
func Open(path string, verbosity int) (logr.Logger, io.Closer, error) {
	if path == "" {
		return New(os.Stderr, verbosity).WithName("segsim"), nopCloser{}, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return logr.Discard(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	log := New(f, verbosity).WithName("segsim")
	log.Info("log opened", "path", path)
	return log, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
