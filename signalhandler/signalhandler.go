package signalhandler

import (
	"context"
	"os/signal"
	"runtime"
	"syscall"
)

// Context returns a context cancelled on SIGINT or SIGTERM. An interrupted
// scan stops between files; the in-flight record's database transaction and
// journal append either complete or never happen.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// GetOptimalProcs returns the number of extraction workers for this system.
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// Extraction shells out to exiftool for RAW files; leave headroom.
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
