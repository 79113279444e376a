package scanner

import (
	"fmt"
	"sync"
	"time"

	"photodb/logging"
)

// tracker consumes per-file results and maintains the run summary,
// printing periodic progress while the scan runs.
type tracker struct {
	mu       sync.Mutex
	summary  Summary
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	display  bool
}

func newTracker(results <-chan Result, display bool) *tracker {
	t := &tracker{
		ticker:   time.NewTicker(500 * time.Millisecond),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		display:  display,
	}

	if display {
		go t.displayProgress()
	}
	go t.consume(results)

	return t
}

func (t *tracker) consume(results <-chan Result) {
	for result := range results {
		t.mu.Lock()
		switch result.Status {
		case StatusCommitted:
			t.summary.Committed++
		case StatusSkipped:
			t.summary.Skipped++
		case StatusFailed:
			t.summary.Failed++
			t.summary.Failures = append(t.summary.Failures, Failure{Path: result.Path, Reason: result.Reason})
		}
		t.mu.Unlock()

		if result.Status == StatusFailed {
			logging.Error("%s: %s", result.Path, result.Reason)
		}
		logging.FileProcessed(result.Path, result.Status != StatusFailed, result.Reason)
	}
	close(t.finished)
}

func (t *tracker) displayProgress() {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			t.mu.Lock()
			s := t.summary
			t.mu.Unlock()
			fmt.Printf("\rProgress: %d committed, %d skipped, %d failed", s.Committed, s.Skipped, s.Failed)
		}
	}
}

// wait blocks until the results channel has drained, then returns the
// final summary.
func (t *tracker) wait() Summary {
	<-t.finished
	t.ticker.Stop()
	close(t.done)

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// PrintSummary writes the completion statistics for a finished run.
func PrintSummary(s Summary, elapsed time.Duration) {
	fmt.Println("\nIndexing complete.")
	fmt.Printf("Committed %d records in %v (%d skipped as already indexed).\n",
		s.Committed, elapsed.Round(time.Second), s.Skipped)

	if s.Failed > 0 {
		fmt.Printf("Failed to index %d files:\n", s.Failed)
		for _, f := range s.Failures {
			fmt.Printf("  %s: %s\n", f.Path, f.Reason)
		}
	}
}
