// Package helpers holds small shared utilities for the scheduler loops.
package helpers

import (
	"context"
	"time"
)

// SleepContext sleeps for d in one-second steps so a shutdown signal takes
// effect within a second. Returns false when the context was cancelled.
func SleepContext(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := time.Second
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(step):
		}
	}
}
