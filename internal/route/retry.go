package route

import (
	"context"
	"time"
)

// retry runs fn up to attempts times, sleeping between attempts with a
// linearly increasing backoff (delay, 2*delay, 3*delay, ...). It stops
// early when fn succeeds, when fn reports the failure as permanent, or
// when ctx is done. The last error is returned.
//
// Both provisioning verification and paste delivery go through this one
// policy so retry behavior is a single tested unit.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() (permanent bool, err error)) error {
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(i) * delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		permanent, err := fn()
		if err == nil {
			return nil
		}
		last = err
		if permanent {
			return last
		}
	}
	return last
}
