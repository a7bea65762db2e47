package retry

import (
	"context"
)

// Do calls fn until it succeeds or strategy gives up, and returns the last
// error.
func Do(ctx context.Context, strategy Strategy, fn func(context.Context) error) error {
	if strategy == nil {
		strategy = NewNever()
	}

	for retryCount := uint(0); ; retryCount++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		sleep, exceeded := strategy.Sleep(retryCount)
		if exceeded {
			return err
		}

		if wait(ctx, sleep) != nil {
			return err
		}
	}
}
