package retry

import (
	"context"
	"net/http"
	"time"
)

// Transport retries requests whose error or response matches RetryOn,
// sleeping as RetryStrategy says between attempts.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

type attemptKey struct{}

func attempt(ctx context.Context) uint {
	n, _ := ctx.Value(attemptKey{}).(uint)
	return n
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()
	n := attempt(ctx)
	sleep, exceeded := t.retryStrategy().Sleep(n)

	response, err := t.base().RoundTrip(request)
	var retriable bool
	switch {
	case exceeded || t.RetryOn == nil:
	case err != nil:
		retriable = t.RetryOn.CheckError(err)
	default:
		retriable = t.RetryOn.CheckResponse(response)
	}
	if !retriable {
		return response, err
	}

	if response != nil {
		_ = response.Body.Close()
	}
	if err := wait(ctx, sleep); err != nil {
		return nil, err
	}

	next := request.WithContext(context.WithValue(ctx, attemptKey{}, n+1))
	if request.GetBody != nil {
		body, err := request.GetBody()
		if err != nil {
			return nil, err
		}
		next.Body = body
	}
	return t.RoundTrip(next)
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
