package retry_test

import (
	"context"
	"io"
	"net/http"
	"snapshoteer/internal/retry"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type transportMock struct {
	fakeRoundTrip func(*http.Request) (*http.Response, error)
}

func (m *transportMock) RoundTrip(request *http.Request) (*http.Response, error) {
	return m.fakeRoundTrip(request)
}

func newFlakyTransport(failures int, calls *int) *retry.Transport {
	retryOn, _ := retry.NewRetryOnFromString("gateway-error,connect-failure")
	return &retry.Transport{
		Base: &transportMock{
			fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
				*calls++
				if *calls <= failures {
					return &http.Response{StatusCode: http.StatusServiceUnavailable, Body: io.NopCloser(strings.NewReader(""))}, nil
				}
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok"))}, nil
			},
		},
		RetryStrategy: retry.NewExponentialBackOff(time.Millisecond, 10*time.Millisecond, 3, nil),
		RetryOn:       retryOn,
	}
}

func TestTransport(t *testing.T) {
	t.Run("RecoversFromGatewayError", func(t *testing.T) {
		calls := 0
		client := &http.Client{Transport: newFlakyTransport(2, &calls)}

		request, err := http.NewRequest(http.MethodPut, "http://bucket.local/index.html", nil)
		if err != nil {
			t.Fatal(err)
		}
		response, err := client.Do(request)
		if err != nil {
			t.Fatal(err)
		}
		defer response.Body.Close()

		if diff := cmp.Diff(http.StatusOK, response.StatusCode); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(3, calls); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("GivesUp", func(t *testing.T) {
		calls := 0
		client := &http.Client{Transport: newFlakyTransport(10, &calls)}

		request, err := http.NewRequest(http.MethodPut, "http://bucket.local/index.html", nil)
		if err != nil {
			t.Fatal(err)
		}
		response, err := client.Do(request)
		if err != nil {
			t.Fatal(err)
		}
		defer response.Body.Close()

		if diff := cmp.Diff(http.StatusServiceUnavailable, response.StatusCode); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(4, calls); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		calls := 0
		client := &http.Client{Transport: newFlakyTransport(10, &calls)}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		request, err := http.NewRequestWithContext(ctx, http.MethodPut, "http://bucket.local/index.html", nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := client.Do(request); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("ResendsBody", func(t *testing.T) {
		retryOn, _ := retry.NewRetryOnFromString("503")
		var bodies []string
		client := &http.Client{Transport: &retry.Transport{
			Base: &transportMock{
				fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
					b, err := io.ReadAll(request.Body)
					if err != nil {
						return nil, err
					}
					bodies = append(bodies, string(b))
					status := http.StatusServiceUnavailable
					if len(bodies) == 2 {
						status = http.StatusOK
					}
					return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}, nil
				},
			},
			RetryStrategy: retry.NewExponentialBackOff(time.Millisecond, time.Millisecond, 3, nil),
			RetryOn:       retryOn,
		}}

		request, err := http.NewRequest(http.MethodPut, "http://bucket.local/app.js", strings.NewReader("console.log(1)"))
		if err != nil {
			t.Fatal(err)
		}
		response, err := client.Do(request)
		if err != nil {
			t.Fatal(err)
		}
		defer response.Body.Close()

		if diff := cmp.Diff([]string{"console.log(1)", "console.log(1)"}, bodies); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}
