package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(&StatusError{StatusCode: 503}))
	assert.True(t, IsRetryableError(&StatusError{StatusCode: 429}))
	assert.False(t, IsRetryableError(&StatusError{StatusCode: 400}))
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.False(t, IsRetryableError(errors.New("boom")))
	assert.False(t, IsRetryableError(nil))
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"30"}}}
	assert.Equal(t, 10*time.Second, RetryAfterDuration(resp, time.Second, 10*time.Second))
	assert.Equal(t, time.Second, RetryAfterDuration(nil, time.Second, 0))
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{MaxRetries: 5, Initial: time.Millisecond}, func() (int, error) {
		calls++
		return 0, &StatusError{Service: "test", StatusCode: 404}
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 404, StatusCode(err))
	assert.Equal(t, 1, calls)
}

func TestRetryRetriesTransientErrors(t *testing.T) {
	calls := 0
	notified := 0
	v, err := Retry(context.Background(), RetryPolicy{MaxRetries: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &StatusError{Service: "test", StatusCode: 502}
		}
		return "ok", nil
	}, func(error, time.Duration) { notified++ })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, notified)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{MaxRetries: 2, Initial: time.Millisecond, Max: time.Millisecond}, func() (int, error) {
		calls++
		return 0, &StatusError{Service: "test", StatusCode: 500}
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
