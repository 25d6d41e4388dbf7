package summarizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neurabot/neurabot-api/internal/infra/llm/groq"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		msg  string
		want time.Duration
		ok   bool
	}{
		{"rate limit exceeded, retry in 1m30s", 90 * time.Second, true},
		{"Please try again in 7.5s.", 7500 * time.Millisecond, true},
		{"try again in 2m0s", 120 * time.Second, true},
		{"rate limit exceeded", 0, false},
		{"try again in 0s", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseRetryAfter(tc.msg)
		require.Equal(t, tc.ok, ok, tc.msg)
		require.Equal(t, tc.want, got, tc.msg)
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 3 * time.Second
	require.Equal(t, 3*time.Second, backoffDelay(base, 1))
	require.Equal(t, 6*time.Second, backoffDelay(base, 2))
	require.Equal(t, 12*time.Second, backoffDelay(base, 3))
	require.Equal(t, 3*time.Second, backoffDelay(base, 0))
}

func TestClassify(t *testing.T) {
	require.Equal(t, failureRateLimit, classify(&groq.APIError{StatusCode: 429, Body: "{}"}))
	require.Equal(t, failureRateLimit, classify(errors.New("code: rate_limit_exceeded")))
	require.Equal(t, failureConnection, classify(&groq.APIError{StatusCode: 503}))
	require.Equal(t, failureConnection, classify(errors.New("i/o timeout")))
	require.Equal(t, failureConnection, classify(errors.New("request timed out")))
	require.Equal(t, failureFatal, classify(errors.New("invalid api key")))
	require.Equal(t, failureFatal, classify(nil))
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), 0))
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestCompleteWithRetryHonoursCancelledContext(t *testing.T) {
	client := &stubChatClient{errs: []error{errors.New("connection refused")}}
	svc, delays := newTestService(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.completeWithRetry(ctx, groq.ChatCompletionRequest{})
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, apperrors.IsCode(err, apperrors.CodeCancelled))
	require.Equal(t, 1, client.calls)
	require.Empty(t, *delays)
}
