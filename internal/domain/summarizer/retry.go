package summarizer

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/neurabot/neurabot-api/internal/infra/llm/groq"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

type failureKind int

const (
	failureFatal failureKind = iota
	failureRateLimit
	failureConnection
)

func (k failureKind) String() string {
	switch k {
	case failureRateLimit:
		return "rate_limit"
	case failureConnection:
		return "connection"
	default:
		return "fatal"
	}
}

var (
	retryAfterPattern = regexp.MustCompile(`in\s+(?:(\d+)m)?(\d+(?:\.\d+)?)s`)
	connectionMarkers = []string{"connection", "timeout", "timed out", "temporarily"}
)

func classify(err error) failureKind {
	if err == nil {
		return failureFatal
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit") {
		return failureRateLimit
	}
	for _, marker := range connectionMarkers {
		if strings.Contains(msg, marker) {
			return failureConnection
		}
	}
	return failureFatal
}

// parseRetryAfter reads vendor hints such as "try again in 1m30.5s".
func parseRetryAfter(msg string) (time.Duration, bool) {
	m := retryAfterPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	var minutes float64
	if m[1] != "" {
		parsed, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		minutes = parsed
	}
	seconds, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	total := minutes*60 + seconds
	if total <= 0 {
		return 0, false
	}
	return time.Duration(total * float64(time.Second)), true
}

// backoffDelay returns base * 2^(attempt-1) for attempt >= 1.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<(attempt-1))
}

// completeWithRetry calls the vendor, retrying rate-limit and connection failures
// up to cfg.MaxRetries times. It blocks the caller during backoff.
func (s *service) completeWithRetry(ctx context.Context, req groq.ChatCompletionRequest) (groq.ChatCompletionResponse, error) {
	attempt := 0
	for {
		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return groq.ChatCompletionResponse{}, s.cancelled(ctxErr)
		}

		kind := classify(err)
		base, ok := parseRetryAfter(err.Error())
		if !ok {
			base = s.cfg.BaseBackoff
		}
		attempt++

		if kind != failureFatal && attempt <= s.cfg.MaxRetries {
			delay := backoffDelay(base, attempt)
			s.logger.Warn("upstream call failed, retrying",
				"kind", kind.String(), "attempt", attempt, "max_retries", s.cfg.MaxRetries, "delay", delay, "error", err)
			if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
				return groq.ChatCompletionResponse{}, s.cancelled(sleepErr)
			}
			continue
		}

		s.logger.Error("upstream call failed", "kind", kind.String(), "attempts", attempt, "error", err)
		return groq.ChatCompletionResponse{}, s.upstreamError(kind, base, err)
	}
}

// cancelled reports a caller that went away; it is not an upstream fault.
func (s *service) cancelled(err error) error {
	s.logger.Info("summarization cancelled by caller", "error", err)
	return apperrors.Wrap(apperrors.CodeCancelled, "summarization cancelled", err)
}

func (s *service) upstreamError(kind failureKind, retryAfter time.Duration, err error) error {
	switch kind {
	case failureRateLimit:
		if retryAfter < s.cfg.MinRetryAfter {
			retryAfter = s.cfg.MinRetryAfter
		}
		return apperrors.RateLimited("upstream rate limit exceeded", retryAfter, err)
	case failureConnection:
		return apperrors.Wrap(apperrors.CodeUpstreamConnection, "upstream unavailable", err)
	default:
		return apperrors.Wrap(apperrors.CodeFatalUpstream, "upstream request failed", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
