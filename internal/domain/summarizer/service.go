package summarizer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/neurabot/neurabot-api/internal/infra/llm/groq"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
	"github.com/neurabot/neurabot-api/pkg/metrics"
)

// Service exposes summarization capabilities.
type Service interface {
	Summarize(ctx context.Context, req Request) (Response, error)
	// StreamSummary relays fragments until the vendor finishes or ctx is cancelled.
	// Callers must drain the channel until it is closed.
	StreamSummary(ctx context.Context, req Request) (<-chan StreamEvent, error)
	Modes() ModeInfo
	// CheckUpstream sends one short completion without retries.
	CheckUpstream(ctx context.Context) (UpstreamStatus, error)
}

type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req groq.ChatCompletionRequest) (groq.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req groq.ChatCompletionRequest) (groq.Stream, error)
}

type service struct {
	cfg     Config
	client  ChatClient
	counter *metrics.TokenCounter
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

// NewService is a wire provider for the summarizer domain.
func NewService(cfg Config, client ChatClient, counter *metrics.TokenCounter, logger *slog.Logger) Service {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = ModePatologi
	}
	return &service{
		cfg:     cfg,
		client:  client,
		counter: counter,
		logger:  logger.With("component", "summarizer.service"),
		sleep:   sleepContext,
		now:     time.Now,
	}
}

func (s *service) Summarize(ctx context.Context, req Request) (Response, error) {
	text, mode, err := s.prepare(req)
	if err != nil {
		return Response{}, err
	}

	prompt := BuildPrompt(text, mode)
	s.logger.Info("summarize request", "text_len", len(text), "mode", mode)

	start := s.now()
	resp, err := s.completeWithRetry(ctx, s.completionRequest(prompt, false))
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, apperrors.Wrap(apperrors.CodeFatalUpstream, "upstream returned no choices", nil)
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	s.logger.Debug("upstream response received", "content", raw)

	return Response{
		Summary:    StripReasoning(raw),
		Mode:       mode,
		DurationMs: s.now().Sub(start).Milliseconds(),
		TokenUsage: s.usage(resp.Usage, prompt, raw),
	}, nil
}

func (s *service) Modes() ModeInfo {
	allowed := make([]Mode, len(AllowedModes))
	copy(allowed, AllowedModes)
	return ModeInfo{Default: s.cfg.DefaultMode, Allowed: allowed}
}

func (s *service) prepare(req Request) (string, Mode, error) {
	text := normalize(req.Text)
	if text == "" {
		return "", "", apperrors.Wrap(apperrors.CodeValidation, "text cannot be empty", nil)
	}
	mode, err := ParseMode(req.Mode, s.cfg.DefaultMode)
	if err != nil {
		return "", "", err
	}
	return text, mode, nil
}

func (s *service) completionRequest(prompt string, stream bool) groq.ChatCompletionRequest {
	return groq.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    []groq.Message{{Role: "user", Content: prompt}},
		Temperature: s.cfg.Temperature,
		Stream:      stream,
	}
}

func (s *service) usage(vendor *groq.Usage, prompt, completion string) *metrics.TokenUsage {
	if vendor != nil && vendor.TotalTokens > 0 {
		return &metrics.TokenUsage{
			PromptTokens:     vendor.PromptTokens,
			CompletionTokens: vendor.CompletionTokens,
			TotalTokens:      vendor.TotalTokens,
		}
	}
	if s.counter == nil {
		return nil
	}
	estimate := s.counter.Estimate(prompt, completion)
	return &estimate
}

const upstreamCheckPrompt = "Hello world"

func (s *service) CheckUpstream(ctx context.Context) (UpstreamStatus, error) {
	start := s.now()
	resp, err := s.client.CreateChatCompletion(ctx, s.completionRequest(upstreamCheckPrompt, false))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return UpstreamStatus{}, s.cancelled(ctxErr)
		}
		kind := classify(err)
		retryAfter, ok := parseRetryAfter(err.Error())
		if !ok {
			retryAfter = s.cfg.BaseBackoff
		}
		s.logger.Warn("upstream check failed", "kind", kind.String(), "error", err)
		return UpstreamStatus{}, s.upstreamError(kind, retryAfter, err)
	}
	if len(resp.Choices) == 0 {
		return UpstreamStatus{}, apperrors.Wrap(apperrors.CodeFatalUpstream, "upstream returned no choices", nil)
	}
	return UpstreamStatus{
		Status:    "ok",
		Model:     s.cfg.Model,
		Response:  StripReasoning(resp.Choices[0].Message.Content),
		LatencyMs: s.now().Sub(start).Milliseconds(),
	}, nil
}
