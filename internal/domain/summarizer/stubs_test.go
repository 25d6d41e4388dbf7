package summarizer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/neurabot/neurabot-api/internal/infra/llm/groq"
	"github.com/neurabot/neurabot-api/pkg/metrics"
)

func testConfig() Config {
	return Config{
		DefaultMode:   ModePatologi,
		Model:         "test-model",
		Temperature:   0.3,
		MaxRetries:    3,
		BaseBackoff:   3 * time.Second,
		MinRetryAfter: 5 * time.Second,
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService records backoff delays instead of sleeping.
func newTestService(client ChatClient) (*service, *[]time.Duration) {
	svc := NewService(testConfig(), client, metrics.NewTokenCounter(""), newTestLogger()).(*service)
	svc.counter = nil
	delays := &[]time.Duration{}
	svc.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return svc, delays
}

type stubChatClient struct {
	mu sync.Mutex

	// errs are returned in order before completionResp is returned.
	errs           []error
	completionResp groq.ChatCompletionResponse
	calls          int

	stream    groq.Stream
	streamErr error

	lastRequest groq.ChatCompletionRequest
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, req groq.ChatCompletionRequest) (groq.ChatCompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRequest = req
	s.calls++
	if s.calls <= len(s.errs) {
		return groq.ChatCompletionResponse{}, s.errs[s.calls-1]
	}
	return s.completionResp, nil
}

func (s *stubChatClient) CreateChatCompletionStream(_ context.Context, req groq.ChatCompletionRequest) (groq.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRequest = req
	s.calls++
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	return s.stream, nil
}

func completion(content string) groq.ChatCompletionResponse {
	return groq.ChatCompletionResponse{Choices: []groq.Choice{{Message: groq.Message{Role: "assistant", Content: content}}}}
}

// stubStream hands out fragments one at a time. When gate is set, each Recv
// waits for a value on it so tests control the pace of the vendor.
type stubStream struct {
	mu        sync.Mutex
	fragments []groq.Fragment
	failAfter error
	idx       int
	gate      chan struct{}
	closed    bool
}

func (s *stubStream) Recv() (groq.Fragment, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.fragments) {
		if s.failAfter != nil {
			return groq.Fragment{}, s.failAfter
		}
		return groq.Fragment{}, io.EOF
	}
	frag := s.fragments[s.idx]
	s.idx++
	return frag, nil
}

func (s *stubStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var errFatal = errors.New("groq request failed: status=400 body=invalid model")
