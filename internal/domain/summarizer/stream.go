package summarizer

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/neurabot/neurabot-api/internal/infra/llm/groq"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

type sessionState string

const (
	stateStreaming sessionState = "streaming"
	stateCompleted sessionState = "completed"
	stateCancelled sessionState = "cancelled"
	stateErrored   sessionState = "errored"
)

func (s *service) StreamSummary(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	text, mode, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(text, mode)
	stream, err := s.client.CreateChatCompletionStream(ctx, s.completionRequest(prompt, true))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, s.cancelled(ctxErr)
		}
		kind := classify(err)
		retryAfter, ok := parseRetryAfter(err.Error())
		if !ok {
			retryAfter = s.cfg.BaseBackoff
		}
		return nil, s.upstreamError(kind, retryAfter, err)
	}

	s.logger.Info("stream started", "text_len", len(text), "mode", mode)
	out := make(chan StreamEvent)
	go s.relay(ctx, stream, out)
	return out, nil
}

// relay forwards fragments one by one. Cancellation is polled once per fragment;
// a cancelled session still ends with a final event carrying what was collected.
func (s *service) relay(ctx context.Context, stream groq.Stream, out chan<- StreamEvent) {
	defer close(out)
	defer stream.Close()

	var (
		collected strings.Builder
		fragments int
		state     = stateStreaming
	)

	for state == stateStreaming {
		if ctx.Err() != nil {
			state = stateCancelled
			break
		}
		frag, err := stream.Recv()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				state = stateCompleted
			case ctx.Err() != nil:
				state = stateCancelled
			default:
				state = stateErrored
				s.logger.Error("stream recv failed", "fragments", fragments, "error", err)
				out <- StreamEvent{Kind: EventError, Error: err.Error(), Code: apperrors.CodeOf(s.upstreamError(classify(err), 0, err))}
			}
			break
		}
		if ctx.Err() != nil {
			state = stateCancelled
			break
		}
		if frag.Kind == groq.FragmentEmpty || frag.Text == "" {
			continue
		}
		collected.WriteString(frag.Text)
		fragments++
		out <- StreamEvent{Kind: EventToken, Token: frag.Text}
	}

	if state == stateErrored {
		return
	}

	out <- StreamEvent{Kind: EventFinal, Final: StripReasoning(collected.String()), End: true}
	s.logger.Info("stream ended", "state", state, "fragments", fragments, "chars", collected.Len())
}
