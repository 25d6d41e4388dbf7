package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurabot/neurabot-api/internal/domain/summarizer"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialSocket(t *testing.T, svc summarizer.Service) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(newRouterUnderTest(t, svc).Handler)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

func receive(t *testing.T, conn *websocket.Conn) inbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg inbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func decodeEvent(t *testing.T, msg inbound) summarizer.StreamEvent {
	t.Helper()
	require.Equal(t, eventSummaryStream, msg.Event)
	var ev summarizer.StreamEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	return ev
}

// cancellableSummarizer emits the given tokens, then waits for cancellation
// before sending the final event, like the real relay does.
func cancellableSummarizer(tokens ...string) *stubSummarizer {
	return &stubSummarizer{
		streamSummaryFn: func(ctx context.Context, req summarizer.Request) (<-chan summarizer.StreamEvent, error) {
			out := make(chan summarizer.StreamEvent)
			go func() {
				defer close(out)
				for _, tok := range tokens {
					out <- summarizer.StreamEvent{Kind: summarizer.EventToken, Token: tok}
				}
				<-ctx.Done()
				out <- summarizer.StreamEvent{Kind: summarizer.EventFinal, Final: strings.Join(tokens, ""), End: true}
			}()
			return out, nil
		},
	}
}

func TestStreamSocketRelaysSession(t *testing.T) {
	svc := &stubSummarizer{
		streamSummaryFn: func(ctx context.Context, req summarizer.Request) (<-chan summarizer.StreamEvent, error) {
			assert.Equal(t, "Pasien demam", req.Text)
			assert.Equal(t, "dokter_hewan", req.Mode)
			out := make(chan summarizer.StreamEvent)
			go func() {
				defer close(out)
				out <- summarizer.StreamEvent{Kind: summarizer.EventToken, Token: "Demam"}
				out <- summarizer.StreamEvent{Kind: summarizer.EventFinal, Final: "Demam", End: true}
			}()
			return out, nil
		},
	}
	conn := dialSocket(t, svc)

	send(t, conn, eventSummarize, map[string]string{"text": "Pasien demam", "mode": "dokter_hewan"})
	require.Equal(t, summarizer.StreamEvent{Kind: summarizer.EventToken, Token: "Demam"}, decodeEvent(t, receive(t, conn)))
	require.Equal(t, summarizer.StreamEvent{Kind: summarizer.EventFinal, Final: "Demam", End: true}, decodeEvent(t, receive(t, conn)))

	// The connection accepts a new session once the previous one finished.
	send(t, conn, eventSummarize, map[string]string{"text": "Pasien demam", "mode": "dokter_hewan"})
	require.Equal(t, summarizer.EventToken, decodeEvent(t, receive(t, conn)).Kind)
}

func TestStreamSocketStopStream(t *testing.T) {
	conn := dialSocket(t, cancellableSummarizer("satu"))

	send(t, conn, eventSummarize, map[string]string{"text": "teks"})
	require.Equal(t, "satu", decodeEvent(t, receive(t, conn)).Token)

	send(t, conn, eventStop, nil)

	var (
		gotAck   bool
		gotFinal summarizer.StreamEvent
	)
	for i := 0; i < 2; i++ {
		msg := receive(t, conn)
		switch msg.Event {
		case eventStop:
			gotAck = true
			var ack map[string]any
			require.NoError(t, json.Unmarshal(msg.Data, &ack))
			require.Equal(t, true, ack["stopped"])
		case eventSummaryStream:
			gotFinal = decodeEvent(t, msg)
		default:
			t.Fatalf("unexpected event %q", msg.Event)
		}
	}
	require.True(t, gotAck)
	require.Equal(t, summarizer.StreamEvent{Kind: summarizer.EventFinal, Final: "satu", End: true}, gotFinal)
}

func TestStreamSocketStopWhileOpening(t *testing.T) {
	opening := make(chan struct{})
	svc := &stubSummarizer{
		streamSummaryFn: func(ctx context.Context, req summarizer.Request) (<-chan summarizer.StreamEvent, error) {
			close(opening)
			// The vendor has not answered yet; only cancellation unblocks the open.
			<-ctx.Done()
			return nil, apperrors.Wrap(apperrors.CodeCancelled, "summarization cancelled", ctx.Err())
		},
	}
	conn := dialSocket(t, svc)

	send(t, conn, eventSummarize, map[string]string{"text": "teks"})
	select {
	case <-opening:
	case <-time.After(2 * time.Second):
		t.Fatal("stream was never opened")
	}
	send(t, conn, eventStop, nil)

	var (
		gotAck   bool
		gotFinal bool
	)
	for i := 0; i < 2; i++ {
		msg := receive(t, conn)
		switch msg.Event {
		case eventStop:
			var ack map[string]any
			require.NoError(t, json.Unmarshal(msg.Data, &ack))
			require.Equal(t, true, ack["stopped"])
			gotAck = true
		case eventSummaryStream:
			require.Equal(t, summarizer.StreamEvent{Kind: summarizer.EventFinal, End: true}, decodeEvent(t, msg))
			gotFinal = true
		default:
			t.Fatalf("unexpected event %q", msg.Event)
		}
	}
	require.True(t, gotAck)
	require.True(t, gotFinal)
}

func TestStreamSocketStopWithoutSession(t *testing.T) {
	conn := dialSocket(t, &stubSummarizer{})

	send(t, conn, eventStop, nil)
	msg := receive(t, conn)
	require.Equal(t, eventStop, msg.Event)
	var ack map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &ack))
	require.Equal(t, false, ack["stopped"])
}

func TestStreamSocketRejectsSecondSession(t *testing.T) {
	var opened atomic.Int32
	svc := cancellableSummarizer("a")
	inner := svc.streamSummaryFn
	svc.streamSummaryFn = func(ctx context.Context, req summarizer.Request) (<-chan summarizer.StreamEvent, error) {
		opened.Add(1)
		return inner(ctx, req)
	}
	conn := dialSocket(t, svc)

	send(t, conn, eventSummarize, map[string]string{"text": "satu"})
	require.Equal(t, "a", decodeEvent(t, receive(t, conn)).Token)

	send(t, conn, eventSummarize, map[string]string{"text": "dua"})
	msg := receive(t, conn)
	require.Equal(t, eventError, msg.Event)
	var serr socketError
	require.NoError(t, json.Unmarshal(msg.Data, &serr))
	require.Equal(t, "stream_active", serr.Code)
	require.EqualValues(t, 1, opened.Load())
}

func TestStreamSocketOpenError(t *testing.T) {
	svc := &stubSummarizer{
		streamSummaryFn: func(ctx context.Context, req summarizer.Request) (<-chan summarizer.StreamEvent, error) {
			return nil, apperrors.RateLimited("upstream rate limit exceeded", 90*time.Second, nil)
		},
	}
	conn := dialSocket(t, svc)

	send(t, conn, eventSummarize, map[string]string{"text": "teks"})
	ev := decodeEvent(t, receive(t, conn))
	require.Equal(t, summarizer.EventError, ev.Kind)
	require.Equal(t, apperrors.CodeRateLimit, ev.Code)
	require.Equal(t, "upstream rate limit exceeded", ev.Error)
}

func TestStreamSocketDisconnectCancelsSession(t *testing.T) {
	cancelled := make(chan struct{})
	svc := &stubSummarizer{
		streamSummaryFn: func(ctx context.Context, req summarizer.Request) (<-chan summarizer.StreamEvent, error) {
			out := make(chan summarizer.StreamEvent)
			go func() {
				defer close(out)
				out <- summarizer.StreamEvent{Kind: summarizer.EventToken, Token: "a"}
				<-ctx.Done()
				close(cancelled)
				out <- summarizer.StreamEvent{Kind: summarizer.EventFinal, Final: "a", End: true}
			}()
			return out, nil
		},
	}
	conn := dialSocket(t, svc)

	send(t, conn, eventSummarize, map[string]string{"text": "teks"})
	require.Equal(t, "a", decodeEvent(t, receive(t, conn)).Token)
	require.NoError(t, conn.Close())

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("session was not cancelled after disconnect")
	}
}

func TestOriginAllowed(t *testing.T) {
	require.True(t, originAllowed("", []string{"https://a.example"}))
	require.True(t, originAllowed("https://b.example", nil))
	require.True(t, originAllowed("https://A.example", []string{"https://a.example"}))
	require.False(t, originAllowed("https://evil.example", []string{"https://a.example"}))
	require.True(t, originAllowed("https://evil.example", []string{"*"}))
}
