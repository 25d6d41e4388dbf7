package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/neurabot/neurabot-api/internal/domain/summarizer"
	"github.com/neurabot/neurabot-api/internal/infra/config"
	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

// Socket event names.
const (
	eventSummarize     = "summarize_stream"
	eventStop          = "stop_stream"
	eventSummaryStream = "summary_stream"
	eventError         = "error"
)

// socketMessage is the envelope used in both directions.
type socketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type socketError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StreamSocket serves summaries over a WebSocket. Each connection runs at most
// one summarization session at a time.
type StreamSocket struct {
	svc      summarizer.Service
	cfg      config.StreamConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamSocket constructs the WebSocket handler.
func NewStreamSocket(cfg *config.Config, svc summarizer.Service, logger *slog.Logger) *StreamSocket {
	streamCfg := cfg.Stream
	if streamCfg.WriteTimeout <= 0 {
		streamCfg.WriteTimeout = 10 * time.Second
	}
	allowed := cfg.HTTP.AllowedOrigins
	return &StreamSocket{
		svc: svc,
		cfg: streamCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r.Header.Get("Origin"), allowed)
			},
		},
		logger: logger.With("component", "http.stream_socket"),
	}
}

// Serve upgrades the request and runs the connection until the client leaves.
func (s *StreamSocket) Serve(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	sc := &socketConn{
		conn:   conn,
		svc:    s.svc,
		cfg:    s.cfg,
		logger: s.logger,
	}
	sc.run(c.Request.Context())
}

type streamSession struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type socketConn struct {
	conn   *websocket.Conn
	svc    summarizer.Service
	cfg    config.StreamConfig
	logger *slog.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	active *streamSession
}

func (sc *socketConn) run(parent context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	defer func() {
		cancel()
		sc.waitSession()
		sc.conn.Close()
	}()

	if sc.cfg.MaxMessageBytes > 0 {
		sc.conn.SetReadLimit(sc.cfg.MaxMessageBytes)
	}
	if sc.cfg.PingInterval > 0 {
		sc.extendReadDeadline()
		sc.conn.SetPongHandler(func(string) error {
			sc.extendReadDeadline()
			return nil
		})
		go sc.ping(ctx)
	} else {
		// Clear the deadline inherited from the server's ReadTimeout.
		_ = sc.conn.SetReadDeadline(time.Time{})
	}

	for {
		var msg socketMessage
		if err := sc.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sc.logger.Warn("websocket read failed", "error", err)
			}
			sc.stopSession()
			return
		}
		switch msg.Event {
		case eventSummarize:
			sc.startSession(ctx, msg.Data)
		case eventStop:
			stopped := sc.stopSession()
			sc.write(outboundMessage{Event: eventStop, Data: gin.H{"status": "ok", "stopped": stopped}})
		default:
			sc.write(outboundMessage{Event: eventError, Data: socketError{Code: apperrors.CodeValidation, Message: "unknown event " + msg.Event}})
		}
	}
}

func (sc *socketConn) startSession(parent context.Context, data json.RawMessage) {
	var req summarizer.Request
	if err := json.Unmarshal(data, &req); err != nil {
		sc.writeEvent(summarizer.StreamEvent{Kind: summarizer.EventError, Error: "invalid payload", Code: apperrors.CodeValidation})
		return
	}

	sc.mu.Lock()
	if sc.active != nil {
		sc.mu.Unlock()
		sc.write(outboundMessage{Event: eventError, Data: socketError{Code: "stream_active", Message: "a summary is already streaming on this connection"}})
		return
	}
	ctx, cancel := context.WithCancel(parent)
	session := &streamSession{cancel: cancel, done: make(chan struct{})}
	sc.active = session
	sc.mu.Unlock()

	go sc.serveSession(ctx, session, req)
}

// serveSession opens the upstream stream off the reader goroutine so stop and
// disconnect are handled while the vendor is still answering.
func (sc *socketConn) serveSession(ctx context.Context, session *streamSession, req summarizer.Request) {
	events, err := sc.svc.StreamSummary(ctx, req)
	if err != nil {
		sc.finishSession(session)
		if apperrors.IsCode(err, apperrors.CodeCancelled) {
			sc.writeEvent(summarizer.StreamEvent{Kind: summarizer.EventFinal, End: true})
			return
		}
		sc.writeEvent(summarizer.StreamEvent{Kind: summarizer.EventError, Error: eventMessage(err), Code: errorCode(err)})
		return
	}
	sc.pump(session, events)
}

// pump writes every event and keeps draining after a failed write so the
// relay goroutine can always finish. The slot is released before the terminal
// event is written so a client may start the next session as soon as it
// sees it.
func (sc *socketConn) pump(session *streamSession, events <-chan summarizer.StreamEvent) {
	defer sc.finishSession(session)
	broken := false
	for event := range events {
		if event.Terminal() {
			sc.release(session)
		}
		if broken {
			continue
		}
		if err := sc.writeEvent(event); err != nil {
			broken = true
			session.cancel()
		}
	}
}

func (sc *socketConn) release(session *streamSession) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.active == session {
		sc.active = nil
	}
}

func (sc *socketConn) finishSession(session *streamSession) {
	session.cancel()
	sc.release(session)
	close(session.done)
}

// stopSession cancels the active session, if any, and reports whether one existed.
func (sc *socketConn) stopSession() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.active == nil {
		return false
	}
	sc.active.cancel()
	return true
}

func (sc *socketConn) waitSession() {
	sc.mu.Lock()
	session := sc.active
	sc.mu.Unlock()
	if session != nil {
		<-session.done
	}
}

func (sc *socketConn) writeEvent(event summarizer.StreamEvent) error {
	return sc.write(outboundMessage{Event: eventSummaryStream, Data: event})
}

func (sc *socketConn) write(msg outboundMessage) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	_ = sc.conn.SetWriteDeadline(time.Now().Add(sc.cfg.WriteTimeout))
	if err := sc.conn.WriteJSON(msg); err != nil {
		sc.logger.Debug("websocket write failed", "event", msg.Event, "error", err)
		return err
	}
	return nil
}

func (sc *socketConn) ping(ctx context.Context) {
	ticker := time.NewTicker(sc.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(sc.cfg.WriteTimeout)
			if err := sc.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (sc *socketConn) extendReadDeadline() {
	_ = sc.conn.SetReadDeadline(time.Now().Add(2 * sc.cfg.PingInterval))
}

func errorCode(err error) string {
	return fromDomainError(err).Code
}

func eventMessage(err error) string {
	return fromDomainError(err).Message
}
