package summarizer

import (
	"time"

	"github.com/neurabot/neurabot-api/pkg/metrics"
)

// Mode selects the prompt template used for a transcript.
type Mode string

const (
	ModePatologi    Mode = "patologi"
	ModeDokterHewan Mode = "dokter_hewan"
)

// AllowedModes lists every mode with a prompt template.
var AllowedModes = []Mode{ModePatologi, ModeDokterHewan}

// Config configures prompt selection and the upstream retry policy.
type Config struct {
	DefaultMode   Mode
	Model         string
	Temperature   float32
	MaxRetries    int
	BaseBackoff   time.Duration
	MinRetryAfter time.Duration
}

// Request represents the incoming summarization payload.
type Request struct {
	Text string `json:"text"`
	Mode string `json:"mode,omitempty"`
}

// Response is returned by the sync endpoint.
type Response struct {
	Summary    string              `json:"summary"`
	Mode       Mode                `json:"mode"`
	DurationMs int64               `json:"durationMs,omitempty"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// ModeInfo describes the modes a client may request.
type ModeInfo struct {
	Default Mode   `json:"default"`
	Allowed []Mode `json:"allowed"`
}

// UpstreamStatus reports the outcome of a connectivity check against the vendor.
type UpstreamStatus struct {
	Status    string `json:"status"`
	Model     string `json:"model"`
	Response  string `json:"response"`
	LatencyMs int64  `json:"latencyMs"`
}

// EventKind tags a StreamEvent.
type EventKind string

const (
	EventToken EventKind = "token"
	EventFinal EventKind = "final"
	EventError EventKind = "error"
)

// StreamEvent is relayed to streaming clients. A session produces any number of
// token events followed by exactly one final or error event.
type StreamEvent struct {
	Kind  EventKind `json:"type"`
	Token string    `json:"token,omitempty"`
	Final string    `json:"final,omitempty"`
	End   bool      `json:"end,omitempty"`
	Error string    `json:"error,omitempty"`
	Code  string    `json:"code,omitempty"`
}

// Terminal reports whether the event closes the session.
func (e StreamEvent) Terminal() bool {
	return e.Kind == EventFinal || e.Kind == EventError
}
