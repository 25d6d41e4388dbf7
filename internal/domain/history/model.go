package history

import "time"

// Entry is a saved summary. Entries are immutable once stored.
type Entry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId,omitempty"`
	Text      string         `json:"text"`
	Summary   string         `json:"summary,omitempty"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"createdAt"`
}

// SaveRequest is the payload accepted by Save.
type SaveRequest struct {
	Text    string         `json:"text"`
	Summary string         `json:"summary,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}
