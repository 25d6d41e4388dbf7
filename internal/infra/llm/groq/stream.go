package groq

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FragmentKind tags where a fragment's text came from.
type FragmentKind int

const (
	// FragmentEmpty carries no text (role-only or finish frames).
	FragmentEmpty FragmentKind = iota
	// FragmentDelta holds incremental text from choice.delta.content.
	FragmentDelta
	// FragmentMessage holds text from choice.message.content, sent by some
	// compatible vendors instead of a delta.
	FragmentMessage
)

// Fragment is one decoded piece of a streaming completion.
type Fragment struct {
	Kind         FragmentKind
	Text         string
	FinishReason string
}

// Stream defines the interface for streaming chat completions.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}

type streamChunk struct {
	Choices []struct {
		Delta        *Message `json:"delta"`
		Message      *Message `json:"message"`
		FinishReason string   `json:"finish_reason"`
	} `json:"choices"`
}

// decodeFragment turns a raw frame into a Fragment, preferring delta content.
func decodeFragment(chunk streamChunk) Fragment {
	if len(chunk.Choices) == 0 {
		return Fragment{Kind: FragmentEmpty}
	}
	choice := chunk.Choices[0]
	frag := Fragment{Kind: FragmentEmpty, FinishReason: choice.FinishReason}
	switch {
	case choice.Delta != nil && choice.Delta.Content != "":
		frag.Kind = FragmentDelta
		frag.Text = choice.Delta.Content
	case choice.Message != nil && choice.Message.Content != "":
		frag.Kind = FragmentMessage
		frag.Text = choice.Message.Content
	}
	return frag
}

// EventStream reads `data:` frames from a server-sent event response.
type EventStream struct {
	scanner *bufio.Scanner
	closer  io.Closer
	closed  bool
}

func newEventStream(body io.ReadCloser) *EventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 1024), 1<<20)
	return &EventStream{scanner: scanner, closer: body}
}

// Recv reads the next streaming fragment. It returns io.EOF once the vendor sends [DONE]
// or closes the body.
func (s *EventStream) Recv() (Fragment, error) {
	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				s.Close()
				return Fragment{}, err
			}
			s.Close()
			return Fragment{}, io.EOF
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.Close()
			return Fragment{}, io.EOF
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			s.Close()
			return Fragment{}, fmt.Errorf("decode stream chunk: %w", err)
		}
		return decodeFragment(chunk), nil
	}
}

// Close closes the underlying stream. It is safe to call more than once.
func (s *EventStream) Close() error {
	if s.closed || s.closer == nil {
		return nil
	}
	s.closed = true
	return s.closer.Close()
}
