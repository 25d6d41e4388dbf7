package metrics

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// TokenCounter estimates token counts when the vendor omits usage data.
// The BPE ranks are loaded lazily; if loading fails the counter falls back
// to a characters/4 heuristic.
type TokenCounter struct {
	once sync.Once
	load func() (encoder, error)
	enc  encoder
}

// NewTokenCounter builds a counter for the given tiktoken encoding name.
func NewTokenCounter(encoding string) *TokenCounter {
	if encoding == "" {
		encoding = defaultEncoding
	}
	return &TokenCounter{
		load: func() (encoder, error) {
			enc, err := tiktoken.GetEncoding(encoding)
			if err != nil {
				return nil, err
			}
			return enc, nil
		},
	}
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c == nil {
		return heuristicCount(text)
	}
	c.once.Do(func() {
		if c.load == nil {
			return
		}
		if enc, err := c.load(); err == nil {
			c.enc = enc
		}
	})
	if c.enc == nil {
		return heuristicCount(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate builds a TokenUsage from prompt and completion text.
func (c *TokenCounter) Estimate(prompt, completion string) TokenUsage {
	p := c.Count(prompt)
	out := c.Count(completion)
	return TokenUsage{PromptTokens: p, CompletionTokens: out, TotalTokens: p + out, Estimated: true}
}

func heuristicCount(text string) int {
	n := utf8.RuneCountInString(text)
	count := n / 4
	if n%4 != 0 {
		count++
	}
	return count
}
