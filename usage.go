package genaiconv

import (
	"context"
	"unicode/utf8"

	"charm.land/fantasy"
	"google.golang.org/genai"
)

// Usage is token usage reported for a generation. Nil fields are unknown.
type Usage struct {
	InputTokens  *int64 `json:"inputTokens,omitempty"`
	OutputTokens *int64 `json:"outputTokens,omitempty"`
	TotalTokens  *int64 `json:"totalTokens,omitempty"`
}

// UsageFunc returns the usage of a finished stream. It is called once, after
// the last upstream chunk, and may fail.
type UsageFunc func(ctx context.Context) (*Usage, error)

// UsageFromFantasy converts fantasy usage counters.
func UsageFromFantasy(u fantasy.Usage) *Usage {
	in, out, total := u.InputTokens, u.OutputTokens, u.TotalTokens
	return &Usage{InputTokens: &in, OutputTokens: &out, TotalTokens: &total}
}

// usageMetadata converts u, defaulting each unknown count to 0. A nil u stays nil.
func usageMetadata(u *Usage) *genai.GenerateContentResponseUsageMetadata {
	if u == nil {
		return nil
	}
	return &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     int32(deref(u.InputTokens)),
		CandidatesTokenCount: int32(deref(u.OutputTokens)),
		TotalTokenCount:      int32(deref(u.TotalTokens)),
	}
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// TokenCounter estimates the token count of a string.
type TokenCounter interface {
	Count(text string) (int, error)
}

// CharFallbackCounter estimates tokens as runes/CharsPerToken, rounded up.
// The zero value uses 4 chars per token.
type CharFallbackCounter struct {
	CharsPerToken int
}

// Count implements TokenCounter.
func (c *CharFallbackCounter) Count(text string) (int, error) {
	cpt := c.CharsPerToken
	if cpt <= 0 {
		cpt = 4
	}
	n := utf8.RuneCountInString(text)
	return (n + cpt - 1) / cpt, nil
}

// estimateUsage returns a usage estimate for output text. Counts are never
// below 1 so callers always see a positive total.
func (c *Converter) estimateUsage(output string) *genai.GenerateContentResponseUsageMetadata {
	n, err := c.counter.Count(output)
	if err != nil || n < 1 {
		n = max(1, (utf8.RuneCountInString(output)+3)/4)
	}
	return &genai.GenerateContentResponseUsageMetadata{
		CandidatesTokenCount: int32(n),
		TotalTokenCount:      int32(n),
	}
}
