package genaiconv

import "log/slog"

// Converter converts between genai contents and canonical messages, and
// between canonical generation results and genai responses.
//
// A Converter holds only configuration; every call builds its own state, so a
// single Converter may be shared by concurrent callers.
type Converter struct {
	logger  *slog.Logger
	newID   func() string
	counter TokenCounter
}

// Option configures a Converter (functional options pattern).
type Option func(*Converter)

// WithLogger sets the logger for debug records about dropped or defaulted
// content. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIDGenerator sets the function used to synthesize canonical tool call IDs
// when neither side of a pair has one. Defaults to NewToolCallID.
func WithIDGenerator(fn func() string) Option {
	return func(c *Converter) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithTokenCounter sets the counter used to estimate stream usage when the
// usage getter fails. Defaults to CharFallbackCounter.
func WithTokenCounter(tc TokenCounter) Option {
	return func(c *Converter) {
		if tc != nil {
			c.counter = tc
		}
	}
}

// New returns a Converter configured by opts.
func New(opts ...Option) *Converter {
	c := &Converter{
		logger:  slog.Default(),
		newID:   NewToolCallID,
		counter: &CharFallbackCounter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
