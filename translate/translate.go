// Package translate is the adapter between the chunk dispatcher and the
// external translation providers: Google AI (Gemini), Groq, OpenAI,
// Anthropic, OpenCode (multi-format), Custom OpenAI, Ollama and the Google
// Cloud Translation v2 API.
//
// A Client sends exactly one request per call; retries belong to the caller.
package translate

import (
	"context"
	"strings"
	"unicode"
)

// Backend is a translation provider. Implementations return a
// *ProviderError so callers can tell transient failures from permanent ones.
type Backend interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// BackendFunc adapts a plain function to the Backend interface.
type BackendFunc func(ctx context.Context, text, source, target string) (string, error)

// Translate calls f.
func (f BackendFunc) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

// Client wraps a Backend with the whitespace contract shared by all
// providers.
type Client struct {
	backend Backend
}

// NewClient returns a Client that sends requests to b.
func NewClient(b Backend) *Client {
	return &Client{backend: b}
}

// TranslateOne translates a single piece of text from source to target.
//
// Empty and whitespace-only text is returned unchanged without calling the
// backend. Surrounding whitespace is cut off before the request and put back
// on the result, so line breaks and indentation survive byte-exact.
func (c *Client) TranslateOne(ctx context.Context, text, source, target string) (string, error) {
	core := strings.TrimFunc(text, unicode.IsSpace)
	if core == "" {
		return text, nil
	}
	lead := text[:len(text)-len(strings.TrimLeftFunc(text, unicode.IsSpace))]
	trail := text[len(lead)+len(core):]

	out, err := c.backend.Translate(ctx, core, source, target)
	if err != nil {
		return "", err
	}
	return lead + strings.TrimFunc(out, unicode.IsSpace) + trail, nil
}

// Bind fixes the language pair and returns a function with the shape the
// dispatcher expects.
func (c *Client) Bind(source, target string) func(ctx context.Context, text string) (string, error) {
	return func(ctx context.Context, text string) (string, error) {
		return c.TranslateOne(ctx, text, source, target)
	}
}
