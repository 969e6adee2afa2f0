// Package segment splits file content into ordered, indexed chunks that can be
// translated independently and joined back in their original order.
//
// Two modes are supported:
//
//   - Plain: prose is cut into chunks of at most N runes, preferring to end a
//     chunk on sentence punctuation (. ! ?).
//
//   - Code: a grammar-driven scanner separates comments (translatable) from
//     code and string literals (preserved verbatim).
//
// Segmentation is lossless: concatenating chunk contents in index order always
// reproduces the input exactly.
package segment

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind tells whether a chunk is sent to the translator.
type Kind int

const (
	// Text chunks are translated.
	Text Kind = iota
	// Preserved chunks pass through unchanged (code, literals, delimiters).
	Preserved
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Preserved:
		return "preserved"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Mode selects the segmentation strategy.
type Mode string

const (
	ModePlain Mode = "plain"
	ModeCode  Mode = "code"
)

// ParseMode accepts "plain"/"text" and "code"/"script".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "text", "plain text":
		return ModePlain, nil
	case "code", "script", "source":
		return ModeCode, nil
	}
	return "", fmt.Errorf("unknown mode %q (valid: plain, code)", s)
}

// DefaultMaxChunkSize is the chunk size limit in runes.
const DefaultMaxChunkSize = 500

// Chunk is a contiguous, indexed span of the input.
type Chunk struct {
	Index   int
	Kind    Kind
	Content string
}

// ErrInvalidChunkSize is returned when maxChunkSize is not positive.
var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// SegmentationError reports input that cannot be decoded as UTF-8 text.
type SegmentationError struct {
	// Offset is the byte offset of the first invalid sequence.
	Offset int
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("input is not valid UTF-8 (invalid byte sequence at offset %d)", e.Offset)
}

// Validate checks that content is valid UTF-8.
func Validate(content string) error {
	if utf8.ValidString(content) {
		return nil
	}
	for i, r := range content {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(content[i:]); size <= 1 {
				return &SegmentationError{Offset: i}
			}
		}
	}
	return &SegmentationError{Offset: len(content)}
}

// Segment splits content into chunks. For ModeCode, g selects the comment and
// literal syntax; nil means the default grammar.
func Segment(content string, maxChunkSize int, mode Mode, g *Grammar) ([]Chunk, error) {
	if maxChunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if err := Validate(content); err != nil {
		return nil, err
	}
	switch mode {
	case ModePlain, "":
		parts := SplitPlain(content, maxChunkSize)
		chunks := make([]Chunk, len(parts))
		for i, p := range parts {
			chunks[i] = Chunk{Index: i, Kind: Text, Content: p}
		}
		return chunks, nil
	case ModeCode:
		if g == nil {
			g = DefaultGrammar()
		}
		return SegmentCode(content, maxChunkSize, g), nil
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

// isTerminal reports sentence-terminal punctuation.
func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// SplitPlain cuts text into pieces of at most maxChunkSize runes. A piece ends
// after the last sentence punctuation seen in the window when there is one;
// otherwise it is cut hard at exactly maxChunkSize runes.
func SplitPlain(text string, maxChunkSize int) []string {
	if text == "" {
		return nil
	}
	if maxChunkSize <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	if len(runes) <= maxChunkSize {
		return []string{text}
	}

	var parts []string
	lastCut, lastPunct := 0, 0
	for i, r := range runes {
		if i-lastCut >= maxChunkSize {
			cut := i
			if lastPunct > lastCut {
				cut = lastPunct
			}
			parts = append(parts, string(runes[lastCut:cut]))
			lastCut = cut
		}
		if isTerminal(r) {
			lastPunct = i + 1
		}
	}
	if lastCut < len(runes) {
		parts = append(parts, string(runes[lastCut:]))
	}
	return parts
}

// Concat joins chunk contents in index order.
func Concat(chunks []Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Content)
	}
	return sb.String()
}

// Count returns the number of Text and Preserved chunks.
func Count(chunks []Chunk) (text, preserved int) {
	for _, c := range chunks {
		if c.Kind == Text {
			text++
		} else {
			preserved++
		}
	}
	return
}
