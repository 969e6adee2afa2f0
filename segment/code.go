package segment

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// emitter accumulates chunks in input order, merging adjacent preserved spans.
type emitter struct {
	chunks []Chunk
	max    int
}

func (e *emitter) preserve(s string) {
	if s == "" {
		return
	}
	if n := len(e.chunks); n > 0 && e.chunks[n-1].Kind == Preserved {
		e.chunks[n-1].Content += s
		return
	}
	e.chunks = append(e.chunks, Chunk{Index: len(e.chunks), Kind: Preserved, Content: s})
}

func (e *emitter) text(s string) {
	for _, part := range SplitPlain(s, e.max) {
		e.chunks = append(e.chunks, Chunk{Index: len(e.chunks), Kind: Text, Content: part})
	}
}

// comment emits a comment span: the opening marker and surrounding
// whitespace are preserved, only the body is translatable.
func (e *emitter) comment(open, body, close string) {
	lead := len(body) - len(strings.TrimLeftFunc(body, unicode.IsSpace))
	core := strings.TrimRightFunc(body[lead:], unicode.IsSpace)
	e.preserve(open + body[:lead])
	if core != "" {
		e.text(core)
	}
	e.preserve(body[lead+len(core):] + close)
}

// scanner walks content once, recognizing the forms declared by a grammar.
type scanner struct {
	g      *Grammar
	blocks []Delimiters
}

func newScanner(g *Grammar) *scanner {
	blocks := append([]Delimiters(nil), g.BlockComments...)
	// Longest opener wins when openers share a prefix.
	sort.SliceStable(blocks, func(i, j int) bool {
		return len(blocks[i].Open) > len(blocks[j].Open)
	})
	return &scanner{g: g, blocks: blocks}
}

func (s *scanner) isDirective(span string) bool {
	for _, d := range s.g.Directives {
		if strings.HasPrefix(span, d) {
			return true
		}
	}
	return false
}

func (s *scanner) commentMayStart(content string, i int) bool {
	if !s.g.LineCommentAtWordStart || i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(content[:i])
	return unicode.IsSpace(r)
}

// maxCharEscape bounds an escape sequence in a character literal ('\u{10FFFF}').
const maxCharEscape = 10

// charEnd returns the length of a character literal starting at rest, or -1
// if the delimiter does not open one.
func charEnd(rest string, q Quote) int {
	j := len(q.Delim)
	if q.Escape != "" && strings.HasPrefix(rest[j:], q.Escape) {
		j += len(q.Escape)
		for n := 0; j < len(rest) && n <= maxCharEscape; n++ {
			r, size := utf8.DecodeRuneInString(rest[j:])
			if r == '\n' {
				return -1
			}
			// The escaped rune itself may be the delimiter.
			if n > 0 && strings.HasPrefix(rest[j:], q.Delim) {
				return j + len(q.Delim)
			}
			j += size
		}
		return -1
	}
	r, size := utf8.DecodeRuneInString(rest[j:])
	if size == 0 || r == '\n' {
		return -1
	}
	j += size
	if strings.HasPrefix(rest[j:], q.Delim) {
		return j + len(q.Delim)
	}
	return -1
}

// quoteEnd returns the length of the literal starting at rest, or -1 if it
// is never closed.
func quoteEnd(rest string, q Quote) int {
	if q.Char {
		return charEnd(rest, q)
	}
	j := len(q.Delim)
	for j < len(rest) {
		if q.Escape != "" && strings.HasPrefix(rest[j:], q.Escape) {
			j += len(q.Escape)
			if j < len(rest) {
				_, size := utf8.DecodeRuneInString(rest[j:])
				j += size
			}
			continue
		}
		if strings.HasPrefix(rest[j:], q.Delim) {
			return j + len(q.Delim)
		}
		_, size := utf8.DecodeRuneInString(rest[j:])
		j += size
	}
	return -1
}

// SegmentCode splits source code into preserved code/literal spans and
// translatable comment bodies. Comment bodies longer than maxChunkSize are
// further split with SplitPlain.
func SegmentCode(content string, maxChunkSize int, g *Grammar) []Chunk {
	if content == "" {
		return nil
	}
	if g == nil {
		g = DefaultGrammar()
	}
	e := &emitter{max: maxChunkSize}
	s := newScanner(g)

	codeStart, i := 0, 0
	flushCode := func() {
		e.preserve(content[codeStart:i])
	}

scan:
	for i < len(content) {
		rest := content[i:]

		for _, b := range s.blocks {
			if !strings.HasPrefix(rest, b.Open) {
				continue
			}
			end := strings.Index(rest[len(b.Open):], b.Close)
			if end < 0 {
				// Unterminated: the opener is plain code.
				i += len(b.Open)
				continue scan
			}
			span := rest[:len(b.Open)+end+len(b.Close)]
			if !s.isDirective(span) {
				flushCode()
				e.comment(b.Open, rest[len(b.Open):len(b.Open)+end], b.Close)
				codeStart = i + len(span)
			}
			i += len(span)
			continue scan
		}

		for _, marker := range g.LineComments {
			if !strings.HasPrefix(rest, marker) || !s.commentMayStart(content, i) {
				continue
			}
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				end = len(rest)
			}
			span := rest[:end]
			if !s.isDirective(span) {
				flushCode()
				e.comment(marker, span[len(marker):], "")
				codeStart = i + end
			}
			i += end
			continue scan
		}

		for _, q := range g.Quotes {
			if !strings.HasPrefix(rest, q.Delim) {
				continue
			}
			// Literals stay in the code region; they are never translated.
			if n := quoteEnd(rest, q); n > 0 {
				i += n
			} else {
				i += len(q.Delim)
			}
			continue scan
		}

		_, size := utf8.DecodeRuneInString(rest)
		i += size
	}
	flushCode()
	return e.chunks
}
