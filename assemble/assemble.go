// Package assemble joins dispatcher results back into a document.
package assemble

import (
	"strings"

	"github.com/minios-linux/textrans/dispatch"
	"github.com/minios-linux/textrans/segment"
)

// Join concatenates result texts in slot order. Plain mode puts a single
// space between chunks; code mode joins them directly so preserved code is
// reproduced byte for byte.
func Join(results []dispatch.Result, mode segment.Mode) string {
	sep := ""
	if mode != segment.ModeCode {
		sep = " "
	}
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Summary counts result outcomes.
type Summary struct {
	Translated int
	Preserved  int
	Failed     int
	Cancelled  int
	// Attempts is the total number of translator calls.
	Attempts int
}

// Total returns the number of slots counted.
func (s Summary) Total() int {
	return s.Translated + s.Preserved + s.Failed + s.Cancelled
}

// Stats summarizes results for reporting.
func Stats(results []dispatch.Result) Summary {
	var s Summary
	for _, r := range results {
		s.Attempts += r.Attempts
		switch {
		case r.Err == dispatch.TranslationFailed:
			s.Failed++
		case r.Err == dispatch.Cancelled:
			s.Cancelled++
		case r.Kind == segment.Preserved:
			s.Preserved++
		default:
			s.Translated++
		}
	}
	return s
}

// Failed returns the slots that kept their original text because
// translation failed.
func Failed(results []dispatch.Result) []dispatch.Result {
	var out []dispatch.Result
	for _, r := range results {
		if r.Err == dispatch.TranslationFailed {
			out = append(out, r)
		}
	}
	return out
}
