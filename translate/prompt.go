package translate

import (
	"regexp"
	"strings"

	"github.com/minios-linux/textrans/langmeta"
)

// ---------------------------------------------------------------------------
// System prompts
// ---------------------------------------------------------------------------

// DefaultSystemPrompt is used for plain prose.
const DefaultSystemPrompt = `You are a professional translator. Translate the text you are given from {{sourceLang}} to {{targetLang}}.

RULES:
1. Return ONLY the translated text. No explanations, no quotes, no Markdown.
2. Preserve line breaks, punctuation style, numbers, URLs and e-mail addresses.
3. Keep placeholders unchanged: %s, %d, %v, {0}, {{name}}, $VAR, ${VAR}.
4. The text may be a fragment cut from a longer document. Translate it as is; do not complete or summarize it.
5. If the text is already in {{targetLang}}, return it unchanged.`

// CodeCommentPrompt is used when the text is a comment taken from source code.
const CodeCommentPrompt = `You are a professional translator of source code comments and documentation strings. Translate the comment text you are given from {{sourceLang}} to {{targetLang}}.

RULES:
1. Return ONLY the translated comment text. Do not add comment markers (#, //, /* */) and do not wrap the answer in a code block.
2. Keep identifiers, function and variable names, file paths, command lines and code fragments in backticks unchanged.
3. Keep technical keywords such as TODO, FIXME, NOTE, XXX and HACK unchanged.
4. Preserve line breaks and the indentation that follows each line break.
5. If the comment contains only code or is already in {{targetLang}}, return it unchanged.`

// autoSourceName is substituted for {{sourceLang}} when the source language
// is detected by the model.
const autoSourceName = "the source language (detect it automatically)"

// PromptOptions selects and customizes the system prompt of LLM backends.
type PromptOptions struct {
	// SystemPrompt overrides the built-in prompt. It may reference
	// {{sourceLang}} and {{targetLang}}.
	SystemPrompt string
	// Code selects the code-comment prompt.
	Code bool
}

// Resolve returns the system prompt with language placeholders replaced.
func (p PromptOptions) Resolve(source, target string) string {
	prompt := p.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
		if p.Code {
			prompt = CodeCommentPrompt
		}
	}
	return strings.NewReplacer(
		"{{sourceLang}}", sourceName(source),
		"{{targetLang}}", langmeta.EnglishName(target),
	).Replace(prompt)
}

func sourceName(code string) string {
	if code == "" || strings.EqualFold(code, langmeta.Auto) {
		return autoSourceName
	}
	return langmeta.EnglishName(code)
}

// ---------------------------------------------------------------------------
// Reply cleanup
// ---------------------------------------------------------------------------

var markdownCodeBlock = regexp.MustCompile("(?s)^```[A-Za-z0-9_+-]*[ \t]*\r?\n(.*?)\r?\n?```$")

// unwrapReply strips a Markdown fence that some models put around the whole
// answer.
func unwrapReply(s string) string {
	s = strings.TrimSpace(s)
	if m := markdownCodeBlock.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
