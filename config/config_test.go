package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/minios-linux/textrans/segment"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestFindMissing(t *testing.T) {
	f, err := Find(t.TempDir())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if f != nil {
		t.Fatalf("Find on empty dir = %+v, want nil", f)
	}
}

func TestLoadFull(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `provider: groq
model: llama-3.3-70b-versatile
from: en
to: de
mode: code
grammar: python
chunk_size: 300
concurrency: 8
max_retries: 0
retry_delay: 250ms
timeout: 45s
max_failures: 2
lang_suffix: true
memory: cache/memory.yaml
prompt: "Translate {{sourceLang}} to {{targetLang}}."
`)

	f, err := Find(dir)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if f.Provider != "groq" || f.Model != "llama-3.3-70b-versatile" || f.From != "en" || f.To != "de" {
		t.Errorf("provider fields = %+v", f)
	}
	if f.Mode != "code" || f.Grammar != "python" || f.ChunkSize != 300 || f.Concurrency != 8 {
		t.Errorf("segment fields = %+v", f)
	}
	if f.MaxRetries == nil || *f.MaxRetries != 0 {
		t.Errorf("MaxRetries = %v, want explicit 0", f.MaxRetries)
	}
	if f.RetryDelay != 250*time.Millisecond || f.Timeout != 45*time.Second || f.MaxFailures != 2 {
		t.Errorf("timing fields = %v %v %d", f.RetryDelay, f.Timeout, f.MaxFailures)
	}
	if !f.LangSuffix {
		t.Error("LangSuffix not set")
	}
	if want := filepath.Join(dir, "cache", "memory.yaml"); f.Memory != want {
		t.Errorf("Memory = %q, want %q", f.Memory, want)
	}
	if f.Path() != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q", f.Path())
	}
}

func TestLoadMaxRetriesUnset(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "to: fr\n")
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.MaxRetries != nil {
		t.Errorf("MaxRetries = %d, want unset", *f.MaxRetries)
	}
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "to: [fr",
		"bad mode":       "mode: binary\n",
		"negative chunk": "chunk_size: -1\n",
		"bad duration":   "timeout: soon\n",
		"bad grammar":    "grammars:\n  - name: empty\n",
		"duplicate grammar": `grammars:
  - name: x
    line_comments: ["%"]
  - name: x
    line_comments: ["%"]
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), content)
			if _, err := Load(path); err == nil {
				t.Fatalf("Load(%q) should fail", content)
			} else if !strings.Contains(err.Error(), FileName) {
				t.Errorf("error %q does not name the file", err)
			}
		})
	}
}

func TestRegisterGrammars(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `mode: auto
grammars:
  - name: erlang-test
    extensions: [".erl-test"]
    line_comments: ["%"]
    quotes:
      - delim: '"'
        escape: '\'
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := f.RegisterGrammars(); err != nil {
		t.Fatalf("RegisterGrammars: %v", err)
	}

	g, ok := segment.GrammarForFile("mod.erl-test")
	if !ok || g.Name != "erlang-test" {
		t.Fatalf("GrammarForFile = %v, %v", g, ok)
	}
	if len(g.Quotes) != 1 || g.Quotes[0].Escape != `\` {
		t.Fatalf("quotes = %+v", g.Quotes)
	}

	chunks := segment.SegmentCode("X = \"%s\". % greet\n", 500, g)
	var texts []string
	for _, c := range chunks {
		if c.Kind == segment.Text {
			texts = append(texts, c.Content)
		}
	}
	if len(texts) != 1 || texts[0] != "greet" {
		t.Fatalf("translatable spans = %q", texts)
	}
}
