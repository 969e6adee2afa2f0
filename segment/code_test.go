package segment

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func texts(chunks []Chunk) []string {
	var out []string
	for _, c := range chunks {
		if c.Kind == Text {
			out = append(out, c.Content)
		}
	}
	return out
}

// unregister must be called with registryMu held.
func unregister(name string) {
	delete(registry, name)
	delete(registered, name)
}

func checkChunks(t *testing.T, in string, chunks []Chunk) {
	t.Helper()
	if got := Concat(chunks); got != in {
		t.Fatalf("segmentation is not lossless:\n got %q\nwant %q", got, in)
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
		if c.Content == "" {
			t.Fatalf("chunk %d is empty", i)
		}
		if i > 0 && c.Kind == Preserved && chunks[i-1].Kind == Preserved {
			t.Fatalf("adjacent preserved chunks %d and %d were not merged", i-1, i)
		}
	}
}

func TestSegmentCodeLineComment(t *testing.T) {
	in := "x = 1  # hello world\n"
	got := SegmentCode(in, 500, Python)
	want := []Chunk{
		{Index: 0, Kind: Preserved, Content: "x = 1  # "},
		{Index: 1, Kind: Text, Content: "hello world"},
		{Index: 2, Kind: Preserved, Content: "\n"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SegmentCode = %+v\nwant %+v", got, want)
	}
}

func TestSegmentCodePython(t *testing.T) {
	in := "#!/usr/bin/env python3\n" +
		"def greet(name):\n" +
		"    \"\"\"Return a greeting.\"\"\"\n" +
		"    msg = \"Hello # not a comment\"  # build message\n" +
		"    return msg + 'it\\'s'\n"

	chunks := SegmentCode(in, 500, Python)
	checkChunks(t, in, chunks)

	got := texts(chunks)
	want := []string{"Return a greeting.", "build message"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("translatable spans = %q, want %q", got, want)
	}
	if !strings.HasPrefix(chunks[0].Content, "#!/usr/bin/env python3\n") || chunks[0].Kind != Preserved {
		t.Fatalf("shebang should be preserved, got %+v", chunks[0])
	}
}

func TestSegmentCodeDocstringMultiline(t *testing.T) {
	in := "'''\n    Module docs.\n    Second line.\n'''\nx = 1\n"
	chunks := SegmentCode(in, 500, Python)
	checkChunks(t, in, chunks)

	want := []Chunk{
		{Index: 0, Kind: Preserved, Content: "'''\n    "},
		{Index: 1, Kind: Text, Content: "Module docs.\n    Second line."},
		{Index: 2, Kind: Preserved, Content: "\n'''\nx = 1\n"},
	}
	if !reflect.DeepEqual(chunks, want) {
		t.Fatalf("SegmentCode = %+v\nwant %+v", chunks, want)
	}
}

func TestSegmentCodeEscapedQuote(t *testing.T) {
	in := `s = "say \"# hi\""  # note` + "\n"
	chunks := SegmentCode(in, 500, Python)
	checkChunks(t, in, chunks)
	if got := texts(chunks); !reflect.DeepEqual(got, []string{"note"}) {
		t.Fatalf("translatable spans = %q, want [note]", got)
	}
}

func TestSegmentCodeStringsOnly(t *testing.T) {
	in := `a = "hello"` + "\n" + `b = 'world'` + "\n"
	chunks := SegmentCode(in, 500, Python)
	checkChunks(t, in, chunks)
	if len(chunks) != 1 || chunks[0].Kind != Preserved {
		t.Fatalf("string literals should be one preserved chunk, got %+v", chunks)
	}
}

func TestSegmentCodeUnterminatedString(t *testing.T) {
	in := "s = \"abc  # real comment\n"
	chunks := SegmentCode(in, 500, Python)
	checkChunks(t, in, chunks)
	if got := texts(chunks); !reflect.DeepEqual(got, []string{"real comment"}) {
		t.Fatalf("translatable spans = %q, want [real comment]", got)
	}
}

func TestSegmentCodeUnterminatedBlock(t *testing.T) {
	in := "/* never closed\nint x; // tail\n"
	chunks := SegmentCode(in, 500, CLike)
	checkChunks(t, in, chunks)
	if got := texts(chunks); !reflect.DeepEqual(got, []string{"tail"}) {
		t.Fatalf("translatable spans = %q, want [tail]", got)
	}
}

func TestSegmentCodeCLike(t *testing.T) {
	in := "int x = 1; /* block\n   comment */ // line\r\n" +
		"char *s = \"/* not a comment */\";\n" +
		"char c = '\\'';\n" +
		"const raw = `// raw`\n"
	chunks := SegmentCode(in, 500, CLike)
	checkChunks(t, in, chunks)

	want := []string{"block\n   comment", "line"}
	if got := texts(chunks); !reflect.DeepEqual(got, want) {
		t.Fatalf("translatable spans = %q, want %q", got, want)
	}
}

func TestSegmentCodeDirectives(t *testing.T) {
	in := "//go:build linux\n\n// Package foo does things.\npackage foo\n"
	chunks := SegmentCode(in, 500, CLike)
	checkChunks(t, in, chunks)
	if got := texts(chunks); !reflect.DeepEqual(got, []string{"Package foo does things."}) {
		t.Fatalf("translatable spans = %q", got)
	}
}

func TestSegmentCodeShellSingleQuoteHasNoEscape(t *testing.T) {
	in := `echo 'it\' # comment` + "\n"
	chunks := SegmentCode(in, 500, Shell)
	checkChunks(t, in, chunks)
	if got := texts(chunks); !reflect.DeepEqual(got, []string{"comment"}) {
		t.Fatalf("translatable spans = %q, want [comment]", got)
	}
}

func TestSegmentCodeShellHashInsideWord(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"n=${#arr[@]}\necho $# args\n", nil},
		{"url: http://example.com/page#section\n", nil},
		{"color: '#fff'  # theme color\n", []string{"theme color"}},
		{"# header\nls -la\t# list all\n", []string{"header", "list all"}},
		{"x=1\n#tight\n", []string{"tight"}},
	}
	for _, tc := range tests {
		chunks := SegmentCode(tc.in, 500, Shell)
		checkChunks(t, tc.in, chunks)
		if got := texts(chunks); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SegmentCode(%q) translatable spans = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSegmentCodeRustLifetimes(t *testing.T) {
	in := "struct S<'a> { // it's a comment\n    r: &'static str,\n}\n" +
		"let q = '\"'; // after quote\n" +
		"let e = '\\''; /* escaped */\n"
	chunks := SegmentCode(in, 500, Rust)
	checkChunks(t, in, chunks)
	want := []string{"it's a comment", "after quote", "escaped"}
	if got := texts(chunks); !reflect.DeepEqual(got, want) {
		t.Fatalf("translatable spans = %q, want %q", got, want)
	}
}

func TestSegmentCodeLongCommentIsSplit(t *testing.T) {
	in := "# First sentence here. Second sentence is a lot longer than ten.\nx = 2\n"
	chunks := SegmentCode(in, 10, Python)
	checkChunks(t, in, chunks)

	parts := texts(chunks)
	if len(parts) < 2 {
		t.Fatalf("long comment should be split, got %q", parts)
	}
	for _, p := range parts {
		if n := utf8.RuneCountInString(p); n > 10 {
			t.Fatalf("comment chunk %q has %d runes", p, n)
		}
	}
	if strings.Join(parts, "") != "First sentence here. Second sentence is a lot longer than ten." {
		t.Fatalf("comment pieces do not rebuild the body: %q", parts)
	}
}

func TestSegmentCodeLossless(t *testing.T) {
	inputs := []string{
		"",
		"#",
		"#\n#\n",
		"x = '''",
		"'''unterminated docstring",
		"\"\"\"a\"\"\"\"\"\"b\"\"\"",
		"# комментарий на русском языке\nprint('привет')  # ещё\n",
		"a = 1 # 🎉 emoji comment\n",
		"s = 'trailing backslash \\",
	}
	for _, in := range inputs {
		for _, g := range builtins() {
			for _, size := range []int{1, 5, 500} {
				chunks := SegmentCode(in, size, g)
				if got := Concat(chunks); got != in {
					t.Fatalf("SegmentCode(%q, %d, %s) = %q", in, size, g.Name, got)
				}
			}
		}
	}
}

func TestGrammarLookup(t *testing.T) {
	tests := []struct {
		path string
		want *Grammar
	}{
		{"main.go", CLike},
		{"script.PY", Python},
		{"deploy.sh", Shell},
		{"lib.rs", Rust},
		{"schema.sql", SQL},
		{"init.lua", Lua},
	}
	for _, tc := range tests {
		got, ok := GrammarForFile(tc.path)
		if !ok || got != tc.want {
			t.Errorf("GrammarForFile(%q) = %v, %v; want %s", tc.path, got, ok, tc.want.Name)
		}
	}
	if _, ok := GrammarForFile("README"); ok {
		t.Error("GrammarForFile(README) should not match")
	}
	if g, ok := GrammarByName("Python"); !ok || g != Python {
		t.Errorf("GrammarByName(Python) = %v, %v", g, ok)
	}
}

func TestRegisterCustomGrammar(t *testing.T) {
	custom := &Grammar{
		Name:         "haskell",
		Extensions:   []string{".hs"},
		LineComments: []string{"--"},
		BlockComments: []Delimiters{
			{Open: "{-", Close: "-}"},
		},
		Quotes: []Quote{{Delim: `"`, Escape: `\`}},
	}
	if err := Register(custom); err != nil {
		t.Fatalf("Register: %v", err)
	}
	t.Cleanup(func() {
		registryMu.Lock()
		unregister("haskell")
		registryMu.Unlock()
	})

	g, ok := GrammarForFile("Main.hs")
	if !ok || g != custom {
		t.Fatalf("GrammarForFile(Main.hs) = %v, %v", g, ok)
	}

	in := "{- header -}\nmain = putStrLn \"-- hi\" -- greet\n"
	chunks := SegmentCode(in, 500, g)
	checkChunks(t, in, chunks)
	if got := texts(chunks); !reflect.DeepEqual(got, []string{"header", "greet"}) {
		t.Fatalf("translatable spans = %q", got)
	}

	if err := Register(&Grammar{Name: "broken"}); err == nil {
		t.Fatal("Register should reject a grammar without comment syntax")
	}
}

func TestGrammarForFileLastRegisteredWins(t *testing.T) {
	alpha := &Grammar{Name: "alpha", Extensions: []string{".dsl"}, LineComments: []string{";"}}
	beta := &Grammar{Name: "beta", Extensions: []string{".DSL"}, LineComments: []string{"%"}}
	t.Cleanup(func() {
		registryMu.Lock()
		unregister("alpha")
		unregister("beta")
		registryMu.Unlock()
	})

	for _, g := range []*Grammar{alpha, beta} {
		if err := Register(g); err != nil {
			t.Fatalf("Register(%s): %v", g.Name, err)
		}
	}
	for i := 0; i < 20; i++ {
		if g, _ := GrammarForFile("rules.dsl"); g != beta {
			t.Fatalf("GrammarForFile(rules.dsl) = %v, want beta", g)
		}
	}

	if err := Register(alpha); err != nil {
		t.Fatal(err)
	}
	if g, _ := GrammarForFile("rules.dsl"); g != alpha {
		t.Fatalf("GrammarForFile(rules.dsl) = %v, want alpha after re-registering", g)
	}
}
