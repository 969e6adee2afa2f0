package segment

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Delimiters is an opening/closing pair for block comments.
type Delimiters struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// Quote describes a string literal form.
type Quote struct {
	// Delim opens and closes the literal (e.g. `"`, `'`, "`").
	Delim string `yaml:"delim"`
	// Escape is the escape character inside the literal ("" = no escapes).
	Escape string `yaml:"escape,omitempty"`
	// Char limits the literal to one character or one escape sequence on
	// the same line. A delimiter that does not close that way is code,
	// so Rust lifetimes such as 'a are not taken for literals.
	Char bool `yaml:"char,omitempty"`
}

// Grammar declares the lexical forms the code scanner recognizes.
// Block comments take priority over line comments, which take priority
// over quoted literals.
type Grammar struct {
	Name          string       `yaml:"name"`
	Extensions    []string     `yaml:"extensions,omitempty"`
	BlockComments []Delimiters `yaml:"block_comments,omitempty"`
	LineComments  []string     `yaml:"line_comments,omitempty"`
	// LineCommentAtWordStart only opens a line comment at the start of the
	// input or after whitespace, so $# or page#frag stay code.
	LineCommentAtWordStart bool    `yaml:"line_comment_word_start,omitempty"`
	Quotes                 []Quote `yaml:"quotes,omitempty"`
	// Directives are comment prefixes (including the marker) that are kept
	// verbatim, e.g. "#!" or "//go:".
	Directives []string `yaml:"directives,omitempty"`
}

// Validate reports grammars that cannot be scanned.
func (g *Grammar) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("grammar has no name")
	}
	if len(g.BlockComments) == 0 && len(g.LineComments) == 0 {
		return fmt.Errorf("grammar %q declares no comment syntax", g.Name)
	}
	for _, b := range g.BlockComments {
		if b.Open == "" || b.Close == "" {
			return fmt.Errorf("grammar %q: block comment needs open and close delimiters", g.Name)
		}
	}
	for _, l := range g.LineComments {
		if l == "" {
			return fmt.Errorf("grammar %q: empty line comment marker", g.Name)
		}
	}
	for _, q := range g.Quotes {
		if q.Delim == "" {
			return fmt.Errorf("grammar %q: empty quote delimiter", g.Name)
		}
	}
	return nil
}

const backslash = `\`

// Built-in grammars.
var (
	Python = &Grammar{
		Name:       "python",
		Extensions: []string{".py", ".pyw", ".pyi"},
		BlockComments: []Delimiters{
			{Open: `'''`, Close: `'''`},
			{Open: `"""`, Close: `"""`},
		},
		LineComments: []string{"#"},
		Quotes: []Quote{
			{Delim: `'`, Escape: backslash},
			{Delim: `"`, Escape: backslash},
		},
		Directives: []string{"#!", "# -*-", "# type:", "# noqa"},
	}

	CLike = &Grammar{
		Name: "c",
		Extensions: []string{
			".c", ".h", ".cc", ".cpp", ".cxx", ".hh", ".hpp", ".m",
			".go", ".java", ".js", ".jsx", ".ts", ".tsx", ".mjs",
			".cs", ".kt", ".kts", ".swift", ".scala", ".dart", ".php",
		},
		BlockComments: []Delimiters{{Open: "/*", Close: "*/"}},
		LineComments:  []string{"//"},
		Quotes: []Quote{
			{Delim: `"`, Escape: backslash},
			{Delim: `'`, Escape: backslash},
			{Delim: "`"},
		},
		Directives: []string{"//go:", "//nolint", "// +build", "/*!"},
	}

	Shell = &Grammar{
		Name: "shell",
		Extensions: []string{
			".sh", ".bash", ".zsh", ".ksh", ".rb", ".pl", ".pm",
			".yaml", ".yml", ".toml", ".conf", ".cfg", ".ini", ".r", ".tcl",
		},
		LineComments:           []string{"#"},
		LineCommentAtWordStart: true,
		Quotes: []Quote{
			{Delim: `"`, Escape: backslash},
			{Delim: `'`},
		},
		Directives: []string{"#!"},
	}

	Rust = &Grammar{
		Name:          "rust",
		Extensions:    []string{".rs"},
		BlockComments: []Delimiters{{Open: "/*", Close: "*/"}},
		LineComments:  []string{"//"},
		Quotes: []Quote{
			{Delim: `"`, Escape: backslash},
			{Delim: `'`, Escape: backslash, Char: true},
		},
		Directives: []string{"#!"},
	}

	SQL = &Grammar{
		Name:          "sql",
		Extensions:    []string{".sql"},
		BlockComments: []Delimiters{{Open: "/*", Close: "*/"}},
		LineComments:  []string{"--"},
		Quotes: []Quote{
			{Delim: `'`},
			{Delim: `"`},
		},
	}

	Lua = &Grammar{
		Name:          "lua",
		Extensions:    []string{".lua"},
		BlockComments: []Delimiters{{Open: "--[[", Close: "]]"}},
		LineComments:  []string{"--"},
		Quotes: []Quote{
			{Delim: `"`, Escape: backslash},
			{Delim: `'`, Escape: backslash},
		},
		Directives: []string{"#!"},
	}
)

var (
	registryMu sync.RWMutex
	registry   = map[string]*Grammar{}
	// registered holds the registration sequence of each name.
	registered = map[string]int{}
	seq        int
)

func init() {
	for _, g := range builtins() {
		register(g.Name, g)
	}
}

func builtins() []*Grammar {
	return []*Grammar{Python, CLike, Shell, Rust, SQL, Lua}
}

// register must be called with registryMu held (or from init).
func register(name string, g *Grammar) {
	seq++
	registry[name] = g
	registered[name] = seq
}

// DefaultGrammar returns the grammar used when none is selected.
func DefaultGrammar() *Grammar {
	return Python
}

// Register adds or replaces a grammar. When several grammars declare the
// same extension, the one registered last wins.
func Register(g *Grammar) error {
	if err := g.Validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	register(strings.ToLower(g.Name), g)
	return nil
}

// GrammarByName looks up a registered grammar.
func GrammarByName(name string) (*Grammar, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	g, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return g, ok
}

// GrammarForFile picks a grammar by file extension.
func GrammarForFile(path string) (*Grammar, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}
	registryMu.RLock()
	defer registryMu.RUnlock()

	var match *Grammar
	best := 0
	for name, g := range registry {
		for _, e := range g.Extensions {
			if strings.ToLower(e) == ext && registered[name] > best {
				match, best = g, registered[name]
			}
		}
	}
	return match, match != nil
}

// GrammarNames returns registered grammar names, sorted.
func GrammarNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
