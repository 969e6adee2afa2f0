// Package config loads the .textrans.yaml configuration file.
//
// The file supplies defaults for the translate command and declares custom
// code grammars. Command-line flags always win over values from the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/textrans/segment"
)

// FileName is the default config file name.
const FileName = ".textrans.yaml"

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .textrans.yaml structure.
type File struct {
	// Provider is the provider ID or an OpenAI-compatible endpoint URL.
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Proxy    string `yaml:"proxy,omitempty"`

	// From is the source language ("auto" by default).
	From string `yaml:"from,omitempty"`
	// To is the target language.
	To string `yaml:"to,omitempty"`

	// Mode: "plain", "code" or "auto".
	Mode    string `yaml:"mode,omitempty"`
	Grammar string `yaml:"grammar,omitempty"`

	ChunkSize   int           `yaml:"chunk_size,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	MaxRetries  *int          `yaml:"max_retries,omitempty"`
	RetryDelay  time.Duration `yaml:"retry_delay,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxFailures int           `yaml:"max_failures,omitempty"`

	// LangSuffix appends the target language to output file names.
	LangSuffix bool `yaml:"lang_suffix,omitempty"`
	// Memory is the translation memory path, relative to the config file.
	Memory string `yaml:"memory,omitempty"`
	// Prompt overrides the system prompt of LLM providers.
	Prompt string `yaml:"prompt,omitempty"`

	// Grammars declares additional code grammars.
	Grammars []segment.Grammar `yaml:"grammars,omitempty"`

	path string
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Find loads .textrans.yaml from dir. Returns nil if no file exists.
func Find(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Load(path)
}

// Load reads and validates a config file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.path = path

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if f.Memory != "" && !filepath.IsAbs(f.Memory) {
		f.Memory = filepath.Join(filepath.Dir(path), f.Memory)
	}
	return &f, nil
}

func (f *File) validate() error {
	switch f.Mode {
	case "", "auto":
	default:
		if _, err := segment.ParseMode(f.Mode); err != nil {
			return err
		}
	}
	if f.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}
	if f.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if f.MaxRetries != nil && *f.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if f.MaxFailures < 0 {
		return fmt.Errorf("max_failures must not be negative")
	}

	seen := make(map[string]bool)
	for i := range f.Grammars {
		g := &f.Grammars[i]
		if err := g.Validate(); err != nil {
			return fmt.Errorf("grammar #%d: %w", i+1, err)
		}
		if seen[g.Name] {
			return fmt.Errorf("grammar %q declared twice", g.Name)
		}
		seen[g.Name] = true
	}
	return nil
}

// Path returns the file the config was loaded from.
func (f *File) Path() string {
	return f.path
}

// RegisterGrammars makes the declared grammars available to the segmenter.
func (f *File) RegisterGrammars() error {
	for i := range f.Grammars {
		if err := segment.Register(&f.Grammars[i]); err != nil {
			return err
		}
	}
	return nil
}
