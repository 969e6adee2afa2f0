// Package job runs a single file through the translation pipeline:
// read, validate, segment, dispatch, reassemble and write.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minios-linux/textrans/assemble"
	"github.com/minios-linux/textrans/dispatch"
	"github.com/minios-linux/textrans/memo"
	"github.com/minios-linux/textrans/segment"
	"github.com/minios-linux/textrans/translate"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Job describes the translation of one input file.
type Job struct {
	ID           string
	InputPath    string
	OutputPath   string
	Source       string
	Target       string
	Mode         segment.Mode
	Grammar      *segment.Grammar
	MaxChunkSize int
	Dispatch     dispatch.Options
	// DryRun segments the input and reports chunk counts without calling
	// the provider or writing output.
	DryRun bool
}

// New creates a job with a fresh ID, the default chunk size and the default
// output path.
func New(input, source, target string) *Job {
	return &Job{
		ID:           uuid.NewString(),
		InputPath:    input,
		OutputPath:   OutputPath(input, target, false),
		Source:       source,
		Target:       target,
		Mode:         segment.ModePlain,
		MaxChunkSize: segment.DefaultMaxChunkSize,
	}
}

// Report describes the outcome of a run.
type Report struct {
	JobID      string
	InputPath  string
	OutputPath string
	Mode       segment.Mode
	Chunks     int
	// TextChunks is the number of chunks sent for translation.
	TextChunks int
	Summary    assemble.Summary
	Failed     []dispatch.Result
	MemoryHits int
	Written    bool
	Elapsed    time.Duration
}

// IOError reports a failure reading the input or writing the output.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Mode selection
// ---------------------------------------------------------------------------

// ResolveMode turns the --mode and --grammar values into a segmentation
// mode and grammar. "auto" (or empty) picks code mode when the file
// extension belongs to a known grammar.
func ResolveMode(path, mode, grammar string) (segment.Mode, *segment.Grammar, error) {
	var g *segment.Grammar
	if grammar != "" {
		var ok bool
		if g, ok = segment.GrammarByName(grammar); !ok {
			return "", nil, fmt.Errorf("unknown grammar %q (available: %s)",
				grammar, strings.Join(segment.GrammarNames(), ", "))
		}
	}

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		if g != nil {
			return segment.ModeCode, g, nil
		}
		if fg, ok := segment.GrammarForFile(path); ok {
			return segment.ModeCode, fg, nil
		}
		return segment.ModePlain, nil, nil
	}

	m, err := segment.ParseMode(mode)
	if err != nil {
		return "", nil, err
	}
	if m == segment.ModeCode && g == nil {
		if fg, ok := segment.GrammarForFile(path); ok {
			g = fg
		} else {
			g = segment.DefaultGrammar()
		}
	}
	if m == segment.ModePlain {
		g = nil
	}
	return m, g, nil
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Runner executes jobs against a translation client.
type Runner struct {
	Client *translate.Client
	// Memory, when set, answers repeated chunks and records new translations.
	Memory *memo.Memory
	OnLog  func(format string, args ...any)
}

func (r *Runner) log(format string, args ...any) {
	if r.OnLog != nil {
		r.OnLog(format, args...)
	}
}

// Run translates j.InputPath and writes the result to j.OutputPath.
//
// Nothing is written when the run is cancelled or stopped by the failure
// threshold; the report still describes the slots. The translation memory
// is saved in every case once dispatch has started.
func (r *Runner) Run(ctx context.Context, j *Job) (*Report, error) {
	start := time.Now()
	rep := &Report{
		JobID:      j.ID,
		InputPath:  j.InputPath,
		OutputPath: j.OutputPath,
		Mode:       j.Mode,
	}

	data, err := os.ReadFile(j.InputPath)
	if err != nil {
		return rep, &IOError{Op: "read", Path: j.InputPath, Err: err}
	}

	chunks, err := segment.Segment(string(data), j.MaxChunkSize, j.Mode, j.Grammar)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", j.InputPath, err)
	}
	rep.Chunks = len(chunks)
	rep.TextChunks, _ = segment.Count(chunks)

	if j.DryRun {
		rep.Elapsed = time.Since(start)
		return rep, nil
	}
	if r.Client == nil {
		return rep, errors.New("job: runner has no translation client")
	}

	fn := r.Client.Bind(j.Source, j.Target)
	hitsBefore := 0
	if r.Memory != nil {
		fn = r.Memory.Wrap(j.Source, j.Target, fn)
		hitsBefore = r.Memory.Hits()
	}

	results, runErr := dispatch.Run(ctx, chunks, fn, j.Dispatch)
	rep.Summary = assemble.Stats(results)
	rep.Failed = assemble.Failed(results)

	if r.Memory != nil {
		rep.MemoryHits = r.Memory.Hits() - hitsBefore
		if err := r.Memory.Save(); err != nil {
			saveErr := &IOError{Op: "save memory", Path: r.Memory.Path(), Err: err}
			if runErr == nil {
				runErr = saveErr
			} else {
				r.log("%v", saveErr)
			}
		}
	}

	if runErr != nil {
		rep.Elapsed = time.Since(start)
		return rep, runErr
	}

	out := assemble.Join(results, j.Mode)
	if err := WriteAtomic(j.OutputPath, []byte(out), outputPerm(j.InputPath)); err != nil {
		rep.Elapsed = time.Since(start)
		return rep, &IOError{Op: "write", Path: j.OutputPath, Err: err}
	}
	rep.Written = true
	rep.Elapsed = time.Since(start)
	return rep, nil
}

// ---------------------------------------------------------------------------
// Output files
// ---------------------------------------------------------------------------

// OutputPath returns the default output file for input: <base>_translated<ext>,
// or <base>_translated_<TARGET><ext> when langSuffix is set.
func OutputPath(input, target string, langSuffix bool) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	if langSuffix && target != "" {
		return base + "_translated_" + strings.ToUpper(target) + ext
	}
	return base + "_translated" + ext
}

// outputPerm copies the permission bits of the input file.
func outputPerm(input string) os.FileMode {
	if fi, err := os.Stat(input); err == nil {
		return fi.Mode().Perm()
	}
	return 0644
}

// WriteAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partial file.
func WriteAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
