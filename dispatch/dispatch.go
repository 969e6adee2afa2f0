// Package dispatch fans translation work out to a bounded pool of workers
// and collects the results in chunk order.
//
// Every chunk index owns exactly one result slot. Workers take indices from a
// pre-filled queue, so each slot is written by a single goroutine and no lock
// is needed around the result slice.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minios-linux/textrans/segment"
)

// TranslateFunc translates one piece of text. It is called only for
// segment.Text chunks.
type TranslateFunc func(ctx context.Context, text string) (string, error)

// ErrorKind is the outcome recorded in a result slot.
type ErrorKind int

const (
	// None means the slot holds a translation (or a preserved chunk).
	None ErrorKind = iota
	// TranslationFailed means every attempt failed; the slot holds the
	// original text.
	TranslationFailed
	// Cancelled means the chunk was not processed before cancellation; the
	// slot holds the original text.
	Cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case None:
		return "ok"
	case TranslationFailed:
		return "translation failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Result is the content of one slot.
type Result struct {
	Index int
	Kind  segment.Kind
	// Text is the translation, or the original content when Err is not None.
	Text string
	Err  ErrorKind
	// Cause is the last error returned by the translator, if any.
	Cause error
	// Attempts counts calls made for this chunk.
	Attempts int
}

// ErrTooManyFailures is returned when more chunks failed than
// Options.MaxFailures allows.
var ErrTooManyFailures = errors.New("too many failed chunks")

// ErrCallTimeout is the cause recorded when a call outlives CallTimeout.
var ErrCallTimeout = errors.New("translation call timed out")

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

const (
	DefaultConcurrency = 5
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultCallTimeout = 30 * time.Second

	maxBackoff = 30 * time.Second
)

// Options controls the dispatcher.
type Options struct {
	// Concurrency is the number of workers. Default: 5.
	Concurrency int
	// MaxRetries is the number of retries after the first attempt. Default: 3.
	// Use a negative value to disable retries.
	MaxRetries int
	// RetryDelay is the base of the exponential backoff between attempts.
	// Default: 500ms.
	RetryDelay time.Duration
	// CallTimeout bounds a single translator call. Default: 30s.
	CallTimeout time.Duration
	// MaxFailures stops the run once more chunks than this have failed.
	// 0 disables the threshold.
	MaxFailures int
	// OnAttempt is called after each failed attempt (attempt is 1-based).
	OnAttempt func(index, attempt int, err error)
	// OnProgress is called each time a slot is filled.
	OnProgress func(done, total int)
	// OnLog emits log messages.
	OnLog func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveConcurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return DefaultConcurrency
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries < 0 {
		return 0
	}
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return DefaultMaxRetries
}

func (o *Options) effectiveRetryDelay() time.Duration {
	if o.RetryDelay > 0 {
		return o.RetryDelay
	}
	return DefaultRetryDelay
}

func (o *Options) effectiveCallTimeout() time.Duration {
	if o.CallTimeout > 0 {
		return o.CallTimeout
	}
	return DefaultCallTimeout
}

// MaxAttempts returns the total number of calls allowed per chunk.
func (o Options) MaxAttempts() int {
	return o.effectiveMaxRetries() + 1
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

type pool struct {
	fn       TranslateFunc
	opts     *Options
	rl       *rateLimitState
	failures atomic.Int64
	done     atomic.Int64
	total    int
	stop     context.CancelFunc
}

// Run translates every Text chunk with fn and returns one result per chunk,
// in index order. Preserved chunks are copied through without calling fn.
//
// Run blocks until all workers have exited. When ctx is cancelled workers
// stop taking new chunks, calls already in flight are allowed to finish, and
// slots that were never processed are marked Cancelled; the results are
// returned together with ctx.Err().
func Run(ctx context.Context, chunks []segment.Chunk, fn TranslateFunc, opts Options) ([]Result, error) {
	n := len(chunks)
	results := make([]Result, n)
	for i, c := range chunks {
		results[i] = Result{Index: i, Kind: c.Kind, Text: c.Content, Err: Cancelled}
	}
	if n == 0 {
		return results, ctx.Err()
	}

	queue := make(chan int, n)
	for i := range chunks {
		queue <- i
	}
	close(queue)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	p := &pool{fn: fn, opts: &opts, rl: &rateLimitState{}, total: n, stop: stop}

	workers := min(opts.effectiveConcurrency(), n)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				if runCtx.Err() != nil {
					return
				}
				res, processed := p.process(runCtx, idx, chunks[idx])
				if !processed {
					results[idx].Cause = res.Cause
					results[idx].Attempts = res.Attempts
					return
				}
				results[idx] = res
				p.record(res)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	if limit := opts.MaxFailures; limit > 0 {
		if failed := p.failures.Load(); failed > int64(limit) {
			return results, fmt.Errorf("%w: %d of %d chunks failed (limit %d)", ErrTooManyFailures, failed, n, limit)
		}
	}
	return results, nil
}

func (p *pool) record(res Result) {
	if res.Err == TranslationFailed {
		failed := p.failures.Add(1)
		if limit := p.opts.MaxFailures; limit > 0 && failed > int64(limit) {
			p.stop()
		}
	}
	done := p.done.Add(1)
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(int(done), p.total)
	}
}

// process runs the bounded retry loop for one chunk. It reports false when
// the run was stopped before the chunk got a final outcome.
func (p *pool) process(ctx context.Context, idx int, c segment.Chunk) (Result, bool) {
	res := Result{Index: idx, Kind: c.Kind, Text: c.Content}
	if c.Kind == segment.Preserved {
		return res, true
	}

	maxRetries := p.opts.effectiveMaxRetries()
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(p.opts.effectiveRetryDelay(), attempt)); err != nil {
				return res, false
			}
		}
		if err := p.rl.waitIfPaused(ctx); err != nil {
			return res, false
		}

		res.Attempts++
		out, err := p.call(ctx, c.Content)
		if err == nil {
			res.Text = out
			res.Cause = nil
			return res, true
		}
		res.Cause = err
		if p.opts.OnAttempt != nil {
			p.opts.OnAttempt(idx, res.Attempts, err)
		}
		if !isTransient(err) {
			break
		}
		if d := retryAfter(err); d > 0 && attempt < maxRetries {
			p.opts.log("rate limited, pausing all workers for %v", d)
			p.rl.pause(d)
		}
	}

	res.Err = TranslationFailed
	return res, true
}

// call runs fn under CallTimeout. The call is detached from ctx
// cancellation so an in-flight request can finish after the run is stopped.
func (p *pool) call(ctx context.Context, text string) (string, error) {
	timeout := p.opts.effectiveCallTimeout()
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		out, err := p.fn(callCtx, text)
		ch <- reply{out, err}
	}()

	select {
	case r := <-ch:
		return r.text, r.err
	case <-callCtx.Done():
		return "", fmt.Errorf("%w after %v: %w", ErrCallTimeout, timeout, callCtx.Err())
	}
}

// isTransient reports whether err is worth another attempt. Errors that do
// not classify themselves are treated as transient.
func isTransient(err error) bool {
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	return !errors.Is(err, context.Canceled)
}

func retryAfter(err error) time.Duration {
	var h interface{ RetryAfterHint() time.Duration }
	if errors.As(err, &h) {
		return h.RetryAfterHint()
	}
	return 0
}

// backoff returns base * 2^(attempt-1), capped at 30s.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return min(d, maxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
