package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minios-linux/textrans/segment"
)

type stubErr struct {
	transient bool
	after     time.Duration
}

func (e *stubErr) Error() string                 { return fmt.Sprintf("stub error (transient=%v)", e.transient) }
func (e *stubErr) Transient() bool               { return e.transient }
func (e *stubErr) RetryAfterHint() time.Duration { return e.after }

func textChunks(texts ...string) []segment.Chunk {
	chunks := make([]segment.Chunk, len(texts))
	for i, s := range texts {
		chunks[i] = segment.Chunk{Index: i, Kind: segment.Text, Content: s}
	}
	return chunks
}

func upper(ctx context.Context, text string) (string, error) {
	return strings.ToUpper(text), nil
}

func fastOpts() Options {
	return Options{RetryDelay: time.Millisecond, CallTimeout: 5 * time.Second}
}

// ---------------------------------------------------------------------------
// Ordering
// ---------------------------------------------------------------------------

func TestRun_PreservesOrder(t *testing.T) {
	var texts []string
	for i := 0; i < 40; i++ {
		texts = append(texts, fmt.Sprintf("chunk %d", i))
	}
	chunks := textChunks(texts...)

	for _, workers := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			var mu sync.Mutex
			rng := rand.New(rand.NewSource(int64(workers)))
			fn := func(ctx context.Context, text string) (string, error) {
				mu.Lock()
				d := time.Duration(rng.Intn(3)) * time.Millisecond
				mu.Unlock()
				time.Sleep(d)
				return strings.ToUpper(text), nil
			}

			opts := fastOpts()
			opts.Concurrency = workers
			results, err := Run(context.Background(), chunks, fn, opts)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(results) != len(chunks) {
				t.Fatalf("got %d results, want %d", len(results), len(chunks))
			}
			for i, r := range results {
				want := strings.ToUpper(texts[i])
				if r.Index != i || r.Text != want || r.Err != None || r.Attempts != 1 {
					t.Fatalf("result %d = %+v, want text %q", i, r, want)
				}
			}
		})
	}
}

func TestRun_Empty(t *testing.T) {
	results, err := Run(context.Background(), nil, upper, Options{})
	if err != nil || len(results) != 0 {
		t.Fatalf("Run(nil) = %v, %v", results, err)
	}
}

func TestRun_PreservedChunksSkipTranslator(t *testing.T) {
	chunks := []segment.Chunk{
		{Index: 0, Kind: segment.Preserved, Content: "x = 1  # "},
		{Index: 1, Kind: segment.Text, Content: "hello world"},
		{Index: 2, Kind: segment.Preserved, Content: "\n"},
	}
	var seen []string
	var mu sync.Mutex
	fn := func(ctx context.Context, text string) (string, error) {
		mu.Lock()
		seen = append(seen, text)
		mu.Unlock()
		return strings.ToUpper(text), nil
	}

	results, err := Run(context.Background(), chunks, fn, fastOpts())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 1 || seen[0] != "hello world" {
		t.Fatalf("translator saw %q, want only the comment body", seen)
	}
	got := results[0].Text + results[1].Text + results[2].Text
	if got != "x = 1  # HELLO WORLD\n" {
		t.Fatalf("joined = %q", got)
	}
	if results[0].Attempts != 0 || results[0].Kind != segment.Preserved {
		t.Errorf("preserved slot = %+v", results[0])
	}
}

// ---------------------------------------------------------------------------
// Retries
// ---------------------------------------------------------------------------

func TestRun_RetryThenSuccess(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, text string) (string, error) {
		if text == "flaky" && calls.Add(1) <= 2 {
			return "", &stubErr{transient: true}
		}
		return strings.ToUpper(text), nil
	}

	var mu sync.Mutex
	var attempts []int
	opts := fastOpts()
	opts.OnAttempt = func(index, attempt int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if index != 1 {
			t.Errorf("OnAttempt index = %d, want 1", index)
		}
		attempts = append(attempts, attempt)
	}

	results, err := Run(context.Background(), textChunks("a", "flaky", "c"), fn, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := results[1]
	if r.Err != None || r.Text != "FLAKY" || r.Attempts != 3 || r.Cause != nil {
		t.Fatalf("flaky slot = %+v", r)
	}
	if fmt.Sprint(attempts) != "[1 2]" {
		t.Fatalf("OnAttempt attempts = %v, want [1 2]", attempts)
	}
}

func TestRun_ExhaustedRetriesFallBackToOriginal(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, text string) (string, error) {
		if text == "bad" {
			calls.Add(1)
			return "", &stubErr{transient: true}
		}
		return strings.ToUpper(text), nil
	}

	opts := fastOpts()
	opts.MaxRetries = 2
	results, err := Run(context.Background(), textChunks("one", "bad", "three"), fn, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("translator called %d times for the failing chunk, want 3", got)
	}
	r := results[1]
	if r.Err != TranslationFailed || r.Text != "bad" || r.Attempts != 3 || r.Cause == nil {
		t.Fatalf("failed slot = %+v", r)
	}
	if results[0].Text != "ONE" || results[2].Text != "THREE" {
		t.Fatalf("neighbours affected: %+v", results)
	}
}

func TestRun_PermanentErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, text string) (string, error) {
		calls.Add(1)
		return "", fmt.Errorf("wrapped: %w", &stubErr{transient: false})
	}

	results, err := Run(context.Background(), textChunks("x"), fn, fastOpts())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("permanent error retried: %d calls", calls.Load())
	}
	if results[0].Err != TranslationFailed || results[0].Attempts != 1 {
		t.Fatalf("slot = %+v", results[0])
	}
}

func TestRun_UnclassifiedErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, text string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	}
	results, err := Run(context.Background(), textChunks("x"), fn, fastOpts())
	if err != nil || results[0].Text != "ok" || results[0].Attempts != 2 {
		t.Fatalf("Run = %+v, %v", results, err)
	}
}

func TestRun_NoRetries(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, text string) (string, error) {
		calls.Add(1)
		return "", &stubErr{transient: true}
	}
	opts := fastOpts()
	opts.MaxRetries = -1
	results, _ := Run(context.Background(), textChunks("x"), fn, opts)
	if calls.Load() != 1 || results[0].Err != TranslationFailed {
		t.Fatalf("calls = %d, slot = %+v", calls.Load(), results[0])
	}
}

func TestRun_RetryAfterPausesWorkers(t *testing.T) {
	const hint = 60 * time.Millisecond
	var calls atomic.Int32
	fn := func(ctx context.Context, text string) (string, error) {
		if calls.Add(1) == 1 {
			return "", &stubErr{transient: true, after: hint}
		}
		return "ok", nil
	}

	start := time.Now()
	results, err := Run(context.Background(), textChunks("x"), fn, fastOpts())
	if err != nil || results[0].Text != "ok" {
		t.Fatalf("Run = %+v, %v", results, err)
	}
	if elapsed := time.Since(start); elapsed < hint {
		t.Fatalf("retry ran after %v, want at least %v", elapsed, hint)
	}
}

// ---------------------------------------------------------------------------
// Timeouts, cancellation and thresholds
// ---------------------------------------------------------------------------

func TestRun_CallTimeoutIsTransient(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	var calls atomic.Int32
	fn := func(ctx context.Context, text string) (string, error) {
		if calls.Add(1) == 1 {
			// Ignores ctx on purpose; the pool must still give up on it.
			<-block
			return "late", nil
		}
		return "ok", nil
	}

	opts := fastOpts()
	opts.CallTimeout = 20 * time.Millisecond
	var firstErr error
	opts.OnAttempt = func(index, attempt int, err error) { firstErr = err }

	results, err := Run(context.Background(), textChunks("x"), fn, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Text != "ok" || results[0].Attempts != 2 {
		t.Fatalf("slot = %+v", results[0])
	}
	if !errors.Is(firstErr, ErrCallTimeout) || !errors.Is(firstErr, context.DeadlineExceeded) {
		t.Fatalf("first attempt error = %v", firstErr)
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	fn := func(ctx context.Context, text string) (string, error) {
		calls.Add(1)
		cancel()
		// The in-flight call is allowed to finish.
		time.Sleep(5 * time.Millisecond)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return strings.ToUpper(text), nil
	}

	opts := fastOpts()
	opts.Concurrency = 1
	results, err := Run(ctx, textChunks("a", "b", "c", "d"), fn, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("translator called %d times after cancel", calls.Load())
	}
	if results[0].Err != None || results[0].Text != "A" {
		t.Fatalf("in-flight slot = %+v", results[0])
	}
	for _, r := range results[1:] {
		if r.Err != Cancelled || r.Attempts != 0 {
			t.Fatalf("slot %d = %+v, want cancelled", r.Index, r)
		}
	}
	if results[3].Text != "d" {
		t.Fatalf("cancelled slot lost its original text: %+v", results[3])
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fn := func(ctx context.Context, text string) (string, error) {
		t.Error("translator called on a cancelled run")
		return text, nil
	}
	results, err := Run(ctx, textChunks("a", "b"), fn, fastOpts())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	for _, r := range results {
		if r.Err != Cancelled {
			t.Fatalf("slot = %+v", r)
		}
	}
}

func TestRun_FailureThreshold(t *testing.T) {
	fn := func(ctx context.Context, text string) (string, error) {
		return "", &stubErr{transient: false}
	}
	opts := fastOpts()
	opts.Concurrency = 1
	opts.MaxFailures = 1

	results, err := Run(context.Background(), textChunks("a", "b", "c", "d", "e"), fn, opts)
	if !errors.Is(err, ErrTooManyFailures) {
		t.Fatalf("err = %v, want ErrTooManyFailures", err)
	}
	if results[0].Err != TranslationFailed || results[1].Err != TranslationFailed {
		t.Fatalf("first slots = %+v", results[:2])
	}
	for _, r := range results[2:] {
		if r.Err != Cancelled {
			t.Fatalf("slot %d = %+v, want cancelled after threshold", r.Index, r)
		}
	}
}

func TestRun_FailuresBelowThreshold(t *testing.T) {
	fn := func(ctx context.Context, text string) (string, error) {
		if text == "b" {
			return "", &stubErr{transient: false}
		}
		return text, nil
	}
	opts := fastOpts()
	opts.MaxFailures = 1
	if _, err := Run(context.Background(), textChunks("a", "b", "c"), fn, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_Progress(t *testing.T) {
	var mu sync.Mutex
	var last, calls int
	opts := fastOpts()
	opts.OnProgress = func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if total != 3 {
			t.Errorf("total = %d", total)
		}
		if done > last {
			last = done
		}
	}
	chunks := textChunks("a", "b")
	chunks = append(chunks, segment.Chunk{Index: 2, Kind: segment.Preserved, Content: "\n"})
	if _, err := Run(context.Background(), chunks, upper, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 3 || last != 3 {
		t.Fatalf("progress calls = %d, last = %d", calls, last)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{7, 30 * time.Second},
		{40, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := backoff(500*time.Millisecond, tc.attempt); got != tc.want {
			t.Errorf("backoff(500ms, %d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if o.effectiveConcurrency() != 5 || o.effectiveMaxRetries() != 3 || o.MaxAttempts() != 4 {
		t.Errorf("defaults: concurrency=%d retries=%d", o.effectiveConcurrency(), o.effectiveMaxRetries())
	}
	if o.effectiveRetryDelay() != 500*time.Millisecond || o.effectiveCallTimeout() != 30*time.Second {
		t.Errorf("defaults: delay=%v timeout=%v", o.effectiveRetryDelay(), o.effectiveCallTimeout())
	}
}

func TestErrorKindString(t *testing.T) {
	if TranslationFailed.String() != "translation failed" || Cancelled.String() != "cancelled" {
		t.Errorf("String() = %q, %q", TranslationFailed, Cancelled)
	}
}
