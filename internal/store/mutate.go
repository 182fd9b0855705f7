package store

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxAttempts bounds the read-modify-write loop.
const DefaultMaxAttempts = 5

// Status is how an Update or Mutate ended.
type Status int

const (
	Committed Status = iota + 1
	Aborted
	Conflict
)

func (s Status) String() string {
	switch s {
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	case Conflict:
		return "conflict"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of an Update or Mutate.
type Result struct {
	Status Status
	// Value is the committed value of the mutated path (Mutate only).
	Value    []byte
	Attempts int
	// Cause is ErrStale when the update function declared its input stale.
	Cause error
}

// Err maps Aborted and Conflict to ErrAbort and ErrConflict.
func (r Result) Err() error {
	switch r.Status {
	case Aborted:
		return ErrAbort
	case Conflict:
		if r.Cause != nil {
			return fmt.Errorf("%w: %w", ErrConflict, r.Cause)
		}
		return ErrConflict
	default:
		return nil
	}
}

type mutateOptions struct {
	maxAttempts int
	backoff     time.Duration
}

// MutateOption configures Update and Mutate.
type MutateOption func(*mutateOptions)

// WithMaxAttempts bounds the number of compare-and-swap attempts.
func WithMaxAttempts(n int) MutateOption {
	return func(o *mutateOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts. Zero retries at once.
func WithBackoff(d time.Duration) MutateOption {
	return func(o *mutateOptions) {
		o.backoff = max(d, 0)
	}
}

// Txn collects the reads and writes of one Update attempt.
type Txn struct {
	ctx    context.Context
	b      Backend
	room   string
	reads  map[string]int64
	cache  map[string]Entry
	writes map[string][]byte
}

// Get reads path, remembering its version for the final compare-and-swap.
// A write made earlier in the same attempt is returned as is.
func (t *Txn) Get(path string) ([]byte, error) {
	if data, ok := t.writes[path]; ok {
		return data, nil
	}
	if e, ok := t.cache[path]; ok {
		return e.Data, nil
	}
	e, err := t.b.Get(t.ctx, t.room, path)
	if err != nil {
		return nil, err
	}
	t.cache[path] = e
	t.reads[path] = e.Version
	return e.Data, nil
}

// GetJSON decodes path into v. It returns false when the path is absent.
func (t *Txn) GetJSON(path string, v any) (bool, error) {
	data, err := t.Get(path)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return true, nil
}

// Put stages a write. Writing a path that was never read still requires it
// to be unchanged since the attempt began, so Put records a read of it.
func (t *Txn) Put(path string, data []byte) error {
	if _, ok := t.reads[path]; !ok {
		if _, err := t.Get(path); err != nil {
			return err
		}
	}
	t.writes[path] = data
	return nil
}

// PutJSON encodes v and stages it at path.
func (t *Txn) PutJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return t.Put(path, data)
}

// Update runs fn inside a read-modify-write loop. fn sees a fresh Txn on
// every attempt and may be called several times, so it must be free of
// side effects other than Txn calls. Returning ErrAbort ends the update as
// Aborted, ErrStale ends it as Conflict, any other error is returned as is.
func Update(ctx context.Context, b Backend, room string, fn func(*Txn) error, opts ...MutateOption) (Result, error) {
	o := mutateOptions{maxAttempts: DefaultMaxAttempts, backoff: 5 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempt - 1}, err
		}
		txn := &Txn{
			ctx:    ctx,
			b:      b,
			room:   room,
			reads:  make(map[string]int64),
			cache:  make(map[string]Entry),
			writes: make(map[string][]byte),
		}
		err := fn(txn)
		switch {
		case errors.Is(err, ErrAbort):
			return Result{Status: Aborted, Attempts: attempt}, nil
		case errors.Is(err, ErrStale):
			return Result{Status: Conflict, Attempts: attempt, Cause: ErrStale}, nil
		case err != nil:
			return Result{Attempts: attempt}, err
		}
		if len(txn.writes) == 0 {
			return Result{Status: Committed, Attempts: attempt}, nil
		}

		ok, err := b.Commit(ctx, room, txn.reads, txn.writes)
		if err != nil {
			return Result{Attempts: attempt}, err
		}
		if ok {
			return Result{Status: Committed, Attempts: attempt}, nil
		}
		if attempt < o.maxAttempts {
			if err := sleep(ctx, jitter(o.backoff, attempt)); err != nil {
				return Result{Attempts: attempt}, err
			}
		}
	}
	return Result{Status: Conflict, Attempts: o.maxAttempts}, nil
}

// Mutate is the single-path form of Update: fn receives the current value
// (nil when absent) and returns the new one.
func Mutate(ctx context.Context, b Backend, room, path string, fn func(old []byte) ([]byte, error), opts ...MutateOption) (Result, error) {
	var value []byte
	res, err := Update(ctx, b, room, func(txn *Txn) error {
		old, err := txn.Get(path)
		if err != nil {
			return err
		}
		next, err := fn(old)
		if err != nil {
			return err
		}
		value = next
		return txn.Put(path, next)
	}, opts...)
	if res.Status == Committed {
		res.Value = value
	}
	return res, err
}

// jitter returns a random delay in [base*attempt/2, base*attempt).
func jitter(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base * time.Duration(attempt)
	return d/2 + rand.N(d/2+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
