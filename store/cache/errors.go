package cache

import (
	"github.com/pkg/errors"
)

var (
	// ErrFetch marks a failed backing-store fetch.
	ErrFetch = errors.New("fetch failed")
	// ErrMutation marks a backing-store mutation that was rejected.
	ErrMutation = errors.New("mutation failed")
	// ErrNoFetcher is returned by Get when a key has never been given a fetcher.
	ErrNoFetcher = errors.New("no fetcher registered for key")
	// ErrClosed is returned once the cache has been closed.
	ErrClosed = errors.New("query cache closed")
)

// failure wraps a cause under a sentinel so both errors.Is checks and the
// original message survive.
type failure struct {
	kind  error
	cause error
	msg   string
}

func (f *failure) Error() string {
	return f.msg + ": " + f.kind.Error() + ": " + f.cause.Error()
}

func (f *failure) Is(target error) bool {
	return target == f.kind
}

func (f *failure) Unwrap() error {
	return f.cause
}

func wrapFailure(kind, cause error, msg string) error {
	return &failure{kind: kind, cause: cause, msg: msg}
}

// partialWrite marks a failed Apply that had already changed the backing
// store before it failed.
type partialWrite struct {
	cause error
}

func (p *partialWrite) Error() string { return p.cause.Error() }
func (p *partialWrite) Unwrap() error { return p.cause }

// PartialWrite marks err as the failure of a multi-step mutation whose
// earlier steps were committed. The Coordinator still returns the failure,
// but it also invalidates the affected keys so the cache is refetched from
// what the store now holds.
func PartialWrite(err error) error {
	if err == nil {
		return nil
	}
	return &partialWrite{cause: err}
}

// IsPartialWrite reports whether err was marked by PartialWrite.
func IsPartialWrite(err error) bool {
	var p *partialWrite
	return errors.As(err, &p)
}
