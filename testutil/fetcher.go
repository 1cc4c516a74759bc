package testutil

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// CountingFetcher answers capability fetches from an in-memory map keyed by
// document URI and counts every call.
type CountingFetcher struct {
	mu    sync.Mutex
	docs  map[string][]string
	err   error
	delay time.Duration
	calls atomic.Int32
}

// NewCountingFetcher creates an empty fetcher.
func NewCountingFetcher() *CountingFetcher {
	return &CountingFetcher{docs: make(map[string][]string)}
}

// Set registers the paths returned for uri.
func (f *CountingFetcher) Set(uri string, paths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[uri] = paths
}

// SetError makes every fetch fail with err; nil restores normal answers.
func (f *CountingFetcher) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// SetDelay makes every fetch take at least d.
func (f *CountingFetcher) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Calls returns the number of Fetch calls so far.
func (f *CountingFetcher) Calls() int {
	return int(f.calls.Load())
}

// Fetch returns the paths registered for uri.
func (f *CountingFetcher) Fetch(ctx context.Context, uri *url.URL) ([]string, error) {
	f.calls.Add(1)

	f.mu.Lock()
	paths, ok := f.docs[uri.String()]
	err, delay := f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no capability document at %s", uri)
	}
	return append([]string(nil), paths...), nil
}
