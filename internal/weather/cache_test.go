package weather

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeFetcher struct {
	doc   []byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _, _ time.Time) ([]byte, error) {
	f.calls++
	return f.doc, f.err
}

var (
	start = time.Date(2024, 7, 6, 12, 0, 0, 0, time.Local)
	end   = time.Date(2024, 7, 13, 12, 0, 0, 0, time.Local)
)

func TestCachePathKeyedByWindow(t *testing.T) {
	s := NewStore("/var/cache/irrig", nil)
	want := filepath.Join("/var/cache/irrig", "cimis_2024-07-06_2024-07-13.json")
	if got := s.CachePath(start, end); got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}
}

func TestFetchOrLoadMissThenHit(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{doc: []byte(`{"Data":{}}`)}
	s := NewStore(dir, f)

	raw, cached, err := s.FetchOrLoad(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchOrLoad() error: %v", err)
	}
	if cached {
		t.Error("first call must miss the cache")
	}
	if string(raw) != `{"Data":{}}` {
		t.Errorf("raw = %q", raw)
	}
	if f.calls != 1 {
		t.Fatalf("fetcher calls = %d, want 1", f.calls)
	}

	// Second call within the same window must not touch the network.
	raw, cached, err = s.FetchOrLoad(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchOrLoad() second call error: %v", err)
	}
	if !cached {
		t.Error("second call must hit the cache")
	}
	if string(raw) != `{"Data":{}}` {
		t.Errorf("raw = %q", raw)
	}
	if f.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1 (cache hit must skip fetch)", f.calls)
	}
}

func TestFetchOrLoadDifferentWindowRefetches(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{doc: []byte(`{}`)}
	s := NewStore(dir, f)

	if _, _, err := s.FetchOrLoad(context.Background(), start, end); err != nil {
		t.Fatalf("FetchOrLoad() error: %v", err)
	}
	if _, _, err := s.FetchOrLoad(context.Background(), start.AddDate(0, 0, 1), end.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("FetchOrLoad() error: %v", err)
	}
	if f.calls != 2 {
		t.Errorf("fetcher calls = %d, want 2", f.calls)
	}
}

func TestFetchOrLoadPropagatesFetchError(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{err: ErrFetch}
	s := NewStore(dir, f)

	_, _, err := s.FetchOrLoad(context.Background(), start, end)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("FetchOrLoad() error = %v, want ErrFetch", err)
	}

	// No cache file may exist after a failed fetch.
	if _, err := os.Stat(s.CachePath(start, end)); err == nil {
		t.Error("cache file written despite fetch failure")
	}
}

func TestClientRequiresCredentials(t *testing.T) {
	c := NewClient("", "")
	_, err := c.Fetch(context.Background(), start, end)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("Fetch() error = %v, want ErrFetch", err)
	}
}
