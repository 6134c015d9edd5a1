package weather

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Store is a fetch-or-load file cache keyed by the inclusive window dates.
// Repeated runs within the same day hit the same file and skip the network
// entirely, so a rerun after a downstream failure is idempotent and free.
type Store struct {
	dir     string
	fetcher Fetcher
}

func NewStore(dir string, f Fetcher) *Store {
	return &Store{dir: dir, fetcher: f}
}

// CachePath returns the cache file for one window, e.g.
// "cimis_2024-07-06_2024-07-13.json".
func (s *Store) CachePath(start, end time.Time) string {
	name := fmt.Sprintf("cimis_%s_%s.json", start.Format(DateParam), end.Format(DateParam))
	return filepath.Join(s.dir, name)
}

// FetchOrLoad returns the raw document for the window, reading the cache file
// when present and fetching (then caching) otherwise. The second return
// reports whether the cache was hit.
func (s *Store) FetchOrLoad(ctx context.Context, start, end time.Time) ([]byte, bool, error) {
	path := s.CachePath(start, end)

	raw, err := os.ReadFile(path)
	if err == nil {
		log.Printf("weather: cache hit %s", path)
		return raw, true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("%w: read cache %s: %w", ErrFetch, path, err)
	}

	log.Printf("weather: cache miss, fetching %s..%s", start.Format(DateParam), end.Format(DateParam))
	raw, err = s.fetcher.Fetch(ctx, start, end)
	if err != nil {
		return nil, false, err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		log.Printf("weather: cannot create cache dir %s: %v", s.dir, err)
		return raw, false, nil
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		// A failed cache write is not fatal: the document is in hand, the
		// next run just refetches.
		log.Printf("weather: cannot write cache %s: %v", path, err)
	} else {
		log.Printf("weather: cached %s", path)
	}
	return raw, false, nil
}
