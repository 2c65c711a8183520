package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	git "github.com/go-git/go-git/v5"
)

// CloneFunc materializes a repository at dir. Swapped for a fixture writer
// in tests.
type CloneFunc func(ctx context.Context, url, dir string) error

func gitClone(ctx context.Context, url, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		return fmt.Errorf("source: clone %s: %w", url, err)
	}
	return nil
}

// CloneCache maps repository URL to a local shallow clone so every source
// referencing the same repository shares one checkout. The cache owns the
// temporary directories and removes them in Close; callers must not retain
// paths past the cache's lifetime.
//
// Each entry carries its own lock: concurrent first-time requests for one
// URL block on the entry while the first caller clones, instead of cloning
// redundantly or serializing unrelated URLs behind a global lock.
type CloneCache struct {
	mu      sync.Mutex
	entries map[string]*cloneEntry
	clone   CloneFunc
	log     *slog.Logger
}

type cloneEntry struct {
	mu   sync.Mutex
	done bool
	path string
	err  error
}

// NewCloneCache creates a cache using git for cloning.
func NewCloneCache(log *slog.Logger) *CloneCache {
	if log == nil {
		log = slog.Default()
	}
	return &CloneCache{
		entries: make(map[string]*cloneEntry),
		clone:   gitClone,
		log:     log,
	}
}

// NewCloneCacheWithFunc creates a cache with a custom clone function.
func NewCloneCacheWithFunc(clone CloneFunc, log *slog.Logger) *CloneCache {
	c := NewCloneCache(log)
	c.clone = clone
	return c
}

// Get returns the local path of the clone for url, cloning on first use.
// A failed clone is cached for the lifetime of the cache: the run that saw
// the failure should not hammer the remote again.
func (c *CloneCache) Get(ctx context.Context, url string) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[url]
	if !ok {
		e = &cloneEntry{}
		c.entries[url] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return e.path, e.err
	}
	e.done = true

	dir, err := os.MkdirTemp("", "docsnips-clone-*")
	if err != nil {
		e.err = fmt.Errorf("source: tempdir: %w", err)
		return "", e.err
	}

	c.log.Info("cloning repository", "url", url, "dir", dir)
	if err := c.clone(ctx, url, dir); err != nil {
		os.RemoveAll(dir)
		e.err = err
		return "", e.err
	}
	e.path = dir
	return e.path, nil
}

// Close removes every clone directory. Safe to call more than once.
func (c *CloneCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, e := range c.entries {
		e.mu.Lock()
		if e.path != "" {
			if err := os.RemoveAll(e.path); err != nil {
				c.log.Warn("clone cleanup failed", "url", url, "error", err)
			}
			e.path = ""
		}
		e.mu.Unlock()
		delete(c.entries, url)
	}
}
