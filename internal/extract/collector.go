package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	appLog "orgcal/internal/log"
	"orgcal/internal/outline"
)

type cacheEntry struct {
	modTime time.Time
	entries []Entry
}

// Collector extracts entries from outline files and remembers the result per
// file until the file's modification time changes. The cache lives as long
// as the Collector.
type Collector struct {
	loc *time.Location

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewCollector creates a Collector resolving timestamps in loc.
func NewCollector(loc *time.Location) *Collector {
	return &Collector{
		loc:   loc,
		cache: make(map[string]cacheEntry),
	}
}

// CollectFile returns the entries of one file, re-parsing it only when its
// mtime differs from the cached one. Callers must not modify the result.
func (c *Collector) CollectFile(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	mtime := info.ModTime()

	c.mu.Lock()
	ce, ok := c.cache[path]
	c.mu.Unlock()
	if ok && ce.modTime.Equal(mtime) {
		return ce.entries, nil
	}

	doc, err := outline.ParseFile(path, c.loc)
	if err != nil {
		return nil, err
	}
	entries := FromDocument(doc, c.loc)
	appLog.Debug("extracted outline file", "path", path, "entries", len(entries))

	c.mu.Lock()
	c.cache[path] = cacheEntry{modTime: mtime, entries: entries}
	c.mu.Unlock()

	return entries, nil
}

// CollectFiles concatenates the entries of all files in order. The first
// unreadable file aborts the collection.
func (c *Collector) CollectFiles(paths []string) ([]Entry, error) {
	var out []Entry
	for _, p := range paths {
		entries, err := c.CollectFile(p)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", p, err)
		}
		out = append(out, entries...)
	}
	return out, nil
}

// CollectDir collects every outline file below dir.
func (c *Collector) CollectDir(dir string) ([]Entry, error) {
	files, err := FindFiles(dir)
	if err != nil {
		return nil, err
	}
	return c.CollectFiles(files)
}

// Invalidate drops every cached result and reports how many files were
// cached.
func (c *Collector) Invalidate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.cache)
	clear(c.cache)
	return n
}

// FindFiles lists all .org and .org_archive files below dir in lexical order.
func FindFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".org") || strings.HasSuffix(path, ".org_archive") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return files, nil
}
