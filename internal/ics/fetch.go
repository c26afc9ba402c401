package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"orgcal/internal/config"
	appLog "orgcal/internal/log"
)

// ErrNoCache is returned when the server answers 304 but nothing is cached.
var ErrNoCache = errors.New("not modified but no cached body available")

// FetchResult is the body of one subscribed feed.
type FetchResult struct {
	URL  string
	Body []byte

	// FromCache is set when the stored body was served instead of a fresh
	// download (304, network failure or non-OK status).
	FromCache bool
}

// Fetcher downloads ICS feeds with conditional requests and keeps the last
// good body per URL on disk.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching below cacheDir. An empty cacheDir
// means the user cache directory.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = config.ExpandPath("~/.cache/orgcal/ics")
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Fetch retrieves rawURL. Failures fall back to the cached body when there
// is one; only a failure with nothing cached is returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (FetchResult, error) {
	if rawURL == "" {
		return FetchResult{}, errors.New("feed URL is empty")
	}
	c := f.cacheFor(rawURL)
	stored := c.load()
	fallback := func(reason error) (FetchResult, error) {
		if len(stored.body) == 0 {
			return FetchResult{}, reason
		}
		appLog.Error("feed unavailable, serving cached copy", reason,
			"url", redactURL(rawURL),
			"cached_at", stored.meta.UpdatedAt,
		)
		return FetchResult{URL: rawURL, Body: stored.body, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if stored.meta.ETag != "" {
		req.Header.Set("If-None-Match", stored.meta.ETag)
	}
	if stored.meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", stored.meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if len(stored.body) == 0 {
			return FetchResult{}, ErrNoCache
		}
		appLog.Debug("feed not modified", "url", redactURL(rawURL))
		return FetchResult{URL: rawURL, Body: stored.body, FromCache: true}, nil

	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fallback(err)
		}
		meta := feedMeta{
			URL:          rawURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := c.save(meta, body); err != nil {
			appLog.Error("feed cache write failed", err, "url", redactURL(rawURL))
		}
		appLog.Debug("feed downloaded", "url", redactURL(rawURL), "bytes", len(body))
		return FetchResult{URL: rawURL, Body: body}, nil

	default:
		return fallback(fmt.Errorf("fetch %s: %s", redactURL(rawURL), resp.Status))
	}
}

// feedMeta is the conditional-request state stored next to a cached body.
type feedMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type storedFeed struct {
	meta feedMeta
	body []byte
}

// feedCache is the on-disk slot of one URL: <dir>/body.ics and meta.json.
type feedCache struct {
	dir string
}

func (f *Fetcher) cacheFor(rawURL string) feedCache {
	sum := sha256.Sum256([]byte(rawURL))
	return feedCache{dir: filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))}
}

// load returns whatever is cached; a missing or corrupt slot is empty.
func (c feedCache) load() storedFeed {
	var s storedFeed
	s.body, _ = os.ReadFile(filepath.Join(c.dir, "body.ics"))
	if data, err := os.ReadFile(filepath.Join(c.dir, "meta.json")); err == nil {
		_ = json.Unmarshal(data, &s.meta)
	}
	return s
}

// save writes the body before the metadata so validators never describe a
// body that is not on disk.
func (c feedCache) save(meta feedMeta, body []byte) error {
	if err := config.WriteFileAtomic(filepath.Join(c.dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(filepath.Join(c.dir, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only; feed URLs often embed secrets.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
