// Package releaseindex fetches, persists, and ages the remote
// release-index document, and the per-channel releases files needed
// for band resolution. It serves a stale-while-revalidate policy: a
// fresh-enough cached copy is returned immediately with a background
// refresh scheduled, a stale or absent copy blocks on a network fetch.
package releaseindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	errs "github.com/terassyi/dotnetacquire/internal/errs"
	"github.com/terassyi/dotnetacquire/internal/model"
)

const (
	defaultIndexURL    = "https://builds.dotnet.microsoft.com/dotnet/release-metadata/releases-index.json"
	defaultHTTPTimeout = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// IndexURL overrides the default release-index URL.
	IndexURL string

	// CachePath is where the fetched document is persisted
	// (<storage>/releases.json).
	CachePath string

	// CacheTTL is the max age at which a cached copy is served
	// without blocking on a refresh.
	CacheTTL time.Duration

	// ProxyURL, if set, routes requests through an HTTP proxy.
	ProxyURL string

	// Transport overrides the client's RoundTripper (tests inject a
	// fake transport here).
	Transport http.RoundTripper
}

// Client fetches and caches the release index.
type Client struct {
	indexURL  string
	cachePath string
	cacheTTL  time.Duration

	httpClient *http.Client

	mu          sync.Mutex
	refreshOnce bool
}

// New creates a Client from Options, applying defaults for anything
// left unset.
func New(opts Options) (*Client, error) {
	indexURL := opts.IndexURL
	if indexURL == "" {
		indexURL = defaultIndexURL
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport = &proxyTransport{proxyURL: proxyURL, base: transport}
	}

	return &Client{
		indexURL:  indexURL,
		cachePath: opts.CachePath,
		cacheTTL:  opts.CacheTTL,
		httpClient: &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: transport,
		},
	}, nil
}

// proxyTransport routes every request through a fixed HTTP proxy,
// adapted from the teacher's token-injecting tokenTransport: instead
// of rewriting a header, it rewrites the connection destination.
type proxyTransport struct {
	proxyURL *url.URL
	base     http.RoundTripper
}

func (t *proxyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport, ok := t.base.(*http.Transport)
	if !ok {
		return t.base.RoundTrip(req)
	}
	clone := transport.Clone()
	clone.Proxy = http.ProxyURL(t.proxyURL)
	return clone.RoundTrip(req)
}

// cacheEnvelope is what's actually persisted to disk: the document
// plus the fetch timestamp, so age can be computed without relying on
// the file's mtime (which survives copies/backups unreliably).
type cacheEnvelope struct {
	FetchedAt time.Time           `json:"fetchedAt"`
	Document  model.IndexDocument `json:"document"`
}

// Fetch implements the stale-while-revalidate contract: a persisted
// copy younger than cacheTTL is returned immediately with a
// background refresh scheduled; an older or absent copy blocks on a
// fresh fetch; a failing fetch falls back to any persisted copy.
func (c *Client) Fetch(ctx context.Context) (*model.IndexDocument, error) {
	envelope, ageErr := c.readCache()
	if ageErr == nil {
		age := time.Since(envelope.FetchedAt)
		if age < c.cacheTTL {
			go c.backgroundRefresh()
			return &envelope.Document, nil
		}
	}

	doc, err := c.fetchAndStore(ctx)
	if err != nil {
		if ageErr == nil {
			slog.Warn("release index fetch failed, serving stale cache", "error", err, "age", time.Since(envelope.FetchedAt))
			return &envelope.Document, nil
		}
		return nil, errs.NewReleaseIndexError(c.indexURL, "release index unavailable: no cache and fetch failed", err)
	}

	return doc, nil
}

// backgroundRefresh revalidates the cache without blocking a caller
// that was served a fresh-enough copy. Failures are logged, not
// surfaced: the caller already has its answer.
func (c *Client) backgroundRefresh() {
	c.mu.Lock()
	if c.refreshOnce {
		c.mu.Unlock()
		return
	}
	c.refreshOnce = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.refreshOnce = false
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()

	if _, err := c.fetchAndStore(ctx); err != nil {
		slog.Warn("background release index refresh failed", "error", err)
	}
}

func (c *Client) fetchAndStore(ctx context.Context) (*model.IndexDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var doc model.IndexDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode release index: %w", err)
	}

	doc.ReleasesIndex = filterValid(doc.ReleasesIndex)

	if err := c.writeCache(&doc); err != nil {
		slog.Warn("failed to persist release index cache", "error", err)
	}

	return &doc, nil
}

// filterValid drops entries missing channel-version or both
// latest-sdk and latest-runtime, per the parser contract.
func filterValid(entries []model.ReleaseIndexEntry) []model.ReleaseIndexEntry {
	out := make([]model.ReleaseIndexEntry, 0, len(entries))
	for _, e := range entries {
		if e.Valid() {
			out = append(out, e)
		}
	}
	return out
}

func (c *Client) readCache() (*cacheEnvelope, error) {
	if c.cachePath == "" {
		return nil, fmt.Errorf("no cache path configured")
	}
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		return nil, err
	}
	var envelope cacheEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// writeCache atomically replaces the persisted copy: write temp, then
// rename, matching the teacher's state store's save discipline.
func (c *Client) writeCache(doc *model.IndexDocument) error {
	if c.cachePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	envelope := cacheEnvelope{FetchedAt: time.Now(), Document: *doc}
	data, err := json.MarshalIndent(&envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal release index cache: %w", err)
	}

	tmpPath := c.cachePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.cachePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// ChannelReleasesURL derives the per-channel releases-file URL from a
// channel version, following the canonical release-metadata index's
// directory convention.
func ChannelReleasesURL(channelVersion string) string {
	return fmt.Sprintf("https://builds.dotnet.microsoft.com/dotnet/release-metadata/%s/releases.json", channelVersion)
}

// FetchChannelReleases fetches the per-channel releases file needed
// to resolve a band spec down to the highest patch within that band.
// This document is not cached on disk: it's only consulted during a
// band resolution, which is already a blocking path.
func (c *Client) FetchChannelReleases(ctx context.Context, releasesJSONURL string) (*model.ChannelReleasesDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesJSONURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.NewReleaseIndexError(releasesJSONURL, "failed to fetch channel releases file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewReleaseIndexError(releasesJSONURL, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	var doc model.ChannelReleasesDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errs.NewReleaseIndexError(releasesJSONURL, "failed to decode channel releases file", err)
	}

	return &doc, nil
}
