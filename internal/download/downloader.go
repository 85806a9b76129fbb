// Package download fetches SDK/runtime archives over HTTP and
// verifies them against a model.Checksum, reporting progress through
// a context-carried ProgressCallback.
package download

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/terassyi/dotnetacquire/internal/checksum"
	"github.com/terassyi/dotnetacquire/internal/model"
)

// Downloader defines the interface for downloading and verifying artifacts.
type Downloader interface {
	// Download downloads a file from the given URL to destPath.
	// Returns the path to the downloaded file.
	Download(ctx context.Context, url, destPath string) (string, error)

	// Verify verifies the checksum of a downloaded file.
	// cs can be nil (skip verification), have a direct value, or a URL to fetch.
	Verify(ctx context.Context, filePath string, cs *model.Checksum) error
}

// httpDownloader implements Downloader using HTTP.
type httpDownloader struct {
	client *http.Client
}

// NewDownloader creates a new Downloader.
func NewDownloader() Downloader {
	return &httpDownloader{
		client: http.DefaultClient,
	}
}

// Download downloads a file from the given URL to destPath. Returns
// the path to the downloaded file. If the context carries a
// ProgressCallback, it is invoked as bytes are written.
func (d *httpDownloader) Download(ctx context.Context, url, destPath string) (string, error) {
	slog.Debug("downloading file", "url", url, "dest", destPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download: HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	cb := CallbackFromContext[ProgressCallback](ctx)
	var w io.Writer = f
	if cb != nil {
		w = &progressWriter{w: f, total: resp.ContentLength, cb: cb}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	slog.Debug("download completed", "path", destPath)
	return destPath, nil
}

// progressWriter wraps a writer and reports cumulative bytes written.
type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	cb      ProgressCallback
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.cb(p.written, p.total)
	return n, err
}

// Verify verifies the checksum of a downloaded file.
// cs can be nil (skip verification), have a direct value, or a URL to fetch.
func (d *httpDownloader) Verify(ctx context.Context, filePath string, cs *model.Checksum) error {
	if cs == nil {
		slog.Debug("no checksum specified, skipping verification")
		return nil
	}

	slog.Debug("verifying checksum", "file", filePath)

	var expected checksum.Digest
	var algorithm checksum.Algorithm

	switch {
	case cs.Value != "":
		alg, digest, err := checksum.Parse(cs.Value)
		if err != nil {
			return err
		}
		algorithm = alg
		expected = digest
	case cs.URL != "":
		filename := filepath.Base(filePath)
		if cs.FilePattern != "" {
			filename = cs.FilePattern
		}

		alg, digest, err := d.fetchChecksumFromURL(ctx, cs.URL, filename)
		if err != nil {
			return err
		}
		algorithm = alg
		expected = digest
	default:
		slog.Debug("no checksum value or URL specified, skipping verification")
		return nil
	}

	if err := checksum.Verify(filePath, algorithm, expected); err != nil {
		return err
	}

	slog.Debug("checksum verified", "algorithm", algorithm)
	return nil
}

// fetchChecksumFromURL fetches a checksums file from URL and extracts the hash for the given filename.
func (d *httpDownloader) fetchChecksumFromURL(ctx context.Context, url, filename string) (checksum.Algorithm, checksum.Digest, error) {
	slog.Debug("fetching checksum file", "url", url, "filename", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch checksum file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch checksum file: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read checksum file: %w", err)
	}

	algorithm, digest, err := checksum.ParseFile(body, filename)
	if err == nil {
		slog.Debug("found checksum for file", "file", filename, "algorithm", algorithm)
		return algorithm, digest, nil
	}

	// ParseFile requires a recognized format; fall back to the
	// simple whitespace-separated scan for partial/odd files.
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		hash, file := parseChecksumLine(line)
		if file == filename || filepath.Base(file) == filename {
			algo := checksum.DetectAlgorithm(hash)
			if algo == "" {
				return "", "", fmt.Errorf("could not determine hash algorithm for %q", hash)
			}
			return algo, checksum.Digest(hash), nil
		}
	}

	return "", "", fmt.Errorf("checksum for %q not found in checksums file", filename)
}

// parseChecksumLine parses a line from a checksums file.
// Supports formats:
// - "<hash>  <filename>"
// - "<hash> *<filename>"
// - "<hash>  *<filename>"
func parseChecksumLine(line string) (hash, filename string) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", ""
	}

	hash = parts[0]
	filename = parts[1]
	filename = strings.TrimPrefix(filename, "*")

	return hash, filename
}
