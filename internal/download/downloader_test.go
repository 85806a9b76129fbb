package download

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terassyi/dotnetacquire/internal/model"
)

func TestDownloader_Download_Success(t *testing.T) {
	content := []byte("dotnet sdk archive bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "archive.tar.gz")

	d := NewDownloader()
	var progressCalls [][2]int64
	ctx := WithCallback(context.Background(), ProgressCallback(func(written, total int64) {
		progressCalls = append(progressCalls, [2]int64{written, total})
	}))

	path, err := d.Download(ctx, srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, path)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.NotEmpty(t, progressCalls, "progress callback should be invoked at least once")
	assert.Equal(t, int64(len(content)), progressCalls[len(progressCalls)-1][0])
}

func TestDownloader_Download_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader()
	_, err := d.Download(context.Background(), srv.URL, filepath.Join(dir, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestDownloader_Download_NoTmpFileLeftBehindOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "archive.tar.gz")
	d := NewDownloader()
	_, err := d.Download(context.Background(), srv.URL, dest)
	require.Error(t, err)

	_, statErr := os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloader_Verify_NilChecksumSkipsVerification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	d := NewDownloader()
	require.NoError(t, d.Verify(context.Background(), path, nil))
}

func TestDownloader_Verify_EmptyChecksumSkipsVerification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	d := NewDownloader()
	require.NoError(t, d.Verify(context.Background(), path, &model.Checksum{}))
}

func TestDownloader_Verify_DirectValueMatch(t *testing.T) {
	content := []byte("hello world")
	sum := fmt.Sprintf("%x", sha256.Sum256(content))

	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	d := NewDownloader()
	err := d.Verify(context.Background(), path, &model.Checksum{Value: "sha256:" + sum})
	require.NoError(t, err)
}

func TestDownloader_Verify_DirectValueMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	d := NewDownloader()
	err := d.Verify(context.Background(), path, &model.Checksum{
		Value: "sha256:0000000000000000000000000000000000000000000000000000000000000000",
	})
	require.Error(t, err)
}

func TestDownloader_Verify_URLChecksum(t *testing.T) {
	content := []byte("hello world")
	sum := fmt.Sprintf("%x", sha256.Sum256(content))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s  archive.tar.gz\n", sum)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "archive.tar.gz")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	d := NewDownloader()
	err := d.Verify(context.Background(), path, &model.Checksum{URL: srv.URL})
	require.NoError(t, err)
}

func TestDownloader_Verify_URLChecksumFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "archive.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	d := NewDownloader()
	err := d.Verify(context.Background(), path, &model.Checksum{URL: srv.URL})
	require.Error(t, err)
}

func TestParseChecksumLine(t *testing.T) {
	hash, file := parseChecksumLine("abc123  archive.tar.gz")
	assert.Equal(t, "abc123", hash)
	assert.Equal(t, "archive.tar.gz", file)

	hash, file = parseChecksumLine("abc123 *archive.tar.gz")
	assert.Equal(t, "abc123", hash)
	assert.Equal(t, "archive.tar.gz", file)

	hash, file = parseChecksumLine("not-enough-fields")
	assert.Empty(t, hash)
	assert.Empty(t, file)
}
