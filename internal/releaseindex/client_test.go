package releaseindex

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/terassyi/dotnetacquire/internal/model"
)

var sampleDoc = model.IndexDocument{
	ReleasesIndex: []model.ReleaseIndexEntry{
		{ChannelVersion: "8.0", LatestSdk: "8.0.100"},
	},
}

const sampleIndexBody = `{
	"releases-index": [
		{"channel-version": "8.0", "latest-sdk": "8.0.100", "latest-runtime": "8.0.0"},
		{"channel-version": "9.0", "latest-sdk": "9.0.100", "latest-runtime": "9.0.0"}
	]
}`

func TestClient_Fetch_NoCacheBlocksOnNetwork(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleIndexBody)
	}))
	defer srv.Close()

	c, err := New(Options{IndexURL: srv.URL, CachePath: filepath.Join(t.TempDir(), "releases.json"), CacheTTL: time.Hour})
	require.NoError(t, err)

	doc, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.ReleasesIndex, 2)
	assert.Equal(t, "8.0", doc.ReleasesIndex[0].ChannelVersion)
}

func TestClient_Fetch_WritesCacheFile(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleIndexBody)
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "releases.json")
	c, err := New(Options{IndexURL: srv.URL, CachePath: cachePath, CacheTTL: time.Hour})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, cachePath)
}

func TestClient_Fetch_FreshCacheServedWithoutBlocking(t *testing.T) {
	t.Parallel()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, sampleIndexBody)
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "releases.json")
	c, err := New(Options{IndexURL: srv.URL, CachePath: cachePath, CacheTTL: time.Hour})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), atomic.LoadInt64(&hits))

	doc, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.ReleasesIndex, 2)

	// the fresh-cache path triggers an async background refresh;
	// give it a moment to land before asserting on the hit count.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&hits) >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestClient_Fetch_StaleCacheBlocksOnRefetch(t *testing.T) {
	t.Parallel()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, sampleIndexBody)
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "releases.json")
	c, err := New(Options{IndexURL: srv.URL, CachePath: cachePath, CacheTTL: time.Nanosecond})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

func TestClient_Fetch_FailedFetchFallsBackToStaleCache(t *testing.T) {
	t.Parallel()
	var failNext atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failNext.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, sampleIndexBody)
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "releases.json")
	c, err := New(Options{IndexURL: srv.URL, CachePath: cachePath, CacheTTL: time.Nanosecond})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	failNext.Store(true)
	doc, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.ReleasesIndex, 2)
}

func TestClient_Fetch_NoCacheAndFetchFailsReturnsError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(Options{IndexURL: srv.URL, CachePath: filepath.Join(t.TempDir(), "releases.json"), CacheTTL: time.Hour})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.Error(t, err)
}

func TestClient_Fetch_DropsInvalidEntries(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"releases-index": [
			{"channel-version": "8.0", "latest-sdk": "8.0.100"},
			{"latest-sdk": "9.0.100"},
			{"channel-version": ""}
		]}`)
	}))
	defer srv.Close()

	c, err := New(Options{IndexURL: srv.URL, CachePath: filepath.Join(t.TempDir(), "releases.json"), CacheTTL: time.Hour})
	require.NoError(t, err)

	doc, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.ReleasesIndex, 1)
	assert.Equal(t, "8.0", doc.ReleasesIndex[0].ChannelVersion)
}

func TestClient_New_InvalidProxyURLFails(t *testing.T) {
	t.Parallel()
	_, err := New(Options{ProxyURL: "://not-a-url"})
	require.Error(t, err)
}

func TestChannelReleasesURL(t *testing.T) {
	t.Parallel()
	got := ChannelReleasesURL("8.0")
	assert.Equal(t, "https://builds.dotnet.microsoft.com/dotnet/release-metadata/8.0/releases.json", got)
}

func TestClient_FetchChannelReleases_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"channel-version": "8.0", "releases": [{"sdk": {"version": "8.0.100"}, "runtime": {"version": "8.0.0"}}]}`)
	}))
	defer srv.Close()

	c, err := New(Options{})
	require.NoError(t, err)

	doc, err := c.FetchChannelReleases(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "8.0", doc.ChannelVersion)
	require.Len(t, doc.Releases, 1)
	assert.Equal(t, "8.0.100", doc.Releases[0].Sdk.Version)
}

func TestClient_FetchChannelReleases_HTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(Options{})
	require.NoError(t, err)

	_, err = c.FetchChannelReleases(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_FetchChannelReleases_InvalidJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	c, err := New(Options{})
	require.NoError(t, err)

	_, err = c.FetchChannelReleases(context.Background(), srv.URL)
	require.Error(t, err)
}

// Whatever the on-disk cache holds after a run of fetches, it must
// match the document from the last successful network response: a
// stale-while-revalidate cache never drifts from the last good fetch.
func TestClient_Fetch_CacheAlwaysMatchesLastSuccessfulFetch(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		var lastGoodSdk atomic.Value
		lastGoodSdk.Store("8.0.100")

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"releases-index": [{"channel-version": "8.0", "latest-sdk": "%s", "latest-runtime": "8.0.0"}]}`, lastGoodSdk.Load())
		}))
		defer srv.Close()

		cachePath := filepath.Join(t.TempDir(), "releases.json")
		c, err := New(Options{IndexURL: srv.URL, CachePath: cachePath, CacheTTL: 0})
		require.NoError(rt, err)

		calls := rapid.IntRange(1, 4).Draw(rt, "calls")
		for i := 0; i < calls; i++ {
			sdk := rapid.StringMatching(`[0-9]\.[0-9]\.[0-9]{1,3}`).Draw(rt, "sdk")
			lastGoodSdk.Store(sdk)
			_, err := c.Fetch(context.Background())
			require.NoError(rt, err)
		}

		envelope, err := c.readCache()
		require.NoError(rt, err)
		require.Len(rt, envelope.Document.ReleasesIndex, 1)
		assert.Equal(rt, lastGoodSdk.Load(), envelope.Document.ReleasesIndex[0].LatestSdk)
	})
}

func TestClient_ReadCache_MissingCachePathConfiguredError(t *testing.T) {
	t.Parallel()
	c, err := New(Options{})
	require.NoError(t, err)

	_, err = c.readCache()
	require.Error(t, err)
}

func TestClient_WriteCache_NoCachePathIsNoOp(t *testing.T) {
	t.Parallel()
	c, err := New(Options{})
	require.NoError(t, err)

	require.NoError(t, c.writeCache(nil))
}

func TestClient_WriteCache_AtomicReplace(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "nested", "releases.json")
	c, err := New(Options{CachePath: cachePath})
	require.NoError(t, err)

	require.NoError(t, c.writeCache(&sampleDoc))

	_, err = os.Stat(cachePath + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should not survive a successful write")

	envelope, err := c.readCache()
	require.NoError(t, err)
	assert.Len(t, envelope.Document.ReleasesIndex, 1)
}
