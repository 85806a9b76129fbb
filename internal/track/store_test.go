package track

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/terassyi/dotnetacquire/internal/model"
)

func TestLoad_MissingFileReturnsEmptyDocument(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "tracking.json"))

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Installs)
}

func TestLoad_CorruptFileReturnsHintedError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := New(path)
	_, err := store.Load()
	assert.Error(t, err)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nested", "tracking.json"))

	doc, err := store.Load()
	require.NoError(t, err)
	doc.MarkInstalling("abc123", "8.0.100", model.ArchX64, model.ModeSDK, model.InstallLocal, "/data/.dotnet/8.0.100")
	require.NoError(t, store.Save(doc))

	reloaded, err := store.Load()
	require.NoError(t, err)
	rec, ok := reloaded.Get("abc123")
	require.True(t, ok)
	assert.Equal(t, model.TrackInstalling, rec.State)
	assert.Equal(t, "8.0.100", rec.Version)
}

func TestDocument_MarkInstalledRequiresExistingRecord(t *testing.T) {
	doc := &Document{Installs: make(map[model.InstallID]*model.InstallRecord)}
	assert.Error(t, doc.MarkInstalled("missing"))

	doc.MarkInstalling("id1", "8.0.100", model.ArchX64, model.ModeSDK, model.InstallLocal, "/dir")
	require.NoError(t, doc.MarkInstalled("id1"))
	rec, _ := doc.Get("id1")
	assert.Equal(t, model.TrackInstalled, rec.State)
}

func TestDocument_MarkPartialIsNoOpForMissingID(t *testing.T) {
	doc := &Document{Installs: make(map[model.InstallID]*model.InstallRecord)}
	doc.MarkPartial("missing") // must not panic
	_, ok := doc.Get("missing")
	assert.False(t, ok)
}

// A tracking record for a given id must always be in exactly one of
// installing/installed/partial, or absent entirely: no sequence of
// Mark*/Remove calls should ever leave two states alive for the same
// id, and a failed transition must not fabricate a record.
func TestDocument_StateIsAlwaysASingleValidVariant(t *testing.T) {
	const id model.InstallID = "contested-id"

	rapid.Check(t, func(rt *rapid.T) {
		doc := &Document{Installs: make(map[model.InstallID]*model.InstallRecord)}
		steps := rapid.IntRange(1, 20).Draw(rt, "steps")

		for i := 0; i < steps; i++ {
			op := rapid.IntRange(0, 3).Draw(rt, "op")
			switch op {
			case 0:
				doc.MarkInstalling(id, "8.0.100", model.ArchX64, model.ModeSDK, model.InstallLocal, "/dir")
			case 1:
				_ = doc.MarkInstalled(id)
			case 2:
				doc.MarkPartial(id)
			case 3:
				doc.Remove(id)
			}

			rec, ok := doc.Get(id)
			if !ok {
				continue
			}
			validStates := rec.State == model.TrackInstalling || rec.State == model.TrackInstalled || rec.State == model.TrackPartial
			assert.True(rt, validStates, "record must be in exactly one known state, got %q", rec.State)
		}
	})
}

func TestDocument_RemoveAndReset(t *testing.T) {
	doc := &Document{Installs: make(map[model.InstallID]*model.InstallRecord)}
	doc.MarkInstalling("id1", "8.0.100", model.ArchX64, model.ModeSDK, model.InstallLocal, "/dir")
	doc.MarkInstalling("id2", "9.0.100", model.ArchX64, model.ModeSDK, model.InstallLocal, "/dir2")

	doc.Remove("id1")
	_, ok := doc.Get("id1")
	assert.False(t, ok)

	doc.Reset()
	assert.Empty(t, doc.Installs)
}
