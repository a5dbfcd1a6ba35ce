package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.json")
	docPath := filepath.Join(tmpDir, "doc.txt")

	tr := New(cachePath, nil)

	require.NoError(t, os.WriteFile(docPath, []byte("content C"), 0644))

	changed, changeType, err := tr.HasChanged(docPath)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ChangeCreated, changeType)

	require.NoError(t, tr.UpdateDocumentInfo(docPath, nil))

	changed, changeType, err = tr.HasChanged(docPath)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, ChangeNone, changeType)

	require.NoError(t, os.WriteFile(docPath, []byte("content C2"), 0644))

	changed, changeType, err = tr.HasChanged(docPath)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ChangeModified, changeType)

	require.NoError(t, tr.UpdateDocumentInfo(docPath, nil))
	require.NoError(t, os.Remove(docPath))

	changed, changeType, err = tr.HasChanged(docPath)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ChangeDeleted, changeType)
}

func TestTracker_UntrackedMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	tr := New(filepath.Join(tmpDir, "cache.json"), nil)

	changed, changeType, err := tr.HasChanged(filepath.Join(tmpDir, "never-existed.txt"))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, ChangeNone, changeType)
}

func TestTracker_PersistsAcrossRestarts(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.json")
	docPath := filepath.Join(tmpDir, "doc.txt")

	require.NoError(t, os.WriteFile(docPath, []byte("stable content"), 0644))

	tr := New(cachePath, nil)
	require.NoError(t, tr.UpdateDocumentInfo(docPath, map[string]any{"title": "Doc"}))
	require.NoError(t, tr.Flush())

	// A fresh tracker over the same cache sees the file as unchanged.
	tr2 := New(cachePath, nil)
	assert.Equal(t, 1, tr2.Count())

	changed, changeType, err := tr2.HasChanged(docPath)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, ChangeNone, changeType)

	info, ok := tr2.GetDocumentInfo(docPath)
	require.True(t, ok)
	assert.Equal(t, "Doc", info.Metadata["title"])
	assert.NotEmpty(t, info.Metadata["mtime"])
}

func TestTracker_CorruptCacheStartsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.json")

	require.NoError(t, os.WriteFile(cachePath, []byte("{not json"), 0644))

	tr := New(cachePath, nil)
	assert.Equal(t, 0, tr.Count())
}

func TestTracker_UpdateMissingFilePurges(t *testing.T) {
	tmpDir := t.TempDir()
	docPath := filepath.Join(tmpDir, "doc.txt")

	tr := New(filepath.Join(tmpDir, "cache.json"), nil)

	require.NoError(t, os.WriteFile(docPath, []byte("x y z"), 0644))
	require.NoError(t, tr.UpdateDocumentInfo(docPath, nil))
	assert.Equal(t, 1, tr.Count())

	require.NoError(t, os.Remove(docPath))
	require.NoError(t, tr.UpdateDocumentInfo(docPath, nil))
	assert.Equal(t, 0, tr.Count())
}

func TestTracker_CleanupDeletedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	keep := filepath.Join(tmpDir, "keep.txt")
	gone := filepath.Join(tmpDir, "gone.txt")

	tr := New(filepath.Join(tmpDir, "cache.json"), nil)

	require.NoError(t, os.WriteFile(keep, []byte("keep"), 0644))
	require.NoError(t, os.WriteFile(gone, []byte("gone"), 0644))
	require.NoError(t, tr.UpdateDocumentInfo(keep, nil))
	require.NoError(t, tr.UpdateDocumentInfo(gone, nil))

	removed := tr.CleanupDeletedFiles(map[string]bool{keep: true})

	require.Len(t, removed, 1)
	assert.Contains(t, removed[0], "gone.txt")
	assert.Equal(t, 1, tr.Count())
}

func TestTracker_FlushEvery(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.json")
	docPath := filepath.Join(tmpDir, "doc.txt")

	tr := New(cachePath, nil, WithFlushEvery(2))

	require.NoError(t, os.WriteFile(docPath, []byte("v1"), 0644))
	require.NoError(t, tr.UpdateDocumentInfo(docPath, nil))

	_, err := os.Stat(cachePath)
	assert.True(t, os.IsNotExist(err), "cache should not be flushed after one update")

	require.NoError(t, os.WriteFile(docPath, []byte("v2"), 0644))
	require.NoError(t, tr.UpdateDocumentInfo(docPath, nil))

	_, err = os.Stat(cachePath)
	assert.NoError(t, err, "cache should be flushed after two updates")
}
