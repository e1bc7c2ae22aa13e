package snapshot

import (
	"strings"
	"testing"

	apperrors "uigen/internal/errors"
	"uigen/internal/storage"
	"uigen/internal/vfs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, opts Options) *Store {
	t.Helper()
	db, err := storage.Open("", true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := New(db, opts, nil)
	require.NoError(t, err)
	return store
}

func tree(t *testing.T, files map[string]string) map[string]vfs.SerializedNode {
	t.Helper()
	fs := vfs.New()
	require.NoError(t, fs.Deserialize(files))
	return fs.Serialize()
}

func TestStore_PutGet(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantCompressed bool
	}{
		{"small stored raw", "tiny", false},
		{"large compressed", strings.Repeat("export const x = 1;\n", 200), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupStore(t, DefaultOptions())
			nodes := tree(t, map[string]string{"/App.jsx": tt.content, "/lib/util.js": "u"})

			hash, err := store.Put(nodes)
			require.NoError(t, err)
			assert.Len(t, hash, 64)

			meta, err := store.Meta(hash)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCompressed, meta.Compressed)
			assert.Equal(t, uint32(1), meta.RefCount)
			assert.Equal(t, len(nodes), meta.Nodes)
			if tt.wantCompressed {
				assert.Less(t, meta.StoredSize, meta.Size)
			}

			store.cache.Purge()
			got, err := store.Get(hash)
			require.NoError(t, err)
			assert.Equal(t, nodes, got)
		})
	}
}

func TestStore_Dedupe(t *testing.T) {
	store := setupStore(t, DefaultOptions())
	a := tree(t, map[string]string{"/a.txt": "same"})
	b := tree(t, map[string]string{"/a.txt": "same"})

	h1, err := store.Put(a)
	require.NoError(t, err)
	h2, err := store.Put(b)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	meta, err := store.Meta(h1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), meta.RefCount)

	h3, err := store.Put(tree(t, map[string]string{"/a.txt": "different"}))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestStore_Release(t *testing.T) {
	store := setupStore(t, DefaultOptions())
	nodes := tree(t, map[string]string{"/a.txt": "x"})

	hash, err := store.Put(nodes)
	require.NoError(t, err)
	_, err = store.Put(nodes)
	require.NoError(t, err)

	require.NoError(t, store.Release(hash))
	_, err = store.Get(hash)
	require.NoError(t, err, "one reference is still held")

	require.NoError(t, store.Release(hash))
	_, err = store.Get(hash)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
	assert.True(t, apperrors.Is(store.Release(hash), apperrors.ErrorTypeNotFound))
}

func TestStore_GetIsolation(t *testing.T) {
	store := setupStore(t, DefaultOptions())
	hash, err := store.Put(tree(t, map[string]string{"/a.txt": "x"}))
	require.NoError(t, err)

	got, err := store.Get(hash)
	require.NoError(t, err)
	delete(got, "/a.txt")

	again, err := store.Get(hash)
	require.NoError(t, err)
	assert.Contains(t, again, "/a.txt")
}

func TestStore_InvalidHash(t *testing.T) {
	store := setupStore(t, DefaultOptions())
	_, err := store.Get("not-a-hash")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}
