package project

import (
	"strings"
	"testing"
	"time"

	apperrors "uigen/internal/errors"
	"uigen/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open("", true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestStore_Create(t *testing.T) {
	store := setupStore(t)

	tests := []struct {
		name    string
		project *Project
		wantErr bool
	}{
		{name: "valid", project: &Project{Name: "  Landing page "}},
		{name: "empty name", project: &Project{Name: "   "}, wantErr: true},
		{name: "long name", project: &Project{Name: strings.Repeat("x", 201)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Create(tt.project)
			if tt.wantErr {
				assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, tt.project.ID)
			assert.Equal(t, "Landing page", tt.project.Name)
			assert.False(t, tt.project.CreatedAt.IsZero())

			got, err := store.Get(tt.project.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.project.Name, got.Name)
		})
	}
}

func TestStore_UpdateDeleteList(t *testing.T) {
	store := setupStore(t)

	older := &Project{Name: "older", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &Project{Name: "newer"}
	require.NoError(t, store.Create(older))
	require.NoError(t, store.Create(newer))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Name)

	newer.AddRevision(Revision{Hash: "abc", Files: 1, CreatedAt: time.Now()}, 0)
	require.NoError(t, store.Update(newer))
	got, err := store.Get(newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Revision)
	require.Len(t, got.History, 1)

	require.NoError(t, store.Delete(older.ID))
	_, err = store.Get(older.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestProject_AddRevision(t *testing.T) {
	p := &Project{Name: "p"}
	now := time.Now()

	var pruned []Revision
	for i, h := range []string{"h1", "h2", "h3", "h4"} {
		pruned = append(pruned, p.AddRevision(Revision{Hash: h, CreatedAt: now.Add(time.Duration(i) * time.Second)}, 2)...)
	}

	assert.Equal(t, "h4", p.Revision)
	require.Len(t, p.History, 2)
	assert.Equal(t, "h3", p.History[0].Hash)
	require.Len(t, pruned, 2)
	assert.Equal(t, "h1", pruned[0].Hash)
	assert.Equal(t, "h2", pruned[1].Hash)
}

func TestProject_FindRevision(t *testing.T) {
	p := &Project{History: []Revision{{Hash: "abc123"}, {Hash: "abd456"}, {Hash: "abc123"}}}

	rev, ok := p.FindRevision("abd")
	require.True(t, ok)
	assert.Equal(t, "abd456", rev.Hash)

	rev, ok = p.FindRevision("abc")
	assert.True(t, ok, "repeated hashes are the same revision")
	assert.Equal(t, "abc123", rev.Hash)

	_, ok = p.FindRevision("ab")
	assert.False(t, ok, "ambiguous prefix")
	_, ok = p.FindRevision("zz")
	assert.False(t, ok)
	_, ok = p.FindRevision("")
	assert.False(t, ok)
}
