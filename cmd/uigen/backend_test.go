package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"uigen/client"
	"uigen/internal/app"
	"uigen/internal/config"
	"uigen/internal/tools"
	"uigen/internal/vfs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	c := config.Default()
	c.Database.InMemory = true
	a, err := app.New(c, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func backends(t *testing.T) map[string]backend {
	local := newLocalBackend(newTestApp(t))

	srv := httptest.NewServer(newTestApp(t).Handler())
	t.Cleanup(srv.Close)
	remote := &remoteBackend{Client: client.New(srv.URL), limits: vfs.DefaultLimits()}

	return map[string]backend{"local": local, "remote": remote}
}

func TestBackend_Do(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p, err := b.CreateProject(ctx, "demo", map[string]string{"/a.txt": "a"})
			require.NoError(t, err)

			err = b.Do(ctx, p.ID, "add b", func(fs *vfs.FileSystem) error {
				_, err := fs.Create("/b.txt", "b")
				return err
			})
			require.NoError(t, err)

			// A failing edit still keeps what it changed.
			boom := errors.New("boom")
			err = b.Do(ctx, p.ID, "partial", func(fs *vfs.FileSystem) error {
				if _, err := fs.Create("/c.txt", "c"); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			// No change, no revision.
			err = b.Do(ctx, p.ID, "noop", func(fs *vfs.FileSystem) error { return nil })
			require.NoError(t, err)

			got, err := b.GetProject(ctx, p.ID)
			require.NoError(t, err)
			require.Len(t, got.History, 3)
			assert.Equal(t, "add b", got.History[1].Note)
			assert.Equal(t, "partial", got.History[2].Note)

			out, err := b.View(ctx, p.ID, "/", nil)
			require.NoError(t, err)
			assert.Equal(t, "[FILE] a.txt\n[FILE] b.txt\n[FILE] c.txt", out)
		})
	}
}

func TestBackend_ToolsAndDiff(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p, err := b.CreateProject(ctx, "demo", map[string]string{"/a.txt": "one"})
			require.NoError(t, err)

			args, _ := json.Marshal(map[string]any{"command": "str_replace", "path": "/a.txt", "old_str": "one", "new_str": "two"})
			res, err := b.CallTool(ctx, p.ID, tools.EditorTool, args)
			require.NoError(t, err)
			assert.False(t, res.IsError)

			diffs, err := b.Diff(ctx, p.ID, p.Revision, "")
			require.NoError(t, err)
			require.Len(t, diffs, 1)
			assert.Equal(t, 1, diffs[0].Result.Stats.Additions)
			assert.Equal(t, 1, diffs[0].Result.Stats.Deletions)

			_, err = b.CallTool(ctx, p.ID, "shell", json.RawMessage(`{}`))
			assert.Error(t, err)

			restored, err := b.Restore(ctx, p.ID, p.Revision)
			require.NoError(t, err)
			assert.Equal(t, p.Revision, restored.Revision)
		})
	}
}
