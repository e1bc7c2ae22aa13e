package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"uigen/internal/api"
	"uigen/internal/diff"
	apperrors "uigen/internal/errors"
	"uigen/internal/project"
	"uigen/internal/session"
	"uigen/internal/snapshot"
	"uigen/internal/storage"
	"uigen/internal/tools"
	"uigen/internal/vfs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) *Client {
	t.Helper()
	db, err := storage.Open("", true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	snapshots, err := snapshot.New(db, snapshot.DefaultOptions(), nil)
	require.NoError(t, err)
	manager, err := session.NewManager(project.NewStore(db), snapshots, session.DefaultOptions(), nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	api.NewProjectHandler(manager, tools.NewDispatcher(nil), nil).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestClient_Projects(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	p, err := c.CreateProject(ctx, "demo", map[string]string{"/App.jsx": "app"})
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Name)
	assert.NotEmpty(t, p.Revision)

	got, err := c.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Revision, got.Revision)

	projects, err := c.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	require.NoError(t, c.DeleteProject(ctx, p.ID))

	_, err = c.GetProject(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestClient_CreateProjectRejected(t *testing.T) {
	c := setupClient(t)

	_, err := c.CreateProject(context.Background(), "demo", map[string]string{"/x.exe": "x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestClient_FilesAndTools(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()

	p, err := c.CreateProject(ctx, "demo", nil)
	require.NoError(t, err)

	defs, err := c.Tools(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 2)

	args, err := json.Marshal(map[string]any{"command": "create", "path": "/a.txt", "file_text": "l1\nl2\nl3"})
	require.NoError(t, err)
	res, err := c.CallTool(ctx, p.ID, tools.EditorTool, args)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "File created: /a.txt", res.Output)

	out, err := c.View(ctx, p.ID, "/a.txt", &vfs.ViewRange{Start: 2, End: 3})
	require.NoError(t, err)
	assert.Equal(t, "2\tl2\n3\tl3", out)

	nodes, err := c.ReplaceFiles(ctx, p.ID, map[string]string{"/b.txt": "b"}, "swap")
	require.NoError(t, err)
	assert.Contains(t, nodes, "/b.txt")
	assert.NotContains(t, nodes, "/a.txt")

	nodes, err = c.Files(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", *nodes["/b.txt"].Content)

	_, err = c.View(ctx, p.ID, "/a.txt", nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))

	nodes["/assets"] = vfs.SerializedNode{Type: vfs.DirectoryType, Name: "assets", Path: "/assets"}
	nodes, err = c.ReplaceNodes(ctx, p.ID, nodes, "add assets")
	require.NoError(t, err)
	assert.Equal(t, vfs.DirectoryType, nodes["/assets"].Type)
}

func TestClient_History(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()

	p, err := c.CreateProject(ctx, "demo", map[string]string{"/a.txt": "one"})
	require.NoError(t, err)

	_, err = c.ReplaceFiles(ctx, p.ID, map[string]string{"/a.txt": "two", "/b.txt": "b"}, "edit")
	require.NoError(t, err)

	revs, err := c.Revisions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "edit", revs[1].Note)

	diffs, err := c.Diff(ctx, p.ID, p.Revision[:8], "")
	require.NoError(t, err)
	require.Len(t, diffs, 2)
	assert.Equal(t, diff.Modified, diffs[0].Status)
	assert.Equal(t, diff.Added, diffs[1].Status)

	restored, err := c.Restore(ctx, p.ID, p.Revision[:8])
	require.NoError(t, err)
	assert.Equal(t, p.Revision, restored.Revision)

	out, err := c.View(ctx, p.ID, "/a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "1\tone", out)
}
