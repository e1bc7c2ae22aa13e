package main

import (
	"context"
	"encoding/json"

	"uigen/client"
	"uigen/internal/api"
	"uigen/internal/app"
	"uigen/internal/diff"
	"uigen/internal/project"
	"uigen/internal/tools"
	"uigen/internal/vfs"
)

// backend is what the commands run against: the local database, or a
// server reached over HTTP.
type backend interface {
	CreateProject(ctx context.Context, name string, files map[string]string) (*project.Project, error)
	ListProjects(ctx context.Context) ([]*project.Project, error)
	GetProject(ctx context.Context, id string) (*project.Project, error)
	DeleteProject(ctx context.Context, id string) error
	Files(ctx context.Context, id string) (map[string]vfs.SerializedNode, error)
	View(ctx context.Context, id, path string, rng *vfs.ViewRange) (string, error)
	CallTool(ctx context.Context, id, name string, args json.RawMessage) (*tools.Result, error)
	Restore(ctx context.Context, id, ref string) (*project.Project, error)
	Diff(ctx context.Context, id, from, to string) ([]diff.FileDiff, error)

	// Do applies fn to the project's tree and records the result as one
	// revision; it satisfies watch.Target.
	Do(ctx context.Context, id, note string, fn func(fs *vfs.FileSystem) error) error
	Close() error
}

type localBackend struct {
	app  *app.App
	diff *diff.Engine
}

func newLocalBackend(a *app.App) *localBackend {
	return &localBackend{app: a, diff: diff.NewEngine(api.DiffContextLines)}
}

func (b *localBackend) CreateProject(ctx context.Context, name string, files map[string]string) (*project.Project, error) {
	return b.app.Sessions.Create(ctx, name, files)
}

func (b *localBackend) ListProjects(ctx context.Context) ([]*project.Project, error) {
	return b.app.Sessions.List(ctx)
}

func (b *localBackend) GetProject(ctx context.Context, id string) (*project.Project, error) {
	return b.app.Sessions.Get(ctx, id)
}

func (b *localBackend) DeleteProject(ctx context.Context, id string) error {
	return b.app.Sessions.Delete(ctx, id)
}

func (b *localBackend) Files(ctx context.Context, id string) (map[string]vfs.SerializedNode, error) {
	var nodes map[string]vfs.SerializedNode
	err := b.app.Sessions.View(ctx, id, func(fs *vfs.FileSystem) error {
		nodes = fs.Serialize()
		return nil
	})
	return nodes, err
}

func (b *localBackend) View(ctx context.Context, id, path string, rng *vfs.ViewRange) (string, error) {
	var out string
	err := b.app.Sessions.View(ctx, id, func(fs *vfs.FileSystem) error {
		var err error
		out, err = fs.ViewFile(path, rng)
		return err
	})
	return out, err
}

func (b *localBackend) CallTool(ctx context.Context, id, name string, args json.RawMessage) (*tools.Result, error) {
	var res tools.Result
	err := b.app.Sessions.Do(ctx, id, api.ToolNote(name, args), func(fs *vfs.FileSystem) error {
		var err error
		res, err = b.app.Dispatcher.Execute(fs, name, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (b *localBackend) Restore(ctx context.Context, id, ref string) (*project.Project, error) {
	return b.app.Sessions.Restore(ctx, id, ref)
}

func (b *localBackend) Diff(ctx context.Context, id, from, to string) ([]diff.FileDiff, error) {
	_, oldNodes, err := b.app.Sessions.Snapshot(ctx, id, from)
	if err != nil {
		return nil, err
	}
	_, newNodes, err := b.app.Sessions.Snapshot(ctx, id, to)
	if err != nil {
		return nil, err
	}
	return b.diff.Trees(api.FileContents(oldNodes), api.FileContents(newNodes)), nil
}

func (b *localBackend) Do(ctx context.Context, id, note string, fn func(fs *vfs.FileSystem) error) error {
	return b.app.Sessions.Do(ctx, id, note, fn)
}

func (b *localBackend) Close() error {
	return b.app.Close()
}

// remoteBackend edits through a server. Do fetches the tree, applies fn to a
// local copy and uploads the result, so concurrent writers on the server
// side win or lose as a whole.
type remoteBackend struct {
	*client.Client
	limits vfs.Limits
}

func (b *remoteBackend) Do(ctx context.Context, id, note string, fn func(fs *vfs.FileSystem) error) error {
	nodes, err := b.Files(ctx, id)
	if err != nil {
		return err
	}
	fs := vfs.New(vfs.WithLimits(b.limits))
	if err := fs.DeserializeFromNodes(nodes); err != nil {
		return err
	}

	before := fs.Version()
	fnErr := fn(fs)
	if fs.Version() == before {
		return fnErr
	}
	if _, err := b.ReplaceNodes(ctx, id, fs.Serialize(), note); err != nil {
		return err
	}
	return fnErr
}

func (b *remoteBackend) Close() error { return nil }
