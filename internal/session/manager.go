// Package session keeps project file systems open in memory and persists
// them as they change.
//
// Each open project has exactly one Session holding its vfs.FileSystem. The
// Manager runs callers against a session one at a time, and after any call
// that mutated the tree it stores a new snapshot and appends a revision to
// the project, so the badger-backed state is never behind memory.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "uigen/internal/errors"
	"uigen/internal/project"
	"uigen/internal/snapshot"
	"uigen/internal/vfs"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

const (
	DefaultCacheSize    = 64
	DefaultHistoryLimit = 50
)

type Options struct {
	CacheSize    int        // open sessions kept in memory
	HistoryLimit int        // revisions kept per project
	Limits       vfs.Limits // policy for every loaded file system
}

func DefaultOptions() Options {
	return Options{
		CacheSize:    DefaultCacheSize,
		HistoryLimit: DefaultHistoryLimit,
		Limits:       vfs.DefaultLimits(),
	}
}

// Session is one open project. It is only touched under its project's lock.
type Session struct {
	projectID string
	fs        *vfs.FileSystem
	saved     uint64 // fs.Version() at the last persist
}

func (s *Session) ProjectID() string { return s.projectID }

type Manager struct {
	projects  *project.Store
	snapshots *snapshot.Store
	sessions  *lru.Cache[string, *Session]
	locks     *xsync.Map[string, *sync.Mutex] // per-project: held across load, fn and persist
	opts      Options
	logger    *zap.Logger
}

func NewManager(projects *project.Store, snapshots *snapshot.Store, opts Options, logger *zap.Logger) (*Manager, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		projects:  projects,
		snapshots: snapshots,
		locks:     xsync.NewMap[string, *sync.Mutex](),
		opts:      opts,
		logger:    logger,
	}
	sessions, err := lru.NewWithEvict[string, *Session](opts.CacheSize, func(id string, _ *Session) {
		m.logger.Debug("closed session", zap.String("project_id", id))
	})
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	m.sessions = sessions
	return m, nil
}

// Create stores a new project whose tree holds files (path -> content).
func (m *Manager) Create(ctx context.Context, name string, files map[string]string) (*project.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs := m.newFS("")
	if err := fs.Deserialize(files); err != nil {
		return nil, err
	}
	hash, err := m.snapshots.Put(fs.Serialize())
	if err != nil {
		return nil, err
	}

	p := &project.Project{Name: name}
	p.AddRevision(project.Revision{
		Hash:      hash,
		Files:     len(files),
		CreatedAt: time.Now().UTC(),
		Note:      "created",
	}, 0)
	p.CreatedAt = p.UpdatedAt
	if err := m.projects.Create(p); err != nil {
		m.release(hash)
		return nil, err
	}

	m.logger.Info("created project", zap.String("project_id", p.ID), zap.Int("files", len(files)))
	return p, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*project.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.projects.Get(id)
}

func (m *Manager) List(ctx context.Context) ([]*project.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.projects.List()
}

// Delete removes the project, its open session and its snapshots.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := m.lock(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := m.projects.Get(id)
	if err != nil {
		return err
	}
	if err := m.projects.Delete(id); err != nil {
		return err
	}
	m.sessions.Remove(id)
	for _, rev := range p.History {
		m.release(rev.Hash)
	}
	m.logger.Info("deleted project", zap.String("project_id", id))
	return nil
}

// Do runs fn against the project's file system with exclusive access. If fn
// changed the tree, a revision described by note is saved before Do returns,
// even when fn also returned an error.
func (m *Manager) Do(ctx context.Context, id, note string, fn func(fs *vfs.FileSystem) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := m.lock(id)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.session(id)
	if err != nil {
		return err
	}

	fnErr := fn(s.fs)
	if s.fs.Version() != s.saved {
		if err := m.persist(s, note); err != nil {
			return err
		}
	}
	return fnErr
}

// View runs fn with exclusive access but never persists. fn must not
// mutate the tree.
func (m *Manager) View(ctx context.Context, id string, fn func(fs *vfs.FileSystem) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := m.lock(id)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.session(id)
	if err != nil {
		return err
	}
	return fn(s.fs)
}

// Snapshot returns the tree of a project revision, given by full hash or
// unique prefix. An empty ref selects the current revision.
func (m *Manager) Snapshot(ctx context.Context, id, ref string) (project.Revision, map[string]vfs.SerializedNode, error) {
	if err := ctx.Err(); err != nil {
		return project.Revision{}, nil, err
	}
	p, err := m.projects.Get(id)
	if err != nil {
		return project.Revision{}, nil, err
	}
	if ref == "" {
		ref = p.Revision
	}
	rev, ok := p.FindRevision(ref)
	if !ok {
		return project.Revision{}, nil, apperrors.NotFoundf("revision not found: %s", ref)
	}
	nodes, err := m.snapshots.Get(rev.Hash)
	if err != nil {
		return project.Revision{}, nil, err
	}
	return rev, nodes, nil
}

// Restore replaces the project's tree with an earlier revision, recorded as
// a new revision.
func (m *Manager) Restore(ctx context.Context, id, ref string) (*project.Project, error) {
	rev, nodes, err := m.Snapshot(ctx, id, ref)
	if err != nil {
		return nil, err
	}
	err = m.Do(ctx, id, "restore "+short(rev.Hash), func(fs *vfs.FileSystem) error {
		return fs.DeserializeFromNodes(nodes)
	})
	if err != nil {
		return nil, err
	}
	return m.projects.Get(id)
}

// Forget drops the open session for id; the next call reloads it from
// storage.
func (m *Manager) Forget(id string) {
	m.sessions.Remove(id)
}

// Len is the number of open sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// session returns the open session for id, loading it from storage after a
// miss or an eviction. The caller holds m.lock(id), so a reload always sees
// the last persisted revision and never runs beside another copy.
func (m *Manager) session(id string) (*Session, error) {
	if s, ok := m.sessions.Get(id); ok {
		return s, nil
	}

	p, err := m.projects.Get(id)
	if err != nil {
		return nil, err
	}
	fs := m.newFS(id)
	if p.Revision != "" {
		nodes, err := m.snapshots.Get(p.Revision)
		if err != nil {
			return nil, fmt.Errorf("loading project %s: %w", id, err)
		}
		if err := fs.DeserializeFromNodes(nodes); err != nil {
			return nil, fmt.Errorf("loading project %s: %w", id, err)
		}
	}

	s := &Session{projectID: id, fs: fs, saved: fs.Version()}
	m.sessions.Add(id, s)
	m.logger.Debug("opened session", zap.String("project_id", id), zap.Int("nodes", fs.Len()))
	return s, nil
}

// persist stores the session's tree and appends it to the project history.
// The caller holds m.lock(s.projectID).
func (m *Manager) persist(s *Session, note string) error {
	p, err := m.projects.Get(s.projectID)
	if err != nil {
		return err
	}
	hash, err := m.snapshots.Put(s.fs.Serialize())
	if err != nil {
		return err
	}
	s.saved = s.fs.Version()

	if hash == p.Revision {
		// Edits cancelled out; keep the current revision.
		m.release(hash)
		return nil
	}

	pruned := p.AddRevision(project.Revision{
		Hash:      hash,
		Files:     len(s.fs.Files()),
		CreatedAt: time.Now().UTC(),
		Note:      note,
	}, m.opts.HistoryLimit)
	if err := m.projects.Update(p); err != nil {
		m.release(hash)
		return err
	}
	for _, rev := range pruned {
		m.release(rev.Hash)
	}

	m.logger.Debug("saved revision",
		zap.String("project_id", s.projectID),
		zap.String("revision", short(hash)),
		zap.String("note", note),
		zap.Int("pruned", len(pruned)),
	)
	return nil
}

func (m *Manager) lock(id string) *sync.Mutex {
	lock, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	return lock
}

func (m *Manager) newFS(id string) *vfs.FileSystem {
	limits := m.opts.Limits
	if limits.IsZero() {
		limits = vfs.DefaultLimits()
	}
	logger := m.logger
	if id != "" {
		logger = logger.With(zap.String("project_id", id))
	}
	return vfs.New(vfs.WithLimits(limits), vfs.WithLogger(logger))
}

func (m *Manager) release(hash string) {
	if err := m.snapshots.Release(hash); err != nil {
		m.logger.Warn("failed to release snapshot", zap.String("hash", hash), zap.Error(err))
	}
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
