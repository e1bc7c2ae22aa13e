// Package snapshot stores serialized file systems by content hash.
//
// A snapshot is the JSON encoding of vfs.FileSystem.Serialize, keyed by the
// sha256 of that encoding. Identical trees share one blob; a reference count
// tracks how many revisions point at it and the blob is dropped when the
// last one is released. Blobs above a size threshold are zstd-compressed.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	apperrors "uigen/internal/errors"
	"uigen/internal/vfs"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Meta describes one stored snapshot.
type Meta struct {
	Hash       string    `json:"hash"`
	Size       int       `json:"size"`        // uncompressed bytes
	StoredSize int       `json:"stored_size"` // bytes on disk
	Nodes      int       `json:"nodes"`
	RefCount   uint32    `json:"ref_count"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

type Options struct {
	CacheSize       int // decoded snapshots kept in memory
	Level           int // zstd level, 1 fastest .. 4 best
	MinCompressSize int // blobs smaller than this are stored raw
}

func DefaultOptions() Options {
	return Options{
		CacheSize:       128,
		Level:           2,
		MinCompressSize: 512,
	}
}

type Store struct {
	db     *badger.DB
	cache  *lru.Cache[string, map[string]vfs.SerializedNode]
	codec  *codec
	logger *zap.Logger
	mu     sync.Mutex // serializes ref count updates
}

func New(db *badger.DB, opts Options, logger *zap.Logger) (*Store, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache, err := lru.New[string, map[string]vfs.SerializedNode](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	c, err := newCodec(opts.Level, opts.MinCompressSize)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, cache: cache, codec: c, logger: logger}, nil
}

// Put stores nodes and returns their hash. Storing a snapshot that already
// exists only takes another reference to it.
func (s *Store) Put(nodes map[string]vfs.SerializedNode) (string, error) {
	// encoding/json writes map keys sorted, so equal trees encode equally.
	data, err := json.Marshal(nodes)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	hash := hashBytes(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		meta, err := getMeta(txn, hash)
		if err == nil {
			meta.RefCount++
			return setMeta(txn, meta)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		blob, compressed := s.codec.compress(data)
		meta = Meta{
			Hash:       hash,
			Size:       len(data),
			StoredSize: len(blob),
			Nodes:      len(nodes),
			RefCount:   1,
			Compressed: compressed,
			CreatedAt:  time.Now().UTC(),
		}
		if err := txn.Set(dataKey(hash), blob); err != nil {
			return err
		}
		return setMeta(txn, meta)
	})
	if err != nil {
		return "", fmt.Errorf("storing snapshot: %w", err)
	}

	s.cache.Add(hash, maps.Clone(nodes))
	return hash, nil
}

// Get returns the snapshot stored under hash.
func (s *Store) Get(hash string) (map[string]vfs.SerializedNode, error) {
	if !isValidHash(hash) {
		return nil, apperrors.ValidationError(fmt.Sprintf("invalid snapshot hash: %q", hash), nil)
	}
	if nodes, ok := s.cache.Get(hash); ok {
		return maps.Clone(nodes), nil
	}

	var (
		meta Meta
		blob []byte
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if meta, err = getMeta(txn, hash); err != nil {
			return err
		}
		item, err := txn.Get(dataKey(hash))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperrors.NotFoundf("snapshot not found: %s", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	data := blob
	if meta.Compressed {
		if data, err = s.codec.decompress(blob); err != nil {
			return nil, fmt.Errorf("decompressing snapshot %s: %w", hash, err)
		}
	}
	if hashBytes(data) != hash {
		return nil, apperrors.Internal(fmt.Sprintf("snapshot hash mismatch: %s", hash))
	}

	var nodes map[string]vfs.SerializedNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", hash, err)
	}
	s.cache.Add(hash, nodes)
	return maps.Clone(nodes), nil
}

// Meta returns the stored metadata for hash.
func (s *Store) Meta(hash string) (Meta, error) {
	var meta Meta
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		meta, err = getMeta(txn, hash)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Meta{}, apperrors.NotFoundf("snapshot not found: %s", hash)
	}
	return meta, err
}

// Release drops one reference to hash, deleting the snapshot when none are
// left.
func (s *Store) Release(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted bool
	err := s.db.Update(func(txn *badger.Txn) error {
		meta, err := getMeta(txn, hash)
		if err != nil {
			return err
		}
		if meta.RefCount > 1 {
			meta.RefCount--
			return setMeta(txn, meta)
		}
		deleted = true
		if err := txn.Delete(dataKey(hash)); err != nil {
			return err
		}
		return txn.Delete(metaKey(hash))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.NotFoundf("snapshot not found: %s", hash)
	}
	if err != nil {
		return fmt.Errorf("releasing snapshot: %w", err)
	}

	if deleted {
		s.cache.Remove(hash)
		s.logger.Debug("deleted snapshot", zap.String("hash", hash))
	}
	return nil
}

func getMeta(txn *badger.Txn, hash string) (Meta, error) {
	var meta Meta
	item, err := txn.Get(metaKey(hash))
	if err != nil {
		return meta, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	return meta, err
}

func setMeta(txn *badger.Txn, meta Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return txn.Set(metaKey(meta.Hash), data)
}

func metaKey(hash string) []byte { return []byte("snapshot:meta:" + hash) }
func dataKey(hash string) []byte { return []byte("snapshot:data:" + hash) }

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func isValidHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
