package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/andresuchdata/stockcast/backend-go/internal/storage"
)

// ErrModelNotFound is returned by a Store when no snapshot exists for a category
var ErrModelNotFound = errors.New("model snapshot not found")

// Store persists encoded model snapshots keyed by category
type Store interface {
	Load(ctx context.Context, categoryID int64) ([]byte, error)
	Save(ctx context.Context, categoryID int64, data []byte) error
}

// SnapshotLister is implemented by stores that can enumerate their snapshots
type SnapshotLister interface {
	Snapshots(ctx context.Context) ([]int64, error)
}

const (
	snapshotPrefix = "category-"
	snapshotExt    = ".msgpack"
)

func snapshotName(categoryID int64) string {
	return fmt.Sprintf("%s%d%s", snapshotPrefix, categoryID, snapshotExt)
}

// parseSnapshotName returns the category of a snapshot file or object name
func parseSnapshotName(name string) (int64, bool) {
	name = path.Base(name)
	if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotExt) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotExt), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func sortedIDs(ids []int64) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FileStore keeps snapshots as files in a local directory
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed creating model dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Load(_ context.Context, categoryID int64) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, snapshotName(categoryID)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("category %d: %w", categoryID, ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot for category %d: %w", categoryID, err)
	}
	return data, nil
}

// Save writes to a temp file and renames it over the previous snapshot so a
// crash never leaves a truncated file behind.
func (s *FileStore) Save(_ context.Context, categoryID int64, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, snapshotName(categoryID)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, snapshotName(categoryID))); err != nil {
		return fmt.Errorf("replace snapshot for category %d: %w", categoryID, err)
	}
	return nil
}

func (s *FileStore) Snapshots(_ context.Context) ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list model dir %s: %w", s.dir, err)
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := parseSnapshotName(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	return sortedIDs(ids), nil
}

// ObjectStore keeps snapshots in an S3-compatible bucket under prefix
type ObjectStore struct {
	objects storage.ObjectStorage
	prefix  string
}

func NewObjectStore(objects storage.ObjectStorage, prefix string) *ObjectStore {
	return &ObjectStore{objects: objects, prefix: prefix}
}

func (s *ObjectStore) key(categoryID int64) string {
	return path.Join(s.prefix, snapshotName(categoryID))
}

func (s *ObjectStore) Load(ctx context.Context, categoryID int64) ([]byte, error) {
	data, err := s.objects.GetObject(ctx, s.key(categoryID))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("category %d: %w", categoryID, ErrModelNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *ObjectStore) Save(ctx context.Context, categoryID int64, data []byte) error {
	return s.objects.UploadObject(ctx, s.key(categoryID), data)
}

func (s *ObjectStore) Snapshots(ctx context.Context) ([]int64, error) {
	objects, err := s.objects.ListObjects(ctx, s.prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(objects))
	for _, obj := range objects {
		if id, ok := parseSnapshotName(obj.Key); ok {
			ids = append(ids, id)
		}
	}
	return sortedIDs(ids), nil
}

// MemoryStore keeps snapshots in process. Used by the CLI one-shot commands
// when no store is configured and by tests.
type MemoryStore struct {
	mu   sync.Mutex
	data map[int64][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int64][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, categoryID int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[categoryID]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", categoryID, ErrModelNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Save(_ context.Context, categoryID int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[categoryID] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Snapshots(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return sortedIDs(ids), nil
}

var (
	_ SnapshotLister = (*FileStore)(nil)
	_ SnapshotLister = (*ObjectStore)(nil)
	_ SnapshotLister = (*MemoryStore)(nil)

	_ Store = (*FileStore)(nil)
	_ Store = (*ObjectStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
