package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrFileNotFound is returned when a file id has no stored bytes.
var ErrFileNotFound = errors.New("file not found")

type storedFile struct {
	filename   string
	data       []byte
	uploadedAt time.Time
}

// FileStore holds uploaded file bytes in process memory, keyed by a random
// id. Entries are written once at upload time and read-only afterwards; no
// eviction. Construct one at process start and inject it wherever file bytes
// are needed.
type FileStore struct {
	mu    sync.RWMutex
	files map[string]storedFile
}

// NewFileStore creates an empty file store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]storedFile)}
}

// Put stores data under a fresh random id and returns the id.
func (s *FileStore) Put(data []byte, filename string) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = storedFile{
		filename:   filename,
		data:       data,
		uploadedAt: time.Now(),
	}
	return id
}

// Get returns the bytes and original filename stored under id.
func (s *FileStore) Get(id string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return nil, "", ErrFileNotFound
	}
	return f.data, f.filename, nil
}

// Has reports whether id is present.
func (s *FileStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[id]
	return ok
}
