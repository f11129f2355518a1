package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
)

// ErrObjectNotFound is returned by MemoryStore.Get for unknown paths.
var ErrObjectNotFound = errors.New("object not found")

// MemoryStore is an in-process ObjectStore. It backs the "memory" media
// backend in local development and the tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	signed  int

	// FailPut, when set, is consulted before every Put.
	FailPut func(path string) error
}

type memObject struct {
	data        []byte
	contentType string
}

var _ ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

func (m *MemoryStore) Put(ctx context.Context, path string, r io.Reader, opts *PutOptions) error {
	if m.FailPut != nil {
		if err := m.FailPut(path); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	obj := memObject{data: data}
	if opts != nil {
		obj.contentType = opts.ContentType
	}

	m.mu.Lock()
	m.objects[path] = obj
	m.mu.Unlock()
	return nil
}

// PresignedURL returns a distinct memory:// link on every call.
func (m *MemoryStore) PresignedURL(_ context.Context, path string, opts *PresignOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return "", ErrObjectNotFound
	}
	m.signed++
	ttl := DefaultURLTTL
	if opts != nil && opts.Expires > 0 {
		ttl = opts.Expires
	}
	return "memory://" + path + "?sig=" + strconv.Itoa(m.signed) + "&ttl=" + ttl.String(), nil
}

func (m *MemoryStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	delete(m.objects, path)
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored bytes and content type.
func (m *MemoryStore) Get(path string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[path]
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return bytes.Clone(obj.data), obj.contentType, nil
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

