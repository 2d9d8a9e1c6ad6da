package objectstore

import (
	"context"
	"fmt"
	"sync"
)

type object struct {
	contentType string
	data        []byte
}

// Memory keeps objects in process. Used by the local-only storage mode and
// in tests.
type Memory struct {
	mu      sync.Mutex
	base    string
	bucket  string
	objects map[string]object
}

func NewMemory(base, bucket string) *Memory {
	return &Memory{base: base, bucket: bucket, objects: map[string]object{}}
}

func (m *Memory) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; ok {
		return "", fmt.Errorf("%w: %s", ErrObjectExists, path)
	}
	m.objects[path] = object{contentType: contentType, data: append([]byte(nil), data...)}
	return publicURL(m.base, m.bucket, path), nil
}

// Get returns a stored object's content type and bytes.
func (m *Memory) Get(path string) (string, []byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[path]
	return obj.contentType, obj.data, ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
