package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

type object struct {
	data        []byte
	contentType string
}

// Memory keeps objects in a map. Pre-signed URLs point at a fake host and
// are only meaningful to tests.
type Memory struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]object
}

func NewMemory(bucket string) *Memory {
	return &Memory{bucket: bucket, objects: map[string]object{}}
}

func (m *Memory) PresignPut(_ context.Context, key, _ string, expiry time.Duration) (string, error) {
	return m.url("PUT", key, expiry), nil
}

func (m *Memory) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	return m.url("GET", key, expiry), nil
}

func (m *Memory) url(method, key string, expiry time.Duration) string {
	q := url.Values{"method": {method}, "expires": {fmt.Sprint(int(expiry.Seconds()))}}
	return fmt.Sprintf("https://storage.invalid/%s/%s?%s", m.bucket, key, q.Encode())
}

func (m *Memory) Head(_ context.Context, key string) (ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, ErrNotFound
	}
	return ObjectInfo{Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *Memory) Put(_ context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = object{data: data, contentType: contentType}
	return nil
}
