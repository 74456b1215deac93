package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// MemoryUploader keeps objects in memory. Used when R2 is not configured and in tests.
type MemoryUploader struct {
	mu            sync.RWMutex
	objects       map[string][]byte
	contentTypes  map[string]string
	publicBaseURL string
}

func NewMemoryUploader(publicBaseURL string) *MemoryUploader {
	return &MemoryUploader{
		objects:       make(map[string][]byte),
		contentTypes:  make(map[string]string),
		publicBaseURL: publicBaseURL,
	}
}

func (u *MemoryUploader) Upload(_ context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read object body (key: %s): %w", key, err)
	}
	sum := md5.Sum(buf.Bytes())

	u.mu.Lock()
	u.objects[key] = buf.Bytes()
	u.contentTypes[key] = contentType
	u.mu.Unlock()

	return &UploadResult{Key: key, Location: u.GetPublicURL(key), ETag: hex.EncodeToString(sum[:])}, nil
}

func (u *MemoryUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	delete(u.contentTypes, key)
	return nil
}

func (u *MemoryUploader) GetPublicURL(key string) string {
	return publicURL(u.publicBaseURL, key)
}

// Object returns a stored object and its content type.
func (u *MemoryUploader) Object(key string) ([]byte, string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	body, ok := u.objects[key]
	return body, u.contentTypes[key], ok
}

func (u *MemoryUploader) Keys() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	keys := make([]string, 0, len(u.objects))
	for k := range u.objects {
		keys = append(keys, k)
	}
	return keys
}
