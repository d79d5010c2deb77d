package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rbaliyan/conversation/store"
)

const fileScheme = "mem://"

// FileStore is an in-memory store.AttachmentFileStore.
type FileStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

var _ store.AttachmentFileStore = (*FileStore)(nil)

// NewFileStore creates an empty in-memory attachment file store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string][]byte)}
}

// Upload buffers content and returns a mem:// URI.
func (f *FileStore) Upload(ctx context.Context, filename, _ string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("memory: read %s: %w", filename, err)
	}
	uri := fileScheme + uuid.New().String() + "/" + filename
	f.mu.Lock()
	f.files[uri] = data
	f.mu.Unlock()
	return uri, nil
}

// Load returns the bytes stored under uri.
func (f *FileStore) Load(_ context.Context, uri string) (io.ReadCloser, error) {
	if !strings.HasPrefix(uri, fileScheme) {
		return nil, store.ErrInvalidID
	}
	f.mu.RLock()
	data, ok := f.files[uri]
	f.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete drops the bytes stored under uri. Unknown URIs are ignored.
func (f *FileStore) Delete(_ context.Context, uri string) error {
	f.mu.Lock()
	delete(f.files, uri)
	f.mu.Unlock()
	return nil
}

// Len reports how many files are stored.
func (f *FileStore) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.files)
}
