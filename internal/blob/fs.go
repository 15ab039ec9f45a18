package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FSBackend stores collection blobs as files under a data directory. Writes
// go to a temporary file in the same directory and rename over the target,
// so an interrupted process never leaves a half-written blob behind.
//
// Generations are content hashes. WriteIf compares them under a process-wide
// mutex, which serializes writers inside one process; writers in separate
// processes against the same directory remain a documented residual race
// (the shared deployment uses the S3 or Postgres backend, where the store
// itself arbitrates).
type FSBackend struct {
	dir string

	mu sync.Mutex
}

var _ Backend = (*FSBackend)(nil)

// NewFSBackend creates the data directory if needed and returns a backend
// rooted there.
func NewFSBackend(dir string) (*FSBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &FSBackend{dir: dir}, nil
}

func (b *FSBackend) path(name string) string {
	return filepath.Join(b.dir, name+".jsonl")
}

func fsGeneration(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Read returns the blob at name. A file that has never been written is
// ErrNotFound; any other filesystem failure is transient.
func (b *FSBackend) Read(_ context.Context, name string) ([]byte, string, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("fs read %s: %w", name, ErrNotFound)
		}
		return nil, "", markTransient(fmt.Errorf("fs read %s: %w", name, err))
	}
	return data, fsGeneration(data), nil
}

// Write atomically replaces the blob at name via temp-file-and-rename.
func (b *FSBackend) Write(_ context.Context, name string, data []byte) error {
	return b.writeAtomic(name, data)
}

// WriteIf replaces the blob at name only while its content hash still
// matches generation. An empty generation demands that the file not exist.
func (b *FSBackend) WriteIf(_ context.Context, name string, data []byte, generation string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := os.ReadFile(b.path(name))
	switch {
	case os.IsNotExist(err):
		if generation != "" {
			return fmt.Errorf("fs conditional write %s: blob was deleted: %w", name, ErrPreconditionFailed)
		}
	case err != nil:
		return markTransient(fmt.Errorf("fs conditional write %s: %w", name, err))
	default:
		if generation == "" {
			return fmt.Errorf("fs conditional write %s: blob already exists: %w", name, ErrPreconditionFailed)
		}
		if fsGeneration(current) != generation {
			return fmt.Errorf("fs conditional write %s: %w", name, ErrPreconditionFailed)
		}
	}

	return b.writeAtomic(name, data)
}

func (b *FSBackend) writeAtomic(name string, data []byte) error {
	target := b.path(name)

	// Temp file must live on the same volume for rename to be atomic.
	tmp, err := os.CreateTemp(b.dir, name+".tmp-*")
	if err != nil {
		return markTransient(fmt.Errorf("fs temp %s: %w", name, err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return markTransient(fmt.Errorf("fs write %s: %w", name, err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return markTransient(fmt.Errorf("fs sync %s: %w", name, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return markTransient(fmt.Errorf("fs close %s: %w", name, err))
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return markTransient(fmt.Errorf("fs rename %s: %w", name, err))
	}
	return nil
}
