package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// FileBackend stores each key as <dir>/<key>.json.
// Writes go through a temp file and rename under an exclusive flock on a
// sidecar lock file, so the CLI and the web server never interleave.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a FileBackend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// Path returns the file a key is stored in.
func (b *FileBackend) Path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (b *FileBackend) Set(_ context.Context, key string, value []byte) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	unlock, err := b.lock(key)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(b.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), b.Path(key)); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	unlock, err := b.lock(key)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(b.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) lock(key string) (func(), error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(b.dir, "."+key+".lock"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}
