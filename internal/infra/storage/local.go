package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Local writes export files into a directory.
type Local struct {
	dir string
	log *slog.Logger
}

func NewLocal(dir string, log *slog.Logger) (*Local, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Local{dir: dir, log: log}, nil
}

// Put writes to a temp file in the target directory and renames it into
// place, so a failure never leaves a partial file under name.
func (l *Local) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	final := filepath.Join(l.dir, filepath.Base(name))

	tmp, err := os.CreateTemp(l.dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !os.IsNotExist(rmErr) {
			l.log.Warn("failed to remove temp export file", "path", tmpName, "err", rmErr)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		cleanup()
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return final, nil
}

// Check reports whether the export directory is writable.
func (l *Local) Check(ctx context.Context) error {
	f, err := os.CreateTemp(l.dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
