package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/annostudio/annostudio/internal/config"
)

// filesystem implements System using the local filesystem.
// It stores blobs as files under a configurable base path,
// with keys mapping directly to relative file paths.
type filesystem struct {
	basePath string
	logger   *slog.Logger
}

// New creates a filesystem storage system rooted at the configured base path.
// The base directory is created if it does not exist.
func New(cfg *config.StorageConfig, logger *slog.Logger) (System, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("base_path required")
	}

	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base_path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("create base_path: %w", err)
	}

	return &filesystem{
		basePath: absPath,
		logger:   logger.With("system", "storage"),
	}, nil
}

func (f *filesystem) Store(ctx context.Context, key string, data []byte) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

func (f *filesystem) Retrieve(ctx context.Context, key string) ([]byte, error) {
	path, err := f.fullPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

func (f *filesystem) Delete(ctx context.Context, key string) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("remove file: %w", err)
	}

	// Prune the key's parent directory when it is left empty.
	dir := filepath.Dir(path)
	if dir != f.basePath && strings.HasPrefix(dir, f.basePath) {
		if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
			os.Remove(dir)
		}
	}

	return nil
}

func (f *filesystem) Validate(ctx context.Context, key string) (bool, error) {
	path, err := f.fullPath(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}

	return true, nil
}

func (f *filesystem) fullPath(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	path := filepath.Join(f.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(path, f.basePath+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}

	return path, nil
}
