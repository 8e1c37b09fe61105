// Package file provides a JSON-file persistence implementation for
// development and tests. One file per record, all invariant-bearing
// operations serialized behind a store-wide mutex.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type FilePersistence struct {
	root string
	mu   sync.RWMutex
}

func NewFilePersistence(root string) (*FilePersistence, error) {
	for _, dir := range []string{"series", "progress"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return &FilePersistence{root: root}, nil
}

func (p *FilePersistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("persistence root unavailable: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("persistence root %s is not a directory", p.root)
	}

	return nil
}

func (p *FilePersistence) Close(_ context.Context) error {
	return nil
}

func (p *FilePersistence) path(kind, id string) string {
	return filepath.Join(p.root, kind, id+".json")
}

func (p *FilePersistence) read(kind, id string, v any) error {
	data, err := os.ReadFile(p.path(kind, id))
	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}

func (p *FilePersistence) write(kind, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	return os.WriteFile(p.path(kind, id), data, 0o644)
}

func (p *FilePersistence) ids(kind string) ([]string, error) {
	root := os.DirFS(filepath.Join(p.root, kind))

	files, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", kind, err)
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, file[:len(file)-len(".json")])
	}

	return ids, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
