package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore keeps uploads in a local directory served under URLPrefix.
type DiskStore struct {
	dir       string
	urlPrefix string
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Dir returns the directory files are written to.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + name, nil
}

// Remove deletes the file behind path. Paths outside the store and files that
// are already gone are ignored.
func (s *DiskStore) Remove(path string) error {
	name, ok := strings.CutPrefix(path, s.urlPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
