package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes downloaded assets to a directory served as static
// files.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates the asset directory if needed and returns a
// store serving files under baseURL.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory assets are written to.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	// Reject anything that could escape the asset directory.
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid asset name %q", name)
	}

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create asset file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

func (s *DiskStore) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("invalid asset name %q", name)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove asset file: %w", err)
	}
	return nil
}
