package ports

import (
	"context"
	"io"
)

// AssetStore persists downloaded binaries as locally served assets.
type AssetStore interface {
	// Save writes the asset under the given file name and returns the
	// public URL it is served from.
	Save(ctx context.Context, name string, r io.Reader) (string, error)

	// Remove deletes a stored asset. Missing files are not an error.
	Remove(name string) error
}
