package vocab

import "context"

// Storage provides a uniform key/value-over-paths interface for the
// persistence backends. Paths are logical, slash-separated and relative to the
// backend root; callers namespace them (see UserRepository).
type Storage interface {
	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns the full content stored at path.
	// Returns an error matching ErrNotFound if nothing is stored there.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces the object at path with data. Readers observe either the
	// previous content or the new content, never a partial object.
	Write(ctx context.Context, path string, data []byte) error

	// Delete removes the object at path. Deleting a missing object succeeds.
	Delete(ctx context.Context, path string) error

	// List returns the names of the immediate children of dir.
	// A directory that does not exist yields an empty result.
	List(ctx context.Context, dir string) ([]string, error)

	// EnsureDir makes sure dir can hold objects. No-op for flat namespaces.
	EnsureDir(ctx context.Context, dir string) error

	// ValidateSetup verifies that the backend is reachable and configured.
	ValidateSetup(ctx context.Context) error
}
