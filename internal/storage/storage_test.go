package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-go/internal/testutil"
	"vocab-go/internal/vocab"
)

// backends returns every local implementation under a common contract.
func backends(t *testing.T) map[string]vocab.Storage {
	t.Helper()

	fsStore, err := NewFileSystemStorage(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "vocab.db"), testutil.FixedClock())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]vocab.Storage{
		"memory":     NewMemoryStorage(),
		"filesystem": fsStore,
		"sqlite":     sqliteStore,
		"cached":     NewCachedStorage(NewMemoryStorage(), 1, 60, nil),
		"s3":         NewS3StorageWithClient(newFakeS3(), S3Options{Bucket: "vocab", Prefix: "test"}, vocab.NewNopLogger()),
	}
}

func TestStorageContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.ValidateSetup(ctx))

			t.Run("read missing is NotFound", func(t *testing.T) {
				_, err := s.Read(ctx, "users/nobody/courses.json")
				assert.ErrorIs(t, err, vocab.ErrNotFound)

				ok, err := s.Exists(ctx, "users/nobody/courses.json")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("write then read", func(t *testing.T) {
				require.NoError(t, s.EnsureDir(ctx, "users/a"))
				require.NoError(t, s.Write(ctx, "users/a/courses.json", []byte(`[]`)))

				got, err := s.Read(ctx, "users/a/courses.json")
				require.NoError(t, err)
				assert.Equal(t, `[]`, string(got))

				ok, err := s.Exists(ctx, "users/a/courses.json")
				require.NoError(t, err)
				assert.True(t, ok)
			})

			t.Run("write replaces", func(t *testing.T) {
				require.NoError(t, s.Write(ctx, "users/a/x.json", []byte("first version")))
				require.NoError(t, s.Write(ctx, "users/a/x.json", []byte("v2")))

				got, err := s.Read(ctx, "users/a/x.json")
				require.NoError(t, err)
				assert.Equal(t, "v2", string(got))
			})

			t.Run("list immediate children", func(t *testing.T) {
				require.NoError(t, s.EnsureDir(ctx, "users/a/snapshots"))
				require.NoError(t, s.Write(ctx, "users/a/snapshots/snapshot-2024-01-15-1.json", []byte("{}")))

				names, err := s.List(ctx, "users/a")
				require.NoError(t, err)
				assert.Equal(t, []string{"courses.json", "snapshots", "x.json"}, names)

				names, err = s.List(ctx, "users/a/snapshots")
				require.NoError(t, err)
				assert.Equal(t, []string{"snapshot-2024-01-15-1.json"}, names)
			})

			t.Run("list missing dir is empty", func(t *testing.T) {
				names, err := s.List(ctx, "users/ghost/snapshots")
				require.NoError(t, err)
				assert.Empty(t, names)
			})

			t.Run("delete is idempotent", func(t *testing.T) {
				require.NoError(t, s.Delete(ctx, "users/a/x.json"))
				require.NoError(t, s.Delete(ctx, "users/a/x.json"))

				_, err := s.Read(ctx, "users/a/x.json")
				assert.ErrorIs(t, err, vocab.ErrNotFound)
			})

			t.Run("rejects traversal", func(t *testing.T) {
				for _, p := range []string{"../etc/passwd", "/abs/path", `users\a`, "users/../../x"} {
					_, err := s.Read(ctx, p)
					assert.ErrorIs(t, err, vocab.ErrInvalidInput, p)
					assert.ErrorIs(t, s.Write(ctx, p, []byte("x")), vocab.ErrInvalidInput, p)
				}
			})
		})
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "users/a/courses.json", want: "users/a/courses.json"},
		{in: "users//a/./courses.json", want: "users/a/courses.json"},
		{in: "users/a/", want: "users/a"},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "/users/a", wantErr: true},
		{in: "users/../a", wantErr: true},
		{in: "..", wantErr: true},
		{in: `users\a`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanPath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, vocab.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
