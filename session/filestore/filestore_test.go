package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-gopay-client/session"
	"github.com/jrsteele09/go-gopay-client/session/filestore"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "gopay")
	s := filestore.New(dir)

	t.Run("load missing", func(t *testing.T) {
		_, err := s.Load(ctx, "default")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "default", []byte("blob-1")))
		require.NoError(t, s.Save(ctx, "default", []byte("blob-2")))

		got, err := s.Load(ctx, "default")
		require.NoError(t, err)
		require.Equal(t, "blob-2", string(got))

		info, err := os.Stat(filepath.Join(dir, "default.session"))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "default"))
		require.NoError(t, s.Delete(ctx, "default"))
		_, err := s.Load(ctx, "default")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("key with path separator", func(t *testing.T) {
		err := s.Save(ctx, "../escape", []byte("x"))
		var storeErr *session.StoreError
		require.ErrorAs(t, err, &storeErr)
		require.Equal(t, "save", storeErr.Op)
	})
}
