package store

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestResolveDir(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		dir           string
		invocationDir string
		expected      string
	}{
		{
			name:          "test_absolute_as_is",
			dir:           "/var/results/../allure",
			invocationDir: "/work",
			expected:      "/var/allure",
		},
		{
			name:          "test_relative_joined",
			dir:           "allure-results",
			invocationDir: "/work",
			expected:      "/work/allure-results",
		},
		{
			name:          "test_backslash_stripped",
			dir:           `\\out`,
			invocationDir: "/work",
			expected:      "/work/out",
		},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				if diff := cmp.Diff(tc.expected, ResolveDir(tc.dir, tc.invocationDir)); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestFS_PutOpenRemove(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "results")
	s, err := NewFS(dir)
	require.NoError(t, err)
	require.Equal(t, dir, s.Dir())

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a-attachment.txt", bytes.NewBufferString("hello")))

	rc, err := s.Open(ctx, "a-attachment.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "hello", string(body))

	require.NoError(t, s.Remove(ctx, "a-attachment.txt"))
	_, err = os.Stat(filepath.Join(dir, "a-attachment.txt"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = s.Open(ctx, "a-attachment.txt")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFS_RejectsPaths(t *testing.T) {
	t.Parallel()

	s, err := NewFS(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, name := range []string{"", "../escape", "sub/file", "."} {
		require.ErrorIs(t, s.Put(ctx, name, bytes.NewBufferString("x")), ErrInvalidName, name)
	}
}

func TestFS_CanceledContext(t *testing.T) {
	t.Parallel()

	s, err := NewFS(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Put(ctx, "x", bytes.NewBufferString("x")), context.Canceled)
}
