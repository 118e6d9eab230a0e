package pkg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeDirs(t *testing.T) {
	root := t.TempDir()

	err := MakeDirs([]string{filepath.Join(root, "a", "b")}, false)
	require.Error(t, err)

	err = MakeDirs([]string{filepath.Join(root, "a", "b")}, true)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRemoveItems(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0770))
	file := filepath.Join(sub, "keep.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0660))

	err := RemoveItems([]string{sub}, false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")

	require.NoError(t, RemoveItems([]string{file}, false, false))

	err = RemoveItems([]string{file}, false, false)
	require.Error(t, err)
	require.NoError(t, RemoveItems([]string{file}, false, true))

	require.NoError(t, RemoveItems([]string{sub}, true, false))
	_, statErr := os.Stat(sub)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMoveItems(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "first.txt")
	second := filepath.Join(root, "second.txt")
	require.NoError(t, os.WriteFile(first, []byte("1"), 0660))
	require.NoError(t, os.WriteFile(second, []byte("2"), 0660))

	renamed := filepath.Join(root, "renamed.txt")
	require.NoError(t, MoveItems([]string{first, renamed}))
	_, statErr := os.Stat(first)
	assert.True(t, os.IsNotExist(statErr))

	err := MoveItems([]string{renamed, second, filepath.Join(root, "nosuchdir.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	destDir := filepath.Join(root, "dest")
	require.NoError(t, os.Mkdir(destDir, 0770))
	require.NoError(t, MoveItems([]string{renamed, second, destDir}))

	for _, name := range []string{"renamed.txt", "second.txt"} {
		_, err := os.Stat(filepath.Join(destDir, name))
		assert.NoError(t, err)
	}
}

func TestMoveItems_MissingDestinationParent(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0660))

	err := MoveItems([]string{file, filepath.Join(root, "missing", "file.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destination directory")
}
