package hashutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFileIsConsistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	hash1, err := HashFile(path)
	require.NoError(t, err)
	hash2, err := HashFile(path)
	require.NoError(t, err)

	assert.Equal(t, hash1, hash2)
	assert.Len(t, hash1, 64)
}

func TestHashContentMatchesHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	content := []byte("some content")
	require.NoError(t, os.WriteFile(path, content, 0644))

	fromFile, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, fromFile, HashContent(content))
}

func TestHashFileMissingFile(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDifferentContentDifferentHash(t *testing.T) {
	assert.NotEqual(t, HashContent([]byte("a")), HashContent([]byte("b")))
}
