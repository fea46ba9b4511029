package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFile_Digest(t *testing.T) {
	a := NewFile("a.js", []byte("const x = 1;"))
	b := NewFile("b.js", []byte("const x = 1;"))
	c := NewFile("c.js", []byte("const y = 2;"))

	assert.Len(t, a.Digest, 64)
	assert.Equal(t, a.Digest, b.Digest)
	assert.NotEqual(t, a.Digest, c.Digest)
}

func TestFilesystemSource_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(path, []byte("print('hi')\n"), 0o644))

	content, err := NewFilesystem().Read(path)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(content))

	_, err = NewFilesystem().Read(filepath.Join(dir, "missing.py"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilesystemSource_MaxFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.go")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))

	_, err := NewFilesystem(WithMaxFileSize(1024)).Read(path)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	content, err := NewFilesystem(WithMaxFileSize(4096)).Read(path)
	require.NoError(t, err)
	assert.Len(t, content, 2048)
}

func TestLoad(t *testing.T) {
	src := MemorySource{"x.rb": []byte("puts 1")}

	f, err := Load(src, "x.rb")
	require.NoError(t, err)
	assert.Equal(t, "x.rb", f.Path)
	assert.Equal(t, HashBytes([]byte("puts 1")), f.Digest)

	_, err = Load(src, "y.rb")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
