package source

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
)

// ErrFileTooLarge is returned when a file exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// File is a named piece of source text submitted for comparison.
type File struct {
	Path    string `json:"path"`
	Content []byte `json:"-"`
	// Digest is the hex BLAKE3 hash of Content.
	Digest string `json:"digest"`
}

// NewFile creates a File and computes its content digest.
func NewFile(path string, content []byte) File {
	return File{
		Path:    path,
		Content: content,
		Digest:  HashBytes(content),
	}
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct {
	maxFileSize int64
}

// FilesystemOption configures a FilesystemSource.
type FilesystemOption func(*FilesystemSource)

// WithMaxFileSize rejects files larger than size bytes (0 = no limit).
func WithMaxFileSize(size int64) FilesystemOption {
	return func(f *FilesystemSource) {
		f.maxFileSize = size
	}
}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem(opts ...FilesystemOption) *FilesystemSource {
	f := &FilesystemSource{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	if f.maxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Size() > f.maxFileSize {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, info.Size(), f.maxFileSize)
		}
	}
	return os.ReadFile(path)
}

// MemorySource serves content from an in-memory map. It is mostly useful for
// tests and for callers that already hold file contents.
type MemorySource map[string][]byte

// Read implements ContentSource.
func (m MemorySource) Read(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return content, nil
}

// Load reads path from src into a File.
func Load(src ContentSource, path string) (File, error) {
	content, err := src.Read(path)
	if err != nil {
		return File{}, err
	}
	return NewFile(path, content), nil
}
