// Package storage defines the project file-system abstraction used by the snapshot builder.
package storage

import "io/fs"

// Provider is the interface for project file operations.
// All paths are slash-separated and relative to the project root.
type Provider interface {
	// Root returns the absolute path of the project root.
	Root() string
	// ReadDir returns the entries of dir sorted by file name.
	ReadDir(dir string) ([]fs.DirEntry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// ReadPrefix returns at most n leading bytes of the file at path.
	ReadPrefix(path string, n int) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
}
