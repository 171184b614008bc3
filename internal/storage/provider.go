// Package storage defines the directory abstraction backing label buckets.
package storage

import "time"

// FileInfo describes one file stored under a provider root.
type FileInfo struct {
	Name      string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for flat-directory file operations.
type Provider interface {
	// Root returns the absolute directory the provider manages.
	Root() string
	// List returns every regular file directly under the root.
	List() ([]FileInfo, error)
	// Exists reports whether name is present.
	Exists(name string) (bool, error)
	// Import atomically copies the file at src into the root as name,
	// replacing any existing file.
	Import(src, name string) error
	// Delete removes name. A missing file is not an error.
	Delete(name string) error
	// Path returns the absolute path for name.
	Path(name string) (string, error)
}
