// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/tickler/internal/models"

// Provider is the interface for vault file operations.
// All paths are relative to the vault root and use forward slashes.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces (or creates) the file at path.
	Write(path string, content []byte) error
	// Create writes a new file and fails with apperr.ErrAlreadyExists if
	// something is already at path.
	Create(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
