package index

import "github.com/starford/tickler/internal/models"

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type NoteIndex interface {
	UpsertNote(n NoteRow, links []string, blocks []models.BlockAnchor) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	ListNotes(limit, offset int) ([]NoteRow, int, error)
	Backlinks(target string) ([]string, error)
	BlockAnchors(path string) ([]string, error)
	LinkText(path string) (string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
