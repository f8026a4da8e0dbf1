// Package noteservice keeps vault storage and the metadata index in step.
// Every write through the Service re-indexes the note, so block anchors
// and link text stay current for the review scheduler.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/tickler/internal/apperr"
	"github.com/starford/tickler/internal/checksum"
	"github.com/starford/tickler/internal/index"
	"github.com/starford/tickler/internal/models"
	"github.com/starford/tickler/internal/parser"
	"github.com/starford/tickler/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string               `json:"path"`
	Title       string               `json:"title"`
	Content     string               `json:"content"`
	Checksum    string               `json:"checksum"`
	Tags        []string             `json:"tags"`
	Frontmatter map[string]any       `json:"frontmatter,omitempty"`
	Blocks      []models.BlockAnchor `json:"blocks"`
	Backlinks   []string             `json:"backlinks"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    index.NoteIndex
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.NoteIndex) *Service {
	return &Service{store: store, db: db}
}

// List returns metadata for every note in the vault.
func (s *Service) List(_ context.Context) ([]models.NoteMetadata, error) {
	return s.store.List("")
}

// Read returns the text of the note at path.
func (s *Service) Read(_ context.Context, path string) (string, error) {
	data, err := s.read(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write replaces the note at path and re-indexes it. Once the file is
// saved the write has succeeded; an index failure is left for the watcher
// and the next Sync to repair.
func (s *Service) Write(_ context.Context, path, text string) error {
	if err := s.store.Write(path, []byte(text)); err != nil {
		return err
	}
	s.reindex(path, text)
	return nil
}

// Create writes a new note and indexes it. It fails with
// apperr.ErrAlreadyExists when path is taken.
func (s *Service) Create(_ context.Context, path, text string) error {
	if err := s.store.Create(path, []byte(text)); err != nil {
		return err
	}
	s.reindex(path, text)
	return nil
}

func (s *Service) reindex(path, text string) {
	if err := index.IndexFile(s.db, path, []byte(text)); err != nil {
		slog.Warn("reindex after write failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Delete removes a note from storage and index.
func (s *Service) Delete(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
		}
		return err
	}
	if err := s.db.DeleteNote(path); err != nil {
		slog.Warn("remove note from index failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	return nil
}

// BlockAnchors returns the indexed anchor ids of path in document order.
func (s *Service) BlockAnchors(_ context.Context, path string) ([]string, error) {
	return s.db.BlockAnchors(path)
}

// ResolveLinkText returns the wikilink text that identifies path.
func (s *Service) ResolveLinkText(_ context.Context, path string) (string, error) {
	return s.db.LinkText(path)
}

// GetNote reads a note from storage, parses it, and enriches with backlinks.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, data)
}

// ListNotes returns paginated notes.
func (s *Service) ListNotes(_ context.Context, limit, offset int) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Backlinks returns all note paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
		}
		return nil, err
	}
	return data, nil
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func (s *Service) buildNoteDetail(path string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Blocks:      nonNilSlice(res.Blocks),
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
