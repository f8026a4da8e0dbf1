// Package models defines the domain types for Tickler.
package models

import "time"

// NoteMetadata is a lightweight representation returned by list operations.
// Name is the file name with extension, Basename the name without it.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Basename  string    `json:"basename"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewTarget is the resolved form of a user-entered review date.
// DateKey is the canonical key used both to find and to name the daily note.
type ReviewTarget struct {
	DateInput string    `json:"date_input"`
	DateKey   string    `json:"date_key"`
	Date      time.Time `json:"date"`
	Valid     bool      `json:"valid"`
}

// NoteReference is the thing being scheduled for review: a whole note, or one
// block inside it when Anchor is set.
type NoteReference struct {
	DisplayName string `json:"display_name"`
	SourcePath  string `json:"source_path"`
	LinkPath    string `json:"link_path"`
	Anchor      string `json:"anchor,omitempty"`
}

// DailyNoteDocument is a daily note loaded (or materialized) for one
// scheduling operation.
type DailyNoteDocument struct {
	Path     string
	RawText  string
	Exists   bool // false when the note still has to be created
	Template bool // true when it was provisioned from a template
}

// BlockAnchor is a block identifier together with the line that owns it.
type BlockAnchor struct {
	ID        string `json:"id"`
	OwnerLine string `json:"owner_line"`
}
