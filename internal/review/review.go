// Package review schedules a note, or one block of it, for review on a
// future date by linking it under a heading of that date's daily note.
package review

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/tickler/internal/blockref"
	"github.com/starford/tickler/internal/models"
	"github.com/starford/tickler/internal/section"
)

// Defaults for Settings fields left empty.
const (
	DefaultHeading     = "## Review"
	DefaultLinePrefix  = "- "
	DefaultBlockPrefix = "!"
	DefaultDate        = "tomorrow"
)

// DateParser turns user text into a review date.
type DateParser interface {
	Parse(text string) models.ReviewTarget
}

// NoteStore reads and writes vault notes by vault-relative path.
type NoteStore interface {
	List(ctx context.Context) ([]models.NoteMetadata, error)
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, text string) error
	Create(ctx context.Context, path, text string) error
	Delete(ctx context.Context, path string) error
}

// DailyNoteProvisioner creates the daily note for a date, typically from a
// template, and returns its path.
type DailyNoteProvisioner interface {
	CreateForDate(ctx context.Context, target models.ReviewTarget) (string, error)
}

// MetadataIndex answers questions about indexed notes.
type MetadataIndex interface {
	// BlockAnchors returns the anchor ids of path in document order.
	BlockAnchors(ctx context.Context, path string) ([]string, error)
	// ResolveLinkText returns the wikilink text that identifies path.
	ResolveLinkText(ctx context.Context, path string) (string, error)
}

// Notice kinds.
const (
	NoticeScheduled = "review.scheduled"
	NoticeRejected  = "review.rejected"
)

// Notice is the user-facing outcome of one Schedule call.
type Notice struct {
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	InvocationID string `json:"invocation_id"`
	SourcePath   string `json:"source_path,omitempty"`
	DateKey      string `json:"date_key,omitempty"`
	DailyNote    string `json:"daily_note,omitempty"`
}

// Notifier delivers notices to whoever triggered the review.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Settings are the user-editable scheduling options. Empty fields fall
// back to the Default constants.
type Settings struct {
	Heading     string
	LinePrefix  string
	BlockPrefix string
	DefaultDate string
	DailyFolder string
}

func (s Settings) withDefaults() Settings {
	if s.Heading == "" {
		s.Heading = DefaultHeading
	}
	if s.LinePrefix == "" {
		s.LinePrefix = DefaultLinePrefix
	}
	if s.BlockPrefix == "" {
		s.BlockPrefix = DefaultBlockPrefix
	}
	if s.DefaultDate == "" {
		s.DefaultDate = DefaultDate
	}
	return s
}

// Deps are the collaborators of a Scheduler. Parser may be nil, in which
// case every Schedule call fails with apperr.ErrMissingCollaborator.
// Provisioner may be nil; new daily notes are then created empty.
type Deps struct {
	Parser      DateParser
	Store       NoteStore
	Provisioner DailyNoteProvisioner
	Index       MetadataIndex
	Merger      section.Merger
	Minter      *blockref.Minter
	Notifier    Notifier
	Logger      *slog.Logger
	Settings    Settings
}

// Request describes one scheduling call. Line is 1-based. When Line is 0
// and LineText is empty the whole note is scheduled; otherwise the selected
// line is scheduled as a block.
type Request struct {
	SourcePath string `json:"path"`
	DateText   string `json:"date"`
	Line       int    `json:"line,omitempty"`
	LineText   string `json:"line_text,omitempty"`
}

func (r Request) blockMode() bool { return r.Line != 0 || r.LineText != "" }

// Result is the outcome of a successful Schedule call.
type Result struct {
	InvocationID    string               `json:"invocation_id"`
	Target          models.ReviewTarget  `json:"target"`
	Reference       models.NoteReference `json:"reference"`
	Entry           string               `json:"entry"`
	DailyNotePath   string               `json:"daily_note_path"`
	Created         bool                 `json:"created"`
	Templated       bool                 `json:"templated"`
	SourceRewritten bool                 `json:"source_rewritten"`
	Message         string               `json:"message"`
}

// Scheduler runs review scheduling. It is safe for concurrent use; calls
// that target the same daily note or source note are serialized.
type Scheduler struct {
	deps     Deps
	settings Settings
	logger   *slog.Logger

	mintMu sync.Mutex
	locks  keyedLocks
}

// New returns a Scheduler.
func New(deps Deps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deps.Merger == nil {
		deps.Merger = section.Substring{}
	}
	if deps.Minter == nil {
		deps.Minter = blockref.NewMinter(nil)
	}
	if deps.Parser == nil {
		logger.Warn("no date parser configured; reviews cannot be scheduled")
	}
	return &Scheduler{
		deps:     deps,
		settings: deps.Settings.withDefaults(),
		logger:   logger,
	}
}

// Settings returns the effective settings after defaults were applied.
func (s *Scheduler) Settings() Settings { return s.settings }

func (s *Scheduler) mint() string {
	s.mintMu.Lock()
	defer s.mintMu.Unlock()
	return s.deps.Minter.Mint()
}
