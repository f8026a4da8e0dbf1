package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/tickler/internal/apperr"
	"github.com/starford/tickler/internal/models"
)

// Resolve parses text as a review date. Empty text resolves the configured
// default date.
func (s *Scheduler) Resolve(text string) (models.ReviewTarget, error) {
	if s.deps.Parser == nil {
		return models.ReviewTarget{DateInput: text}, apperr.ErrMissingCollaborator
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = s.settings.DefaultDate
	}
	target := s.deps.Parser.Parse(text)
	if !target.Valid || target.DateKey == "" {
		return target, fmt.Errorf("%w: %q", apperr.ErrInvalidDate, text)
	}
	return target, nil
}

// DailyNote returns the existing daily note for dateText. It fails with
// apperr.ErrNotFound when the vault has no note for that date.
func (s *Scheduler) DailyNote(ctx context.Context, dateText string) (models.ReviewTarget, models.DailyNoteDocument, error) {
	target, err := s.Resolve(dateText)
	if err != nil {
		return target, models.DailyNoteDocument{}, err
	}
	if s.deps.Store == nil {
		return target, models.DailyNoteDocument{}, fmt.Errorf("%w: no note store", apperr.ErrMissingCollaborator)
	}
	doc, found, err := s.findDaily(ctx, target.DateKey)
	if err != nil {
		return target, doc, err
	}
	if !found {
		return target, doc, fmt.Errorf("%w: daily note %s", apperr.ErrNotFound, target.DateKey)
	}
	return target, doc, nil
}

// findDaily looks for a note whose name, path or basename equals key and
// loads it.
func (s *Scheduler) findDaily(ctx context.Context, key string) (models.DailyNoteDocument, bool, error) {
	metas, err := s.deps.Store.List(ctx)
	if err != nil {
		return models.DailyNoteDocument{}, false, fmt.Errorf("%w: list notes: %w", apperr.ErrDocumentRead, err)
	}
	for _, m := range metas {
		if m.Name != key && m.Path != key && m.Basename != key {
			continue
		}
		text, err := s.deps.Store.Read(ctx, m.Path)
		if err != nil {
			return models.DailyNoteDocument{}, false, fmt.Errorf("%w: %s: %w", apperr.ErrDocumentRead, m.Path, err)
		}
		return models.DailyNoteDocument{Path: m.Path, RawText: text, Exists: true}, true, nil
	}
	return models.DailyNoteDocument{}, false, nil
}
