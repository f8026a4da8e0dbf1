package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/tickler/internal/apperr"
	"github.com/starford/tickler/internal/blockref"
	"github.com/starford/tickler/internal/dailynote"
	"github.com/starford/tickler/internal/models"
)

// plan is the state carried between the steps of one Schedule call.
type plan struct {
	id        string
	target    models.ReviewTarget
	ref       models.NoteReference
	prefix    string
	source    string // original source text
	rewritten string // source text with a minted anchor, empty if unchanged
	daily     models.DailyNoteDocument
	created   bool // daily note was created during this call
	merged    string
	inDaily   bool // source is the daily note; the anchor is merged with the entry
}

// Schedule links the requested note (or block) under the review heading of
// the daily note for req.DateText. Nothing is modified when it fails.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (*Result, error) {
	p := &plan{id: uuid.NewString()}
	logger := s.logger.With(slog.String("invocation_id", p.id), slog.String("source", req.SourcePath))

	res, err := s.schedule(ctx, logger, req, p)
	if err != nil {
		logger.Warn("review rejected", slog.String("error", err.Error()))
		s.notify(ctx, Notice{
			Kind:         NoticeRejected,
			Message:      apperr.UserMessage(err),
			InvocationID: p.id,
			SourcePath:   req.SourcePath,
			DateKey:      p.target.DateKey,
		})
		return nil, err
	}

	logger.Info("review scheduled",
		slog.String("date", res.Target.DateKey),
		slog.String("daily_note", res.DailyNotePath),
		slog.Bool("created", res.Created),
		slog.String("anchor", res.Reference.Anchor),
	)
	s.notify(ctx, Notice{
		Kind:         NoticeScheduled,
		Message:      res.Message,
		InvocationID: p.id,
		SourcePath:   req.SourcePath,
		DateKey:      res.Target.DateKey,
		DailyNote:    res.DailyNotePath,
	})
	return res, nil
}

func (s *Scheduler) schedule(ctx context.Context, logger *slog.Logger, req Request, p *plan) (*Result, error) {
	if err := s.resolveDate(req, p); err != nil {
		return nil, err
	}
	if s.deps.Store == nil {
		return nil, fmt.Errorf("%w: no note store", apperr.ErrMissingCollaborator)
	}
	if req.SourcePath == "" {
		return nil, fmt.Errorf("%w: source path is empty", apperr.ErrNotFound)
	}

	unlock := s.locks.lock("date:"+p.target.DateKey, "note:"+req.SourcePath)
	defer unlock()

	if err := s.resolveTarget(ctx, req, p); err != nil {
		return nil, err
	}
	if err := s.resolveDailyNote(ctx, logger, p); err != nil {
		return nil, err
	}

	base := p.daily.RawText
	if p.rewritten != "" && p.ref.SourcePath == p.daily.Path {
		base = p.rewritten
		p.rewritten = ""
		p.inDaily = true
	}
	entry := p.prefix + "[[" + p.ref.LinkPath + "]]"
	p.merged = s.deps.Merger.Merge(base, s.settings.Heading, entry)

	if err := s.persist(ctx, logger, p); err != nil {
		return nil, err
	}

	return &Result{
		InvocationID:    p.id,
		Target:          p.target,
		Reference:       p.ref,
		Entry:           entry,
		DailyNotePath:   p.daily.Path,
		Created:         p.created,
		Templated:       p.daily.Template,
		SourceRewritten: p.rewritten != "" || p.inDaily,
		Message:         confirmation(p.ref.DisplayName, p.target.DateKey),
	}, nil
}

func (s *Scheduler) resolveDate(req Request, p *plan) error {
	target, err := s.Resolve(req.DateText)
	p.target = target
	return err
}

func (s *Scheduler) resolveTarget(ctx context.Context, req Request, p *plan) error {
	text, err := s.deps.Store.Read(ctx, req.SourcePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", apperr.ErrDocumentRead, req.SourcePath, err)
	}
	p.source = text

	display := displayName(req.SourcePath)
	linkText := display
	if s.deps.Index != nil {
		lt, err := s.deps.Index.ResolveLinkText(ctx, req.SourcePath)
		if err != nil {
			return fmt.Errorf("resolve link text %s: %w", req.SourcePath, err)
		}
		if lt != "" {
			linkText = lt
		}
	}
	p.ref = models.NoteReference{DisplayName: display, SourcePath: req.SourcePath, LinkPath: linkText}
	p.prefix = s.settings.LinePrefix

	if !req.blockMode() {
		return nil
	}

	lines := strings.Split(text, "\n")
	i, err := selectLine(lines, req)
	if err != nil {
		return err
	}

	var known []string
	if s.deps.Index != nil {
		known, err = s.deps.Index.BlockAnchors(ctx, req.SourcePath)
		if err != nil {
			return fmt.Errorf("block anchors %s: %w", req.SourcePath, err)
		}
	}
	line := strings.TrimRight(lines[i], "\r")
	anchor := blockref.FindAnchor(line, known)
	if anchor == "" {
		anchor = s.mint()
		lines[i] = blockref.Attach(line, anchor) + strings.TrimPrefix(lines[i], line)
		p.rewritten = strings.Join(lines, "\n")
	}

	p.ref.Anchor = anchor
	p.ref.LinkPath += "#^" + anchor
	p.prefix = s.settings.BlockPrefix
	return nil
}

// selectLine returns the index of the line req points at.
func selectLine(lines []string, req Request) (int, error) {
	if req.Line != 0 {
		if req.Line < 1 || req.Line > len(lines) {
			return 0, fmt.Errorf("%w: line %d out of range 1-%d", apperr.ErrInvalidLine, req.Line, len(lines))
		}
		i := req.Line - 1
		if strings.TrimSpace(lines[i]) == "" {
			return 0, fmt.Errorf("%w: line %d is blank", apperr.ErrInvalidLine, req.Line)
		}
		return i, nil
	}
	want := strings.TrimSpace(req.LineText)
	if want == "" {
		return 0, fmt.Errorf("%w: line text is blank", apperr.ErrInvalidLine)
	}
	for i, l := range lines {
		if strings.TrimSpace(l) == want {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: no line matches %q", apperr.ErrInvalidLine, want)
}

func (s *Scheduler) resolveDailyNote(ctx context.Context, logger *slog.Logger, p *plan) error {
	key := p.target.DateKey

	doc, found, err := s.findDaily(ctx, key)
	if err != nil {
		return err
	}
	if found {
		p.daily = doc
		return nil
	}

	if s.deps.Provisioner == nil {
		p.daily = models.DailyNoteDocument{Path: dailynote.PathFor(s.settings.DailyFolder, key)}
		return nil
	}

	notePath, err := s.deps.Provisioner.CreateForDate(ctx, p.target)
	if err != nil {
		return fmt.Errorf("%w: provision daily note %s: %w", apperr.ErrDocumentWrite, key, err)
	}
	p.created = true
	text, err := s.deps.Store.Read(ctx, notePath)
	if err != nil {
		s.discard(ctx, logger, notePath)
		return fmt.Errorf("%w: %s: %w", apperr.ErrDocumentRead, notePath, err)
	}
	p.daily = models.DailyNoteDocument{Path: notePath, RawText: text, Exists: true, Template: true}
	return nil
}

func (s *Scheduler) persist(ctx context.Context, logger *slog.Logger, p *plan) error {
	if p.daily.Exists {
		if err := s.deps.Store.Write(ctx, p.daily.Path, p.merged); err != nil {
			if p.created {
				s.discard(ctx, logger, p.daily.Path)
			}
			return fmt.Errorf("%w: %s: %w", apperr.ErrDocumentWrite, p.daily.Path, err)
		}
	} else {
		if err := s.deps.Store.Create(ctx, p.daily.Path, p.merged); err != nil {
			return fmt.Errorf("%w: %s: %w", apperr.ErrDocumentWrite, p.daily.Path, err)
		}
		p.created = true
	}

	if p.rewritten == "" {
		return nil
	}
	if err := s.deps.Store.Write(ctx, p.ref.SourcePath, p.rewritten); err != nil {
		s.rollbackDaily(ctx, logger, p)
		return fmt.Errorf("%w: %s: %w", apperr.ErrDocumentWrite, p.ref.SourcePath, err)
	}
	return nil
}

// rollbackDaily undoes the daily note write after the source note could
// not be saved.
func (s *Scheduler) rollbackDaily(ctx context.Context, logger *slog.Logger, p *plan) {
	if p.created {
		s.discard(ctx, logger, p.daily.Path)
		return
	}
	if err := s.deps.Store.Write(ctx, p.daily.Path, p.daily.RawText); err != nil {
		logger.Error("rollback daily note failed", slog.String("path", p.daily.Path), slog.String("error", err.Error()))
	}
}

func (s *Scheduler) discard(ctx context.Context, logger *slog.Logger, notePath string) {
	if err := s.deps.Store.Delete(ctx, notePath); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		logger.Error("remove daily note failed", slog.String("path", notePath), slog.String("error", err.Error()))
	}
}

func (s *Scheduler) notify(ctx context.Context, n Notice) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Notify(ctx, n)
	}
}

func confirmation(name, key string) string {
	return `Set note "` + name + `" for review on ` + key + "."
}

func displayName(p string) string {
	name := path.Base(p)
	return strings.TrimSuffix(name, path.Ext(name))
}
