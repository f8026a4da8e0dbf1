// Package dailynote creates date-named daily notes, optionally seeded from a
// template file kept in the vault.
package dailynote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/starford/tickler/internal/apperr"
	"github.com/starford/tickler/internal/models"
)

// Store is the subset of note storage the provisioner needs.
type Store interface {
	Read(ctx context.Context, path string) (string, error)
	Create(ctx context.Context, path, text string) error
}

// Config controls where daily notes live and what they start with.
type Config struct {
	Folder   string // vault-relative folder, empty for the vault root
	Template string // vault-relative template path, empty for none
}

// Provisioner creates daily notes from a template.
type Provisioner struct {
	store  Store
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// New returns a Provisioner. A nil logger discards output.
func New(store Store, cfg Config, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provisioner{store: store, cfg: cfg, now: time.Now, logger: logger}
}

// PathFor returns the vault path of the daily note named key.
func PathFor(folder, key string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return key + ".md"
	}
	return path.Join(folder, key+".md")
}

// CreateForDate creates the daily note for target from the configured
// template and returns its path. A missing template file yields an empty note.
func (p *Provisioner) CreateForDate(ctx context.Context, target models.ReviewTarget) (string, error) {
	notePath := PathFor(p.cfg.Folder, target.DateKey)

	var content string
	if p.cfg.Template != "" {
		tmpl, err := p.store.Read(ctx, templatePath(p.cfg.Template))
		switch {
		case err == nil:
			content = Apply(tmpl, NewVariables(target, p.now()))
		case errors.Is(err, apperr.ErrNotFound), errors.Is(err, os.ErrNotExist):
			p.logger.Warn("daily note template not found", slog.String("template", p.cfg.Template))
		default:
			return "", fmt.Errorf("read template %s: %w", p.cfg.Template, err)
		}
	}

	if err := p.store.Create(ctx, notePath, content); err != nil {
		return "", fmt.Errorf("create daily note %s: %w", notePath, err)
	}
	p.logger.Info("daily note created", slog.String("path", notePath), slog.Bool("template", content != ""))
	return notePath, nil
}

func templatePath(p string) string {
	p = strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
	if !strings.HasSuffix(p, ".md") {
		p += ".md"
	}
	return p
}

// Variables are the values substituted into a daily note template.
type Variables struct {
	Title   string
	Date    string
	Time    string
	Weekday string
	date    time.Time
}

// NewVariables builds template variables for the daily note of target.
// now supplies {{time}}.
func NewVariables(target models.ReviewTarget, now time.Time) Variables {
	return Variables{
		Title:   target.DateKey,
		Date:    target.DateKey,
		Time:    now.Format("15:04"),
		Weekday: target.Date.Weekday().String(),
		date:    target.Date,
	}
}

var layoutVarRe = regexp.MustCompile(`\{\{date:([^}]+)\}\}`)

const escOpen = "\x00esc-open\x00"

// Apply substitutes {{title}}, {{date}}, {{time}}, {{weekday}} and
// {{date:LAYOUT}} (a Go time layout). Unknown variables are left as-is and
// \{{ produces a literal {{.
func Apply(content string, vars Variables) string {
	if content == "" {
		return content
	}
	content = strings.ReplaceAll(content, `\{{`, escOpen)

	content = layoutVarRe.ReplaceAllStringFunc(content, func(m string) string {
		layout := layoutVarRe.FindStringSubmatch(m)[1]
		return vars.date.Format(strings.TrimSpace(layout))
	})
	r := strings.NewReplacer(
		"{{title}}", vars.Title,
		"{{date}}", vars.Date,
		"{{time}}", vars.Time,
		"{{weekday}}", vars.Weekday,
	)
	content = r.Replace(content)

	return strings.ReplaceAll(content, escOpen, "{{")
}
