package noteservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/tickler/internal/apperr"
	"github.com/starford/tickler/internal/index"
	"github.com/starford/tickler/internal/models"
	"github.com/starford/tickler/internal/review"
	"github.com/starford/tickler/internal/testutil"
)

var (
	_ review.NoteStore     = (*Service)(nil)
	_ review.MetadataIndex = (*Service)(nil)
)

func newTestService(t *testing.T, files map[string]string) *Service {
	t.Helper()
	root, store := testutil.TestVault(t)
	testutil.WriteNotes(t, root, files)
	svc := NewService(store, testutil.TestDB(t))
	for p, content := range files {
		if err := svc.Write(context.Background(), p, content); err != nil {
			t.Fatal(err)
		}
	}
	return svc
}

func TestCreate_IndexesBlocks(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if err := svc.Create(ctx, "n.md", "one ^aaa1111\ntwo ^bbb2222\n"); err != nil {
		t.Fatal(err)
	}
	ids, err := svc.BlockAnchors(ctx, "n.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "aaa1111" || ids[1] != "bbb2222" {
		t.Fatalf("anchors = %v", ids)
	}

	err = svc.Create(ctx, "n.md", "again")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestWrite_ReindexesAnchors(t *testing.T) {
	svc := newTestService(t, map[string]string{"n.md": "idea\n"})
	ctx := context.Background()

	if err := svc.Write(ctx, "n.md", "idea ^ccc3333\n"); err != nil {
		t.Fatal(err)
	}
	ids, _ := svc.BlockAnchors(ctx, "n.md")
	if len(ids) != 1 || ids[0] != "ccc3333" {
		t.Fatalf("anchors = %v", ids)
	}
}

func TestRead_NotFound(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Read(context.Background(), "missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestResolveLinkText(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"a/dup.md":  "x",
		"b/dup.md":  "y",
		"unique.md": "z",
	})
	ctx := context.Background()

	if got, _ := svc.ResolveLinkText(ctx, "unique.md"); got != "unique" {
		t.Errorf("unique = %q", got)
	}
	if got, _ := svc.ResolveLinkText(ctx, "a/dup.md"); got != "a/dup" {
		t.Errorf("dup = %q", got)
	}
}

func TestGetNote_Backlinks(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"target.md": "# Target\nline ^ddd4444\n",
		"src.md":    "see [[target]]\n",
	})
	d, err := svc.GetNote(context.Background(), "target.md")
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Target" {
		t.Errorf("title = %q", d.Title)
	}
	if len(d.Backlinks) != 1 || d.Backlinks[0] != "src.md" {
		t.Errorf("backlinks = %v", d.Backlinks)
	}
	if len(d.Blocks) != 1 || d.Blocks[0].ID != "ddd4444" {
		t.Errorf("blocks = %v", d.Blocks)
	}
}

func TestDelete_RemovesFromIndex(t *testing.T) {
	svc := newTestService(t, map[string]string{"n.md": "x"})
	ctx := context.Background()
	if err := svc.Delete(ctx, "n.md"); err != nil {
		t.Fatal(err)
	}
	items, total, err := svc.ListNotes(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("index still has %d notes", total)
	}
}

type brokenIndex struct {
	*index.DB
}

func (brokenIndex) UpsertNote(index.NoteRow, []string, []models.BlockAnchor) error {
	return errors.New("disk I/O error")
}

func TestWrite_IndexFailureKeepsSavedNote(t *testing.T) {
	root, store := testutil.TestVault(t)
	testutil.WriteNotes(t, root, map[string]string{"daily/2030-01-01.md": "# Day\n\n## Review\n"})
	svc := NewService(store, brokenIndex{testutil.TestDB(t)})
	ctx := context.Background()

	want := "# Day\n\n## Review\n- [[a]]\n"
	if err := svc.Write(ctx, "daily/2030-01-01.md", want); err != nil {
		t.Fatalf("write reported failure after saving: %v", err)
	}
	got, err := svc.Read(ctx, "daily/2030-01-01.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("note = %q, want %q", got, want)
	}

	if err := svc.Create(ctx, "daily/2030-01-02.md", "## Review\n"); err != nil {
		t.Fatalf("create reported failure after saving: %v", err)
	}
	if _, err := svc.Read(ctx, "daily/2030-01-02.md"); err != nil {
		t.Fatal(err)
	}
}
