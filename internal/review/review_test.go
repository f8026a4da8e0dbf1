package review

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/tickler/internal/apperr"
	"github.com/starford/tickler/internal/blockref"
	"github.com/starford/tickler/internal/dates"
	"github.com/starford/tickler/internal/models"
)

type memStore struct {
	mu      sync.Mutex
	files   map[string]string
	failOn  map[string]error // Write failures by path
	writes  int
	creates int
	deleted []string
}

func newMemStore(files map[string]string) *memStore {
	if files == nil {
		files = map[string]string{}
	}
	return &memStore{files: files, failOn: map[string]error{}}
}

func (m *memStore) List(context.Context) ([]models.NoteMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.NoteMetadata
	for p := range m.files {
		name := path.Base(p)
		out = append(out, models.NoteMetadata{Path: p, Name: name, Basename: strings.TrimSuffix(name, ".md")})
	}
	return out, nil
}

func (m *memStore) Read(_ context.Context, p string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.files[p]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return s, nil
}

func (m *memStore) Write(_ context.Context, p, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[p]; err != nil {
		return err
	}
	m.writes++
	m.files[p] = text
	return nil
}

func (m *memStore) Create(_ context.Context, p, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; ok {
		return apperr.ErrAlreadyExists
	}
	m.creates++
	m.files[p] = text
	return nil
}

func (m *memStore) Delete(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, p)
	m.deleted = append(m.deleted, p)
	return nil
}

func (m *memStore) get(p string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.files[p]
	return s, ok
}

type fakeIndex struct {
	anchors  map[string][]string
	linkText map[string]string
}

func (f *fakeIndex) BlockAnchors(_ context.Context, p string) ([]string, error) {
	return f.anchors[p], nil
}

func (f *fakeIndex) ResolveLinkText(_ context.Context, p string) (string, error) {
	if lt, ok := f.linkText[p]; ok {
		return lt, nil
	}
	return strings.TrimSuffix(path.Base(p), ".md"), nil
}

type fakeProvisioner struct {
	store    *memStore
	template string
}

func (f *fakeProvisioner) CreateForDate(ctx context.Context, t models.ReviewTarget) (string, error) {
	p := "daily/" + t.DateKey + ".md"
	return p, f.store.Create(ctx, p, f.template)
}

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

// parser is fixed to 2024-05-01, so "tomorrow" is 2024-05-02.
func parser() *dates.Parser {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return dates.NewParser("", dates.WithClock(func() time.Time { return now }))
}

func newScheduler(store *memStore, idx *fakeIndex, rec *recorder) *Scheduler {
	if idx == nil {
		idx = &fakeIndex{}
	}
	deps := Deps{
		Parser:   parser(),
		Store:    store,
		Index:    idx,
		Minter:   blockref.NewMinter(rand.NewPCG(1, 2)),
		Settings: Settings{DailyFolder: "daily"},
	}
	if rec != nil {
		deps.Notifier = rec
	}
	return New(deps)
}

func TestSchedule_CreatesDailyNote(t *testing.T) {
	store := newMemStore(map[string]string{"projects/Note A.md": "# Note A\n"})
	rec := &recorder{}
	s := newScheduler(store, nil, rec)

	res, err := s.Schedule(context.Background(), Request{SourcePath: "projects/Note A.md", DateText: "tomorrow"})
	if err != nil {
		t.Fatal(err)
	}
	if res.DailyNotePath != "daily/2024-05-02.md" || !res.Created {
		t.Fatalf("unexpected result: %+v", res)
	}
	got, _ := store.get("daily/2024-05-02.md")
	if got != "## Review\n- [[Note A]]" {
		t.Fatalf("daily note = %q", got)
	}
	if store.creates != 1 || store.writes != 0 {
		t.Fatalf("creates=%d writes=%d", store.creates, store.writes)
	}
	want := `Set note "Note A" for review on 2024-05-02.`
	if res.Message != want {
		t.Fatalf("message = %q", res.Message)
	}
	if n := rec.last(); n.Kind != NoticeScheduled || n.Message != want || n.InvocationID == "" {
		t.Fatalf("notice = %+v", n)
	}
}

func TestSchedule_DefaultDate(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": "x"})
	s := newScheduler(store, nil, nil)

	res, err := s.Schedule(context.Background(), Request{SourcePath: "a.md"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Target.DateKey != "2024-05-02" || res.Target.DateInput != "tomorrow" {
		t.Fatalf("target = %+v", res.Target)
	}
}

func TestSchedule_ExistingDailyNoteByBasename(t *testing.T) {
	store := newMemStore(map[string]string{
		"a.md":                  "x",
		"journal/2024-05-02.md": "# Daily\n\n## Review\n- [[Old]]\n",
	})
	s := newScheduler(store, &fakeIndex{linkText: map[string]string{"a.md": "a"}}, nil)

	res, err := s.Schedule(context.Background(), Request{SourcePath: "a.md", DateText: "tomorrow"})
	if err != nil {
		t.Fatal(err)
	}
	if res.DailyNotePath != "journal/2024-05-02.md" || res.Created {
		t.Fatalf("result = %+v", res)
	}
	got, _ := store.get("journal/2024-05-02.md")
	if got != "# Daily\n\n## Review\n- [[a]]\n- [[Old]]\n" {
		t.Fatalf("daily note = %q", got)
	}
	if _, ok := store.get("daily/2024-05-02.md"); ok {
		t.Fatal("a second daily note was created")
	}
}

func TestSchedule_LinkTextFromIndex(t *testing.T) {
	store := newMemStore(map[string]string{"x/dup.md": "x", "y/dup.md": "y"})
	s := newScheduler(store, &fakeIndex{linkText: map[string]string{"x/dup.md": "x/dup"}}, nil)

	res, err := s.Schedule(context.Background(), Request{SourcePath: "x/dup.md", DateText: "2024-06-01"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Entry != "- [[x/dup]]" || res.Reference.DisplayName != "dup" {
		t.Fatalf("result = %+v", res)
	}
}

func TestSchedule_InvalidDateLeavesVaultUntouched(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": "x"})
	rec := &recorder{}
	s := newScheduler(store, nil, rec)

	_, err := s.Schedule(context.Background(), Request{SourcePath: "a.md", DateText: "two weeks"})
	if !errors.Is(err, apperr.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if store.writes != 0 || store.creates != 0 || len(store.files) != 1 {
		t.Fatalf("vault mutated: writes=%d creates=%d files=%d", store.writes, store.creates, len(store.files))
	}
	n := rec.last()
	if n.Kind != NoticeRejected || !strings.Contains(n.Message, `"in two weeks" will`) {
		t.Fatalf("notice = %+v", n)
	}
}

func TestSchedule_MissingParser(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": "x"})
	s := New(Deps{Store: store})

	_, err := s.Schedule(context.Background(), Request{SourcePath: "a.md"})
	if !errors.Is(err, apperr.ErrMissingCollaborator) {
		t.Fatalf("expected ErrMissingCollaborator, got %v", err)
	}
	if store.creates != 0 {
		t.Fatal("vault mutated")
	}
}

func TestSchedule_UnknownSource(t *testing.T) {
	store := newMemStore(nil)
	s := newScheduler(store, nil, nil)

	_, err := s.Schedule(context.Background(), Request{SourcePath: "missing.md"})
	if !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, apperr.ErrDocumentRead) {
		t.Fatalf("expected not found read error, got %v", err)
	}
	if len(store.files) != 0 {
		t.Fatal("vault mutated")
	}
}

func TestSchedule_BlockMintsAnchor(t *testing.T) {
	store := newMemStore(map[string]string{"Note A.md": "# Note A\nfirst idea\nsecond idea\n"})
	s := newScheduler(store, nil, nil)

	res, err := s.Schedule(context.Background(), Request{SourcePath: "Note A.md", DateText: "tomorrow", Line: 2})
	if err != nil {
		t.Fatal(err)
	}
	anchor := res.Reference.Anchor
	if len(anchor) != blockref.AnchorLen {
		t.Fatalf("anchor = %q", anchor)
	}
	if res.Reference.LinkPath != "Note A#^"+anchor {
		t.Fatalf("link path = %q", res.Reference.LinkPath)
	}
	if res.Entry != "![[Note A#^"+anchor+"]]" || !res.SourceRewritten {
		t.Fatalf("result = %+v", res)
	}
	src, _ := store.get("Note A.md")
	if src != "# Note A\nfirst idea ^"+anchor+"\nsecond idea\n" {
		t.Fatalf("source = %q", src)
	}
	daily, _ := store.get("daily/2024-05-02.md")
	if daily != "## Review\n"+res.Entry {
		t.Fatalf("daily = %q", daily)
	}
}

func TestSchedule_BlockFromTargetDailyNote(t *testing.T) {
	store := newMemStore(map[string]string{"daily/2024-05-02.md": "# Thu\nidea line\n"})
	s := newScheduler(store, nil, nil)

	res, err := s.Schedule(context.Background(), Request{SourcePath: "daily/2024-05-02.md", DateText: "tomorrow", Line: 2})
	if err != nil {
		t.Fatal(err)
	}
	anchor := res.Reference.Anchor
	if res.Entry != "![[2024-05-02#^"+anchor+"]]" || !res.SourceRewritten {
		t.Fatalf("result = %+v", res)
	}
	got, _ := store.get("daily/2024-05-02.md")
	want := "# Thu\nidea line ^" + anchor + "\n\n## Review\n" + res.Entry + "\n"
	if got != want {
		t.Fatalf("daily = %q, want %q", got, want)
	}
	if store.writes != 1 {
		t.Fatalf("writes = %d, want a single write", store.writes)
	}
}

func TestSchedule_BlockReusesAnchor(t *testing.T) {
	source := "intro\nthe idea ^abc1234\n"
	store := newMemStore(map[string]string{"n.md": source})
	idx := &fakeIndex{anchors: map[string][]string{"n.md": {"abc1234"}}}
	s := newScheduler(store, idx, nil)

	res, err := s.Schedule(context.Background(), Request{SourcePath: "n.md", DateText: "tomorrow", LineText: "the idea ^abc1234"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reference.Anchor != "abc1234" || res.SourceRewritten {
		t.Fatalf("result = %+v", res)
	}
	if src, _ := store.get("n.md"); src != source {
		t.Fatalf("source rewritten: %q", src)
	}
}

func TestSchedule_BlockInvalidLine(t *testing.T) {
	store := newMemStore(map[string]string{"n.md": "one\n\nthree"})
	s := newScheduler(store, nil, nil)

	for _, req := range []Request{
		{SourcePath: "n.md", Line: 9},
		{SourcePath: "n.md", Line: 2},
		{SourcePath: "n.md", LineText: "four"},
	} {
		_, err := s.Schedule(context.Background(), req)
		if !errors.Is(err, apperr.ErrInvalidLine) {
			t.Errorf("%+v: expected ErrInvalidLine, got %v", req, err)
		}
	}
	if len(store.files) != 1 {
		t.Fatal("vault mutated")
	}
}

func TestSchedule_TemplatedDailyNote(t *testing.T) {
	store := newMemStore(map[string]string{"a.md": "x"})
	s := New(Deps{
		Parser:      parser(),
		Store:       store,
		Provisioner: &fakeProvisioner{store: store, template: "# Thursday\n\n## Review\n\n## Log\n"},
	})

	res, err := s.Schedule(context.Background(), Request{SourcePath: "a.md"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Templated || !res.Created {
		t.Fatalf("result = %+v", res)
	}
	got, _ := store.get("daily/2024-05-02.md")
	if got != "# Thursday\n\n## Review\n- [[a]]\n\n## Log\n" {
		t.Fatalf("daily = %q", got)
	}
	if store.creates != 1 || store.writes != 1 {
		t.Fatalf("creates=%d writes=%d", store.creates, store.writes)
	}
}

func TestSchedule_SourceWriteFailureRestoresDailyNote(t *testing.T) {
	original := "# Daily\n"
	store := newMemStore(map[string]string{
		"n.md":                "idea\n",
		"daily/2024-05-02.md": original,
	})
	store.failOn["n.md"] = errors.New("disk full")
	s := newScheduler(store, nil, nil)

	_, err := s.Schedule(context.Background(), Request{SourcePath: "n.md", Line: 1})
	if !errors.Is(err, apperr.ErrDocumentWrite) {
		t.Fatalf("expected ErrDocumentWrite, got %v", err)
	}
	if got, _ := store.get("daily/2024-05-02.md"); got != original {
		t.Fatalf("daily note not restored: %q", got)
	}
	if got, _ := store.get("n.md"); got != "idea\n" {
		t.Fatalf("source changed: %q", got)
	}
}

func TestSchedule_SourceWriteFailureRemovesNewDailyNote(t *testing.T) {
	store := newMemStore(map[string]string{"n.md": "idea\n"})
	store.failOn["n.md"] = errors.New("disk full")
	s := newScheduler(store, nil, nil)

	_, err := s.Schedule(context.Background(), Request{SourcePath: "n.md", Line: 1})
	if !errors.Is(err, apperr.ErrDocumentWrite) {
		t.Fatalf("expected ErrDocumentWrite, got %v", err)
	}
	if _, ok := store.get("daily/2024-05-02.md"); ok {
		t.Fatal("new daily note left behind")
	}
}

func TestSchedule_ConcurrentSameDay(t *testing.T) {
	files := map[string]string{"daily/2024-05-02.md": "## Review\n"}
	for i := range 20 {
		files[fmt.Sprintf("n%02d.md", i)] = "x"
	}
	store := newMemStore(files)
	s := newScheduler(store, nil, nil)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Schedule(context.Background(), Request{SourcePath: fmt.Sprintf("n%02d.md", i)}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, _ := store.get("daily/2024-05-02.md")
	for i := range 20 {
		if !strings.Contains(got, fmt.Sprintf("- [[n%02d]]", i)) {
			t.Fatalf("entry %d lost:\n%s", i, got)
		}
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := New(Deps{})
	got := s.Settings()
	if got.Heading != DefaultHeading || got.LinePrefix != DefaultLinePrefix ||
		got.BlockPrefix != DefaultBlockPrefix || got.DefaultDate != DefaultDate {
		t.Fatalf("settings = %+v", got)
	}
}

func TestKeyedLocks(t *testing.T) {
	var k keyedLocks
	unlock := k.lock("b", "a", "b")
	done := make(chan struct{})
	go func() {
		u := k.lock("a")
		u()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("lock on a was not held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-done
	if len(k.m) != 0 {
		t.Fatalf("locks leaked: %d", len(k.m))
	}
}

func TestDailyNote(t *testing.T) {
	store := newMemStore(map[string]string{"journal/2024-05-02.md": "## Review\n- [[a]]"})
	s := newScheduler(store, nil, nil)

	target, doc, err := s.DailyNote(context.Background(), "tomorrow")
	if err != nil {
		t.Fatal(err)
	}
	if target.DateKey != "2024-05-02" || doc.Path != "journal/2024-05-02.md" || doc.RawText != "## Review\n- [[a]]" {
		t.Fatalf("target=%+v doc=%+v", target, doc)
	}

	_, _, err = s.DailyNote(context.Background(), "2024-05-03")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	s := newScheduler(newMemStore(nil), nil, nil)
	if _, err := s.Resolve("in two weeks"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Resolve("two weeks"); !errors.Is(err, apperr.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := New(Deps{}).Resolve("today"); !errors.Is(err, apperr.ErrMissingCollaborator) {
		t.Fatalf("expected ErrMissingCollaborator, got %v", err)
	}
}
