package pane

import (
	"testing"

	"github.com/splitview/content-service/internal/blob"
	"github.com/splitview/content-service/internal/content"
)

// A newer request must win even when the older one resolves later.
func TestCommitDiscardsSupersededResult(t *testing.T) {
	t.Parallel()

	p := New("pane-1", blob.NewStore())

	reqA, ok := p.Begin("https://example.com/a")
	if !ok {
		t.Fatalf("request A refused")
	}
	reqB, ok := p.Begin("https://example.com/b")
	if !ok {
		t.Fatalf("request B refused")
	}

	// B resolves first and commits.
	if !p.Commit(reqB, content.HTML("<p>B</p>")) {
		t.Fatalf("B should commit")
	}
	// A resolves late; its result must be dropped.
	if p.Commit(reqA, content.HTML("<p>A</p>")) {
		t.Fatalf("stale A must not commit")
	}

	if got := p.Content().Markup; got != "<p>B</p>" {
		t.Fatalf("pane shows %q", got)
	}
	if p.State() != StateReady {
		t.Fatalf("state = %q", p.State())
	}
}

// A stale result's blob handles are released on discard, and a committed
// result's handles are released when the next commit replaces it: at no
// point may a pane hold more than one live handle.
func TestObjectURLLifecycleAcrossLocatorSwitches(t *testing.T) {
	t.Parallel()

	store := blob.NewStore()
	p := New("pane-1", store)

	reqA, _ := p.Begin("https://example.com/a.pdf")
	urlA := store.Put(p.ID(), "application/pdf", "a.pdf", []byte("A"))
	if !p.Commit(reqA, content.PDF(urlA)) {
		t.Fatalf("A should commit")
	}
	if store.CountOwner(p.ID()) != 1 {
		t.Fatalf("after A: %d handles", store.CountOwner(p.ID()))
	}

	reqB, _ := p.Begin("https://example.com/b.pdf")
	urlB := store.Put(p.ID(), "application/pdf", "b.pdf", []byte("B"))
	if !p.Commit(reqB, content.PDF(urlB)) {
		t.Fatalf("B should commit")
	}
	if store.CountOwner(p.ID()) != 1 {
		t.Fatalf("after B: %d handles", store.CountOwner(p.ID()))
	}
	if _, ok := store.Get(urlA); ok {
		t.Fatalf("A's handle not released")
	}

	// A third request whose stale predecessor resolves afterwards.
	reqC, _ := p.Begin("https://example.com/c.pdf")
	urlStale := store.Put(p.ID(), "application/pdf", "stale.pdf", []byte("S"))
	if p.Commit(content.Request{ID: reqB.ID}, content.PDF(urlStale)) {
		t.Fatalf("stale commit accepted")
	}
	if _, ok := store.Get(urlStale); ok {
		t.Fatalf("stale handle not released")
	}

	urlC := store.Put(p.ID(), "application/pdf", "c.pdf", []byte("C"))
	if !p.Commit(reqC, content.PDF(urlC)) {
		t.Fatalf("C should commit")
	}
	if store.CountOwner(p.ID()) != 1 {
		t.Fatalf("after C: %d handles", store.CountOwner(p.ID()))
	}
}

// Re-requesting the locator the pane already shows is a no-op.
func TestIdenticalLocatorDebounced(t *testing.T) {
	t.Parallel()

	p := New("pane-1", blob.NewStore())

	req, ok := p.Begin("https://example.com/page")
	if !ok {
		t.Fatalf("first request refused")
	}
	p.Commit(req, content.HTML("<p>hi</p>"))

	if _, ok := p.Begin("https://example.com/page"); ok {
		t.Fatalf("identical locator should debounce")
	}
	if p.State() != StateReady {
		t.Fatalf("state = %q", p.State())
	}

	// A different locator always goes through.
	if _, ok := p.Begin("https://example.com/other"); !ok {
		t.Fatalf("new locator refused")
	}
}

func TestUploadsNeverDebounced(t *testing.T) {
	t.Parallel()

	p := New("pane-1", blob.NewStore())

	reqA, _ := p.BeginUpload("book.xlsx", []byte("v1"))
	p.Commit(reqA, content.Spreadsheet([]content.Sheet{{Name: "Sheet1"}}))

	if _, ok := p.BeginUpload("book.xlsx", []byte("v2")); !ok {
		t.Fatalf("re-upload of same filename refused")
	}
}

func TestErrorContentFailsThePane(t *testing.T) {
	t.Parallel()

	p := New("pane-1", blob.NewStore())
	req, _ := p.Begin("https://example.com/broken")
	p.Commit(req, content.Errorf("fetch failed"))

	if p.State() != StateFailed {
		t.Fatalf("state = %q", p.State())
	}
	if p.Content().Message != "fetch failed" {
		t.Fatalf("message = %q", p.Content().Message)
	}
}

func TestUnmountSweepsOwnerHandles(t *testing.T) {
	t.Parallel()

	store := blob.NewStore()
	p := New("pane-1", store)

	req, _ := p.Begin("https://example.com/a.pdf")
	url := store.Put(p.ID(), "application/pdf", "a.pdf", []byte("A"))
	p.Commit(req, content.PDF(url))

	// An orphan handle tagged with the pane but not referenced by content.
	store.Put(p.ID(), "image/png", "thumb.png", []byte("img"))

	p.Unmount()
	if store.CountOwner(p.ID()) != 0 {
		t.Fatalf("handles after unmount: %d", store.CountOwner(p.ID()))
	}
	if p.State() != StateIdle {
		t.Fatalf("state = %q", p.State())
	}
}
