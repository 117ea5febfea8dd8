package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/splitview/content-service/internal/blob"
	"github.com/splitview/content-service/internal/content"
	"github.com/splitview/content-service/internal/fetch"
	"github.com/splitview/content-service/internal/sniff"
)

func newTestResolver(t *testing.T) (*Resolver, *blob.Store) {
	t.Helper()
	client := fetch.New(5 * time.Second)
	client.MaxAttempts = 1
	store := blob.NewStore()
	return New(client, store, nil, 50<<20, 10<<20, zerolog.Nop()), store
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", "hello"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

func TestResolveUploadSpreadsheet(t *testing.T) {
	t.Parallel()

	rs, _ := newTestResolver(t)
	c := rs.Resolve(context.Background(), "pane-1", content.Request{
		ID: 1, IsUpload: true, FileName: "book.xlsx", Data: workbookBytes(t),
	})

	if c.Type != content.TypeSpreadsheet {
		t.Fatalf("type = %q (%s)", c.Type, c.Message)
	}
	if len(c.Sheets) != 1 || c.Sheets[0].Grid[0][0] != "hello" {
		t.Fatalf("sheets = %+v", c.Sheets)
	}
}

// A corrupt Office payload degrades to download-only carrying the
// original bytes, never a hard error.
func TestResolveCorruptUploadDegradesToDownload(t *testing.T) {
	t.Parallel()

	rs, store := newTestResolver(t)
	c := rs.Resolve(context.Background(), "pane-1", content.Request{
		ID: 1, IsUpload: true, FileName: "broken.docx", Data: []byte("not a zip at all"),
	})

	if c.Type != content.TypeDownload {
		t.Fatalf("type = %q", c.Type)
	}
	if !strings.HasPrefix(c.ObjectURL, "/api/blob/") {
		t.Fatalf("object url = %q", c.ObjectURL)
	}
	if store.CountOwner("pane-1") != 1 {
		t.Fatalf("owner blobs = %d", store.CountOwner("pane-1"))
	}
}

func TestResolveLegacyPPTIsDownloadOnly(t *testing.T) {
	t.Parallel()

	rs, _ := newTestResolver(t)
	c := rs.Resolve(context.Background(), "pane-1", content.Request{
		ID: 1, IsUpload: true, FileName: "deck.ppt", Data: []byte("legacy bytes"),
	})

	if c.Type != content.TypeDownload {
		t.Fatalf("type = %q", c.Type)
	}
	if !strings.Contains(c.Message, ".ppt") {
		t.Fatalf("message = %q", c.Message)
	}
}

func TestResolveOversizeUploadIsTerminalError(t *testing.T) {
	t.Parallel()

	client := fetch.New(time.Second)
	rs := New(client, blob.NewStore(), nil, 50<<20, 8, zerolog.Nop())

	c := rs.Resolve(context.Background(), "pane-1", content.Request{
		ID: 1, IsUpload: true, FileName: "big.xlsx", Data: make([]byte, 64),
	})
	if c.Type != content.TypeError {
		t.Fatalf("type = %q", c.Type)
	}
}

func TestResolveGoogleDocsURLBecomesIframe(t *testing.T) {
	t.Parallel()

	rs, _ := newTestResolver(t)
	c := rs.Resolve(context.Background(), "pane-1", content.Request{
		ID: 1, URL: "https://docs.google.com/document/d/abc/edit",
	})
	if c.Type != content.TypeIframe || c.URL == "" {
		t.Fatalf("content = %+v", c)
	}
}

func TestResolveHTMLPageRewrittenAndHooked(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><a href="/about">About</a></body></html>`))
	}))
	defer upstream.Close()

	rs, _ := newTestResolver(t)
	c := rs.Resolve(context.Background(), "pane-1", content.Request{ID: 1, URL: upstream.URL + "/index"})

	if c.Type != content.TypeHTML {
		t.Fatalf("type = %q (%s)", c.Type, c.Message)
	}
	if !strings.Contains(c.Markup, `href="`+upstream.URL+`/about"`) {
		t.Fatalf("link not rewritten: %s", c.Markup)
	}
	if !strings.Contains(c.Markup, "linkClick") {
		t.Fatalf("click hook not injected")
	}
}

func TestResolveRemotePDFStoredAsBlob(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer upstream.Close()

	rs, store := newTestResolver(t)
	c := rs.Resolve(context.Background(), "pane-1", content.Request{ID: 1, URL: upstream.URL + "/doc"})

	if c.Type != content.TypePDF {
		t.Fatalf("type = %q (%s)", c.Type, c.Message)
	}
	entry, ok := store.Get(c.ObjectURL)
	if !ok || entry.ContentType != "application/pdf" {
		t.Fatalf("blob entry = %+v ok=%v", entry, ok)
	}
}

func TestResolveFetchFailureIsError(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	rs, _ := newTestResolver(t)
	c := rs.Resolve(context.Background(), "pane-1", content.Request{ID: 1, URL: upstream.URL + "/page"})

	if c.Type != content.TypeError {
		t.Fatalf("type = %q", c.Type)
	}
	if !strings.Contains(c.Message, "404") {
		t.Fatalf("message should name the status: %q", c.Message)
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if _, err := reg.Resolve(sniff.KindWord); err == nil {
		t.Fatalf("expected error for empty registry")
	}
}
