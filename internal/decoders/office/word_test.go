package office

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/splitview/content-service/internal/content"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const wordDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Quarterly Report</w:t></w:r></w:p>
<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Revenue</w:t></w:r><w:r><w:t> grew this quarter.</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>First item</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Second item</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Region</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Total</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>West</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>42</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body>
</w:document>`

func TestDecodeWordStructure(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{"word/document.xml": wordDocumentXML})
	out, err := DecodeWord(data, "report.docx", 10<<20)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	for _, want := range []string{
		"<h1>Quarterly Report</h1>",
		"<strong>Revenue</strong>",
		"<ul><li>First item</li><li>Second item</li></ul>",
		">Region</th>",
		">West</td>",
		"max-width:800px",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

// Items at a deeper ilvl open a nested <ul> instead of rendering flat.
func TestDecodeWordNestedLists(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Parent</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="1"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Child</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Sibling</w:t></w:r></w:p>
<w:p><w:r><w:t>After</w:t></w:r></w:p>
</w:body>
</w:document>`

	data := buildZip(t, map[string]string{"word/document.xml": doc})
	out, err := DecodeWord(data, "outline.docx", 10<<20)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := "<ul><li>Parent</li><ul><li>Child</li></ul><li>Sibling</li></ul><p>After</p>"
	if !strings.Contains(out, want) {
		t.Fatalf("output missing %q:\n%s", want, out)
	}
}

func TestDecodeWordRejectsOversize(t *testing.T) {
	t.Parallel()

	_, err := DecodeWord(make([]byte, 11), "big.docx", 10)
	if !errors.Is(err, content.ErrSizeExceeded) {
		t.Fatalf("expected size error, got %v", err)
	}
	var de *content.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
}

func TestDecodeWordRejectsWrongExtension(t *testing.T) {
	t.Parallel()

	_, err := DecodeWord([]byte("x"), "notes.txt", 10<<20)
	if !errors.Is(err, content.ErrFormatUnsupported) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

// Legacy binary .doc is not a zip archive; the decoder reports a decode
// failure so the pane can fall back to offering the original for download.
func TestDecodeWordLegacyBinaryFailsAsDecodeError(t *testing.T) {
	t.Parallel()

	legacy := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 128)...)
	_, err := DecodeWord(legacy, "old.doc", 10<<20)
	var de *content.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeWordEmptyDocumentFails(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{
		"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body></w:body></w:document>`,
	})
	if _, err := DecodeWord(data, "empty.docx", 10<<20); err == nil {
		t.Fatalf("expected error for empty document")
	}
}
