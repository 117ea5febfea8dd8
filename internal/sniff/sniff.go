// Package sniff classifies a locator (URL or uploaded file) into the
// decoder path that should handle it. Classification is layered: upload
// filename extension is authoritative when present, known hosts and path
// shapes decide next, and everything else is delegated to the proxy fetch
// where the response content-type (or byte-level sniffing) decides.
package sniff

import (
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the sniffed decoder path.
type Kind string

const (
	KindPatent       Kind = "patent"
	KindPDF          Kind = "pdf"
	KindHTML         Kind = "html"
	KindSpreadsheet  Kind = "spreadsheet"
	KindWord         Kind = "word"
	KindPresentation Kind = "presentation"
	KindIframe       Kind = "iframe"
	KindDownload     Kind = "download"
)

const patentPDFPathSegment = "/patent/pdf/"

// ClassifyUpload dispatches purely on the filename extension, which is
// authoritative for uploads.
func ClassifyUpload(fileName string) Kind {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(fileName), ".")) {
	case "xlsx", "xls":
		return KindSpreadsheet
	case "doc", "docx":
		return KindWord
	case "ppt", "pptx":
		return KindPresentation
	case "pdf":
		return KindPDF
	default:
		return KindDownload
	}
}

// ClassifyURL decides the path for a URL locator. The second return is
// false when the URL alone is not decisive and the response content-type
// must classify instead (ClassifyContentType).
func ClassifyURL(rawURL string) (Kind, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return KindDownload, false
	}

	host := strings.ToLower(u.Hostname())
	if host == "patents.google.com" && strings.Contains(u.Path, "/patent") {
		return KindPatent, true
	}
	if host == "docs.google.com" || host == "drive.google.com" {
		return KindIframe, true
	}
	if IsPDFURL(rawURL) {
		return KindPDF, true
	}
	return KindDownload, false
}

// IsPDFURL reports whether a URL names a PDF by shape alone: a .pdf suffix
// or the patent-image PDF path segment.
func IsPDFURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, patentPDFPathSegment)
}

// IsDownloadLink classifies an intercepted in-page link click: links that
// look like downloads are downloaded directly instead of becoming a new
// content request. PDFs and patent PDFs are excluded because those render.
func IsDownloadLink(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return !strings.HasSuffix(lower, ".pdf") &&
		!strings.Contains(lower, patentPDFPathSegment) &&
		strings.Contains(lower, "download")
}

// ClassifyContentType maps a response Content-Type header to a kind.
// Parameters after ";" are ignored.
func ClassifyContentType(ct string) Kind {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i > 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	switch {
	case strings.Contains(ct, "text/html"):
		return KindHTML
	case strings.Contains(ct, "application/pdf"):
		return KindPDF
	case strings.Contains(ct, "spreadsheetml.sheet"),
		strings.Contains(ct, "application/vnd.ms-excel"):
		return KindSpreadsheet
	case strings.Contains(ct, "wordprocessingml.document"),
		strings.Contains(ct, "application/msword"):
		return KindWord
	case strings.Contains(ct, "presentationml.presentation"),
		strings.Contains(ct, "application/vnd.ms-powerpoint"):
		return KindPresentation
	default:
		return KindDownload
	}
}

// SniffBytes classifies a payload by content when the header was absent or
// generic (octet-stream). Returns the detected MIME string alongside.
func SniffBytes(data []byte) (Kind, string) {
	mt := mimetype.Detect(data)
	return ClassifyContentType(mt.String()), mt.String()
}
