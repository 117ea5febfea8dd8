package patent

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	patentImageHost = "patentimages.storage.googleapis.com"
	patentSiteBase  = "https://patents.google.com"
)

// HeadClient issues a HEAD request and follows redirects; the returned
// response's Request.URL is the final target. A non-2xx result surfaces
// as an error.
type HeadClient interface {
	Head(ctx context.Context, url string) (*http.Response, error)
}

// PDFLinkResolver discovers the PDF behind a patent page through three
// fallback stages, tried strictly in order until one verifies:
//
//  1. probe the page's /pdf endpoint and accept its redirect target,
//  2. scan the page's anchors for pdf/download candidates,
//  3. construct a CDN URL from the publication number.
//
// Every candidate is HEAD-verified against the patent-image CDN host and
// a .pdf suffix. When all stages fail the result is "", which the PDF tab
// reports as unavailable rather than an error.
type PDFLinkResolver struct {
	Client HeadClient
}

// Resolve returns the verified PDF URL or "".
func (r *PDFLinkResolver) Resolve(ctx context.Context, patentURL, html string, pubNumbers []string) string {
	if u := r.probeEndpoint(ctx, patentURL); u != "" {
		return u
	}
	if u := r.scanAnchors(ctx, html); u != "" {
		return u
	}
	return r.constructFromNumber(ctx, pubNumbers)
}

func (r *PDFLinkResolver) probeEndpoint(ctx context.Context, patentURL string) string {
	endpoint := patentURL + "/pdf"
	if strings.HasSuffix(patentURL, "/") {
		endpoint = patentURL + "pdf"
	}
	return r.verify(ctx, endpoint)
}

func (r *PDFLinkResolver) scanAnchors(ctx context.Context, html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var candidate string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		text := strings.ToLower(a.Text())
		hrefLooksPDF := strings.Contains(href, "/pdf") ||
			strings.Contains(href, "download") ||
			strings.HasSuffix(href, ".pdf")
		textLooksPDF := strings.Contains(text, "download") || strings.Contains(text, "pdf")
		if href != "" && hrefLooksPDF && textLooksPDF {
			candidate = href
			return false
		}
		return true
	})
	if candidate == "" {
		return ""
	}

	if !strings.HasPrefix(candidate, "http") {
		candidate = patentSiteBase + candidate
	}
	return r.verify(ctx, candidate)
}

func (r *PDFLinkResolver) constructFromNumber(ctx context.Context, pubNumbers []string) string {
	if len(pubNumbers) == 0 {
		return ""
	}
	constructed := "https://" + patentImageHost + "/patents/" + strings.ToLower(pubNumbers[0]) + ".pdf"
	return r.verify(ctx, constructed)
}

// verify HEADs the candidate and accepts the final redirect target only if
// it lives on the patent-image CDN and ends in .pdf.
func (r *PDFLinkResolver) verify(ctx context.Context, candidate string) string {
	resp, err := r.Client.Head(ctx, candidate)
	if err != nil {
		return ""
	}
	resp.Body.Close()

	final := candidate
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	u, err := url.Parse(final)
	if err != nil {
		return ""
	}
	if u.Hostname() != patentImageHost || !strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return ""
	}
	return final
}
