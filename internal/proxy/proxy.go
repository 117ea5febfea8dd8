// Package proxy implements the relay endpoints that fetch remote pages on
// behalf of the viewer. Responses pass through verbatim with the upstream
// content-type, except Google Patents pages, which come back as a
// structured JSON record instead of raw HTML.
package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/splitview/content-service/internal/content"
	"github.com/splitview/content-service/internal/fetch"
	"github.com/splitview/content-service/internal/patent"
	"github.com/splitview/content-service/internal/sniff"
)

const maxUnwrapDepth = 4

// Service serves /api/proxy and /api/proxy-pdf. The probe client is
// separate from the page client so HEAD verification is not retried.
type Service struct {
	Pages    *fetch.Client
	Resolver *patent.PDFLinkResolver
	MaxBytes int64
	Log      zerolog.Logger
}

// UnwrapNested strips layers of /api/proxy?url= indirection from a target
// URL. Pages rendered through the relay rewrite their links against the
// relay host, so a clicked link can arrive double-wrapped. Depth is bounded
// to keep a self-referencing target from looping.
func UnwrapNested(target string) string {
	for i := 0; i < maxUnwrapDepth; i++ {
		u, err := url.Parse(target)
		if err != nil {
			return target
		}
		if !strings.HasSuffix(u.Path, "/api/proxy") {
			return target
		}
		inner := u.Query().Get("url")
		if inner == "" {
			return target
		}
		target = inner
	}
	return target
}

// HandleProxy relays the target URL. A patent page is extracted into
// {"type":"patent","data":...}; everything else streams through with its
// original content-type, PDFs forced inline so browsers render rather
// than download them.
func (s *Service) HandleProxy(w http.ResponseWriter, r *http.Request) {
	target := UnwrapNested(r.URL.Query().Get("url"))
	if target == "" {
		writeErr(w, http.StatusBadRequest, "validation_failed", "url query parameter required")
		return
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		writeErr(w, http.StatusBadRequest, "validation_failed", "invalid target url")
		return
	}

	if kind, ok := sniff.ClassifyURL(target); ok && kind == sniff.KindPatent {
		s.handlePatent(w, r, target)
		return
	}

	resp, err := s.Pages.Get(r.Context(), target)
	if err != nil {
		s.Log.Warn().Str("url", target).Err(err).Msg("proxy fetch failed")
		writeErr(w, http.StatusBadGateway, "upstream_failed", err.Error())
		return
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if strings.Contains(ct, "application/pdf") {
		w.Header().Set("Content-Disposition", "inline")
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, io.LimitReader(resp.Body, s.MaxBytes)); err != nil {
		s.Log.Warn().Str("url", target).Err(err).Msg("proxy stream aborted")
	}
}

func (s *Service) handlePatent(w http.ResponseWriter, r *http.Request, target string) {
	resp, err := s.Pages.Get(r.Context(), target)
	if err != nil {
		writeErr(w, http.StatusBadGateway, "upstream_failed", err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.MaxBytes))
	if err != nil {
		writeErr(w, http.StatusBadGateway, "upstream_failed", err.Error())
		return
	}

	rec := patent.Extract(string(body), target)
	if s.Resolver != nil {
		rec.PDFURL = s.Resolver.Resolve(r.Context(), target, string(body), rec.PublicationNumbers)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type": string(content.TypePatent),
		"data": rec,
	})
}

// HandleProxyPDF streams the target as an inline PDF regardless of the
// upstream content-type header; patent image CDNs occasionally answer
// with octet-stream.
func (s *Service) HandleProxyPDF(w http.ResponseWriter, r *http.Request) {
	target := UnwrapNested(r.URL.Query().Get("url"))
	if target == "" {
		writeErr(w, http.StatusBadRequest, "validation_failed", "url query parameter required")
		return
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		writeErr(w, http.StatusBadRequest, "validation_failed", "invalid target url")
		return
	}

	resp, err := s.Pages.Get(r.Context(), target)
	if err != nil {
		s.Log.Warn().Str("url", target).Err(err).Msg("pdf relay fetch failed")
		writeErr(w, http.StatusBadGateway, "upstream_failed", err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="patent.pdf"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, io.LimitReader(resp.Body, s.MaxBytes)); err != nil {
		s.Log.Warn().Str("url", target).Err(err).Msg("pdf relay stream aborted")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
