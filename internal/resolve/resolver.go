// Package resolve orchestrates the content pipeline: classify a locator,
// fetch it when remote, pick a decoder, and degrade decode failures into
// the download-only fallback instead of failing the pane.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/rs/zerolog"

	"github.com/splitview/content-service/internal/blob"
	"github.com/splitview/content-service/internal/content"
	"github.com/splitview/content-service/internal/fetch"
	"github.com/splitview/content-service/internal/patent"
	"github.com/splitview/content-service/internal/sniff"
)

type Resolver struct {
	Fetch    *fetch.Client
	Registry *Registry
	Blobs    *blob.Store
	PDFLinks *patent.PDFLinkResolver

	// MaxFetchBytes caps what the resolver will pull from a remote URL;
	// MaxDecodeBytes is the stricter pre-decode ceiling the decoders
	// enforce themselves.
	MaxFetchBytes  int64
	MaxDecodeBytes int64

	Log zerolog.Logger
}

// New wires a Resolver with the standard decoder set.
func New(client *fetch.Client, blobs *blob.Store, pdfLinks *patent.PDFLinkResolver, maxFetchBytes, maxDecodeBytes int64, log zerolog.Logger) *Resolver {
	reg := NewRegistry()
	reg.Register(&WordDecoder{MaxBytes: maxDecodeBytes})
	reg.Register(&SlidesDecoder{MaxBytes: maxDecodeBytes, Blobs: blobs})
	reg.Register(&SpreadsheetDecoder{MaxBytes: maxDecodeBytes})
	reg.Register(&PDFDecoder{Blobs: blobs})
	reg.Register(&HTMLDecoder{})
	reg.Register(&DownloadDecoder{Blobs: blobs})

	return &Resolver{
		Fetch:          client,
		Registry:       reg,
		Blobs:          blobs,
		PDFLinks:       pdfLinks,
		MaxFetchBytes:  maxFetchBytes,
		MaxDecodeBytes: maxDecodeBytes,
		Log:            log,
	}
}

// Resolve runs one request through the pipeline. It never returns an
// error: terminal failures come back as error or download-only content so
// the pane always has something to commit.
func (rs *Resolver) Resolve(ctx context.Context, owner string, req content.Request) content.Content {
	if req.IsUpload {
		return rs.decode(ctx, owner, req, sniff.ClassifyUpload(req.FileName), req.Data)
	}

	kind, decisive := sniff.ClassifyURL(req.URL)
	if decisive {
		switch kind {
		case sniff.KindPatent:
			return rs.resolvePatent(ctx, req.URL)
		case sniff.KindIframe:
			return content.Iframe(req.URL)
		case sniff.KindPDF:
			data, c, ok := rs.fetchAll(ctx, req.URL)
			if !ok {
				return c
			}
			return rs.decode(ctx, owner, withFileName(req, "document.pdf"), sniff.KindPDF, data)
		}
	}

	// Not decisive from the URL alone: fetch and let the response decide.
	resp, err := rs.Fetch.Get(ctx, req.URL)
	if err != nil {
		return content.Errorf(err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, rs.MaxFetchBytes+1))
	if err != nil {
		return content.Errorf(fmt.Sprintf("reading %s: %v", req.URL, err))
	}
	if int64(len(data)) > rs.MaxFetchBytes {
		return content.Errorf(fmt.Sprintf("content exceeds the %dMB fetch limit", rs.MaxFetchBytes/(1<<20)))
	}

	kind = sniff.ClassifyContentType(resp.Header.Get("Content-Type"))
	if kind == sniff.KindDownload {
		kind, _ = sniff.SniffBytes(data)
	}
	return rs.decode(ctx, owner, withFileName(req, fileNameFromURL(req.URL)), kind, data)
}

func (rs *Resolver) resolvePatent(ctx context.Context, pageURL string) content.Content {
	data, c, ok := rs.fetchAll(ctx, pageURL)
	if !ok {
		return c
	}

	rec := patent.Extract(string(data), pageURL)
	if rs.PDFLinks != nil {
		rec.PDFURL = rs.PDFLinks.Resolve(ctx, pageURL, string(data), rec.PublicationNumbers)
	}
	return content.PatentContent(rec)
}

// fetchAll pulls a bounded body. On failure the returned content is the
// terminal error to commit and ok is false.
func (rs *Resolver) fetchAll(ctx context.Context, rawURL string) ([]byte, content.Content, bool) {
	resp, err := rs.Fetch.Get(ctx, rawURL)
	if err != nil {
		return nil, content.Errorf(err.Error()), false
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, rs.MaxFetchBytes+1))
	if err != nil {
		return nil, content.Errorf(fmt.Sprintf("reading %s: %v", rawURL, err)), false
	}
	if int64(len(data)) > rs.MaxFetchBytes {
		return nil, content.Errorf(fmt.Sprintf("content exceeds the %dMB fetch limit", rs.MaxFetchBytes/(1<<20))), false
	}
	return data, content.Content{}, true
}

func (rs *Resolver) decode(ctx context.Context, owner string, req content.Request, kind sniff.Kind, data []byte) content.Content {
	dec, err := rs.Registry.Resolve(kind)
	if err != nil {
		return rs.degrade(owner, req, data, &content.DecodeError{
			Format: string(kind),
			Err:    content.ErrFormatUnsupported,
		})
	}

	c, err := dec.Decode(ctx, owner, req, data)
	if err != nil {
		rs.Log.Warn().Str("decoder", dec.Name()).Str("file", req.FileName).Err(err).Msg("decode failed")
		return rs.degrade(owner, req, data, err)
	}
	return c
}

// degrade converts a decode failure into pane-committable content. Size
// violations are terminal errors; everything else falls back to offering
// the original payload for download with the reason attached.
func (rs *Resolver) degrade(owner string, req content.Request, data []byte, err error) content.Content {
	if errors.Is(err, content.ErrSizeExceeded) {
		return content.Errorf(err.Error())
	}

	var de *content.DecodeError
	if errors.As(err, &de) && len(data) > 0 {
		url := rs.Blobs.Put(owner, "application/octet-stream", req.FileName, data)
		return content.Download(url, err.Error())
	}
	return content.Errorf(err.Error())
}

func withFileName(req content.Request, name string) content.Request {
	if req.FileName == "" {
		req.FileName = name
	}
	return req
}

func fileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "content"
	}
	return path.Base(u.Path)
}
