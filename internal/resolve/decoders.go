package resolve

import (
	"context"

	"github.com/splitview/content-service/internal/blob"
	"github.com/splitview/content-service/internal/content"
	"github.com/splitview/content-service/internal/decoders/office"
	"github.com/splitview/content-service/internal/decoders/spreadsheet"
	"github.com/splitview/content-service/internal/proxy"
	"github.com/splitview/content-service/internal/sniff"
)

// downloadMessage accompanies the download-only fallback for payloads the
// viewer cannot render.
const downloadMessage = "This file can't be previewed. Download it to view."

type WordDecoder struct {
	MaxBytes int64
}

func (d *WordDecoder) Name() string        { return "word" }
func (d *WordDecoder) Kinds() []sniff.Kind { return []sniff.Kind{sniff.KindWord} }

func (d *WordDecoder) Decode(_ context.Context, _ string, req content.Request, data []byte) (content.Content, error) {
	fragment, err := office.DecodeWord(data, req.FileName, d.MaxBytes)
	if err != nil {
		return content.Content{}, err
	}
	return content.HTML(fragment), nil
}

type SlidesDecoder struct {
	MaxBytes int64
	Blobs    *blob.Store
}

func (d *SlidesDecoder) Name() string        { return "slides" }
func (d *SlidesDecoder) Kinds() []sniff.Kind { return []sniff.Kind{sniff.KindPresentation} }

func (d *SlidesDecoder) Decode(_ context.Context, owner string, req content.Request, data []byte) (content.Content, error) {
	deck, err := office.DecodeSlides(data, req.FileName, d.MaxBytes, d.Blobs, owner)
	if err != nil {
		return content.Content{}, err
	}
	return content.Slides(deck), nil
}

type SpreadsheetDecoder struct {
	MaxBytes int64
}

func (d *SpreadsheetDecoder) Name() string        { return "spreadsheet" }
func (d *SpreadsheetDecoder) Kinds() []sniff.Kind { return []sniff.Kind{sniff.KindSpreadsheet} }

func (d *SpreadsheetDecoder) Decode(_ context.Context, _ string, req content.Request, data []byte) (content.Content, error) {
	sheets, err := spreadsheet.Decode(data, req.FileName, d.MaxBytes)
	if err != nil {
		return content.Content{}, err
	}
	return content.Spreadsheet(sheets), nil
}

// PDFDecoder stores the payload and hands the viewer a handle; rendering
// is the client's concern.
type PDFDecoder struct {
	Blobs *blob.Store
}

func (d *PDFDecoder) Name() string        { return "pdf" }
func (d *PDFDecoder) Kinds() []sniff.Kind { return []sniff.Kind{sniff.KindPDF} }

func (d *PDFDecoder) Decode(_ context.Context, owner string, req content.Request, data []byte) (content.Content, error) {
	if len(data) == 0 {
		return content.Content{}, &content.DecodeError{Format: "pdf", Err: content.ErrNoData}
	}
	url := d.Blobs.Put(owner, "application/pdf", req.FileName, data)
	return content.PDF(url), nil
}

// HTMLDecoder prepares a fetched page for embedded rendering: absolutize
// root-relative links against the page's own origin and add the
// click-interception hook.
type HTMLDecoder struct{}

func (d *HTMLDecoder) Name() string        { return "html" }
func (d *HTMLDecoder) Kinds() []sniff.Kind { return []sniff.Kind{sniff.KindHTML} }

func (d *HTMLDecoder) Decode(_ context.Context, _ string, req content.Request, data []byte) (content.Content, error) {
	markup := proxy.RewriteRootRelative(string(data), req.URL)
	markup = proxy.InjectClickScript(markup)
	return content.HTML(markup), nil
}

type DownloadDecoder struct {
	Blobs *blob.Store
}

func (d *DownloadDecoder) Name() string        { return "download" }
func (d *DownloadDecoder) Kinds() []sniff.Kind { return []sniff.Kind{sniff.KindDownload} }

func (d *DownloadDecoder) Decode(_ context.Context, owner string, req content.Request, data []byte) (content.Content, error) {
	if len(data) == 0 {
		return content.Content{}, &content.DecodeError{Format: "download", Err: content.ErrNoData}
	}
	url := d.Blobs.Put(owner, "application/octet-stream", req.FileName, data)
	return content.Download(url, downloadMessage), nil
}
