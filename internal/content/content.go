// Package content defines the pipeline's data model: the ContentRequest
// issued per pane and the tagged-union Content it resolves to.
package content

// Type discriminates the Content union. Exactly one variant is active per
// pane at a time.
type Type string

const (
	TypeHTML        Type = "html"
	TypePDF         Type = "pdf"
	TypeSpreadsheet Type = "spreadsheet"
	TypeSlides      Type = "slides"
	TypePatent      Type = "patent"
	TypeIframe      Type = "iframe"
	TypeDownload    Type = "download"
	TypeError       Type = "error"
)

// Request identifies one resolution cycle. A Request is immutable once
// issued; a newer Request for the same pane supersedes any in-flight one.
// ID is assigned by the pane and tags async results so stale ones can be
// discarded before committing state.
type Request struct {
	ID       uint64 `json:"id"`
	URL      string `json:"url"`
	IsUpload bool   `json:"isUpload"`
	FileName string `json:"fileName,omitempty"`

	// Data carries the uploaded blob when IsUpload is set. For URL
	// requests it is nil and the pipeline fetches the locator itself.
	Data []byte `json:"-"`
}

// Content is the pipeline's terminal output. The zero value is not valid;
// use the constructors below so Type and the variant payload stay in sync.
type Content struct {
	Type Type `json:"type"`

	// html
	Markup string `json:"markup,omitempty"`

	// pdf / download: a blob-store handle URL. Released when the pane
	// transitions away from this content.
	ObjectURL string `json:"objectUrl,omitempty"`

	// download / error
	Message string `json:"message,omitempty"`

	// iframe
	URL string `json:"url,omitempty"`

	Sheets []Sheet    `json:"sheets,omitempty"`
	Deck   *SlideDeck `json:"deck,omitempty"`
	Patent *Patent    `json:"patent,omitempty"`
}

func HTML(markup string) Content      { return Content{Type: TypeHTML, Markup: markup} }
func PDF(objectURL string) Content    { return Content{Type: TypePDF, ObjectURL: objectURL} }
func Iframe(url string) Content       { return Content{Type: TypeIframe, URL: url} }
func Spreadsheet(s []Sheet) Content   { return Content{Type: TypeSpreadsheet, Sheets: s} }
func Slides(d *SlideDeck) Content     { return Content{Type: TypeSlides, Deck: d} }
func PatentContent(p *Patent) Content { return Content{Type: TypePatent, Patent: p} }

func Download(objectURL, message string) Content {
	return Content{Type: TypeDownload, ObjectURL: objectURL, Message: message}
}

func Errorf(message string) Content { return Content{Type: TypeError, Message: message} }

// ObjectURLs returns every blob-store handle this content holds. The pane
// releases these when the content is replaced.
func (c Content) ObjectURLs() []string {
	var urls []string
	if c.ObjectURL != "" {
		urls = append(urls, c.ObjectURL)
	}
	if c.Deck != nil {
		urls = append(urls, c.Deck.MediaURLs...)
	}
	return urls
}

// Sheet is one worksheet of a decoded spreadsheet. The grid holds display
// strings; styling and merge metadata are carried separately, keyed the way
// the renderer consumes them.
type Sheet struct {
	Name       string               `json:"name"`
	Grid       [][]string           `json:"grid"`
	Merges     []Merge              `json:"merges,omitempty"`
	Styles     map[string]CellStyle `json:"styles,omitempty"`
	ColWidths  []int                `json:"colWidths,omitempty"`
	RowHeights []int                `json:"rowHeights,omitempty"`
}

// Merge is a merged-cell range anchored at its top-left cell.
type Merge struct {
	Row     int `json:"row"`
	Col     int `json:"col"`
	RowSpan int `json:"rowspan"`
	ColSpan int `json:"colspan"`
}

// CellStyle mirrors the styling a renderer can apply per cell.
type CellStyle struct {
	Bold       bool       `json:"bold,omitempty"`
	Italic     bool       `json:"italic,omitempty"`
	Underline  bool       `json:"underline,omitempty"`
	FontSize   float64    `json:"fontSize,omitempty"`
	FontFamily string     `json:"fontFamily,omitempty"`
	TextColor  string     `json:"textColor,omitempty"`
	BgColor    string     `json:"bgColor,omitempty"`
	Alignment  string     `json:"alignment,omitempty"`
	Vertical   string     `json:"vertical,omitempty"`
	WrapText   bool       `json:"wrapText,omitempty"`
	Border     CellBorder `json:"border,omitempty"`
}

// CellBorder flags which edges carry a border.
type CellBorder struct {
	Top    bool `json:"top,omitempty"`
	Right  bool `json:"right,omitempty"`
	Bottom bool `json:"bottom,omitempty"`
	Left   bool `json:"left,omitempty"`
}

// SlideDeck is a decoded presentation: ordered slides plus the pixel
// dimensions shared by all of them. MediaURLs lists every blob handle the
// deck references so the pane can release them with the deck.
type SlideDeck struct {
	Slides    []Slide  `json:"slides"`
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	MediaURLs []string `json:"-"`
}

// Slide holds absolutely-positioned elements over a resolved background.
type Slide struct {
	Elements   []SlideElement `json:"elements"`
	Background Background     `json:"background"`
}

// SlideElement is a positioned text run or image. Kind is "text" or "image".
type SlideElement struct {
	Kind string `json:"kind"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// text
	Text           string  `json:"text,omitempty"`
	FontSize       float64 `json:"fontSize,omitempty"`
	FontFamily     string  `json:"fontFamily,omitempty"`
	Color          string  `json:"color,omitempty"`
	Bold           bool    `json:"bold,omitempty"`
	Italic         bool    `json:"italic,omitempty"`
	Underline      bool    `json:"underline,omitempty"`
	Align          string  `json:"align,omitempty"`
	LineSpacing    float64 `json:"lineSpacing,omitempty"`
	BulletPrefixed bool    `json:"bulletPrefixed,omitempty"`

	// image
	URL string `json:"url,omitempty"`
}

// Background is a slide background: an optional solid color plus zero or
// more tiled images with opacity.
type Background struct {
	Color  string            `json:"color,omitempty"`
	Images []BackgroundImage `json:"images,omitempty"`
}

type BackgroundImage struct {
	URL     string  `json:"url"`
	Opacity float64 `json:"opacity"`
}

// Patent is the structured extraction of a Google Patents page. Every field
// may be empty; a page yielding nothing still produces a usable record.
type Patent struct {
	Title              string           `json:"title"`
	Abstract           string           `json:"abstract"`
	Inventors          []string         `json:"inventors"`
	PublicationNumbers []string         `json:"publicationNumbers"`
	PublicationDates   []string         `json:"publicationDates"`
	FilingDate         string           `json:"filingDate"`
	PriorityDate       string           `json:"priorityDate"`
	Assignee           string           `json:"assignee"`
	Status             string           `json:"status"`
	Classifications    []Classification `json:"classifications"`
	Citations          []Citation       `json:"citations"`
	CitedBy            []Citation       `json:"citedBy"`
	LegalEvents        []LegalEvent     `json:"legalEvents"`
	Family             []FamilyMember   `json:"family"`
	SimilarDocs        []SimilarDoc     `json:"similarDocs"`
	ClaimsHTML         string           `json:"claimsHtml"`
	DescriptionHTML    string           `json:"descriptionHtml"`
	DrawingURLs        []string         `json:"drawingUrls"`
	PDFURL             string           `json:"pdfUrl"`
}

type Classification struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type Citation struct {
	Number   string `json:"number"`
	Date     string `json:"date"`
	Title    string `json:"title"`
	Assignee string `json:"assignee"`
}

type LegalEvent struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

type FamilyMember struct {
	Number  string `json:"number"`
	Date    string `json:"date"`
	Country string `json:"country"`
}

type SimilarDoc struct {
	Number string `json:"number"`
	Date   string `json:"date"`
	Title  string `json:"title"`
}
