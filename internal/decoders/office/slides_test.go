package office

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/splitview/content-service/internal/blob"
	"github.com/splitview/content-service/internal/content"
)

const fixtureTheme = `<?xml version="1.0"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office">
<a:themeElements>
<a:clrScheme name="Office">
<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>
<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>
<a:dk2><a:srgbClr val="44546A"/></a:dk2>
<a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>
<a:accent1><a:srgbClr val="FF0000"/></a:accent1>
<a:accent2><a:srgbClr val="ED7D31"/></a:accent2>
<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3>
<a:accent4><a:srgbClr val="FFC000"/></a:accent4>
<a:accent5><a:srgbClr val="4472C4"/></a:accent5>
<a:accent6><a:srgbClr val="70AD47"/></a:accent6>
<a:hlink><a:srgbClr val="0563C1"/></a:hlink>
<a:folHlink><a:srgbClr val="954F72"/></a:folHlink>
</a:clrScheme>
<a:fontScheme name="Office">
<a:majorFont><a:latin typeface="Calibri Light"/></a:majorFont>
<a:minorFont><a:latin typeface="Calibri"/></a:minorFont>
</a:fontScheme>
</a:themeElements>
</a:theme>`

const fixtureMaster = `<?xml version="1.0"?>
<p:sldMaster xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
<p:cSld>
<p:bg><p:bgPr><a:solidFill><a:schemeClr val="lt1"/></a:solidFill></p:bgPr></p:bg>
<p:spTree>
<p:sp>
<p:nvSpPr><p:cNvPr id="2" name="Title Placeholder 1"/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="914400" y="457200"/><a:ext cx="7315200" cy="1143000"/></a:xfrm></p:spPr>
</p:sp>
</p:spTree>
</p:cSld>
</p:sldMaster>`

const fixtureLayout = `<?xml version="1.0"?>
<p:sldLayout xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree></p:spTree></p:cSld>
</p:sldLayout>`

const fixtureSlide1 = `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
<p:cSld><p:spTree>
<p:sp>
<p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
<p:spPr/>
<p:txBody>
<a:bodyPr/>
<a:p>
<a:r><a:rPr lang="en-US" sz="4400" b="1"><a:solidFill><a:schemeClr val="accent1"/></a:solidFill></a:rPr><a:t>Hello</a:t></a:r>
</a:p>
</p:txBody>
</p:sp>
</p:spTree></p:cSld>
</p:sld>`

const fixtureSlide2 = `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<p:cSld><p:spTree>
<p:pic>
<p:nvPicPr><p:cNvPr id="4" name="Picture 3"/></p:nvPicPr>
<p:blipFill><a:blip r:embed="rId2"/></p:blipFill>
<p:spPr><a:xfrm><a:off x="1828800" y="914400"/><a:ext cx="914400" cy="914400"/></a:xfrm></p:spPr>
</p:pic>
</p:spTree></p:cSld>
</p:sld>`

func buildDeckFixture(t *testing.T) []byte {
	t.Helper()
	return buildZip(t, map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<p:sldIdLst><p:sldId id="256" r:id="rId1"/><p:sldId id="257" r:id="rId2"/></p:sldIdLst>
<p:sldSz cx="9144000" cy="6858000"/>
</p:presentation>`,
		"ppt/_rels/presentation.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/>
</Relationships>`,
		"ppt/theme/theme1.xml":              fixtureTheme,
		"ppt/slideMasters/slideMaster1.xml": fixtureMaster,
		"ppt/slideMasters/_rels/slideMaster1.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>
</Relationships>`,
		"ppt/slideLayouts/slideLayout1.xml": fixtureLayout,
		"ppt/slideLayouts/_rels/slideLayout1.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>
</Relationships>`,
		"ppt/slides/slide1.xml": fixtureSlide1,
		"ppt/slides/_rels/slide1.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
</Relationships>`,
		"ppt/slides/slide2.xml": fixtureSlide2,
		"ppt/slides/_rels/slide2.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
</Relationships>`,
		"ppt/media/image1.png": "\x89PNG\r\n\x1a\nfakepixels",
	})
}

func almost(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestDecodeSlidesDeckDimensions(t *testing.T) {
	t.Parallel()

	store := blob.NewStore()
	deck, err := DecodeSlides(buildDeckFixture(t), "deck.pptx", 10<<20, store, "pane-1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !almost(deck.Width, 960) || !almost(deck.Height, 720) {
		t.Fatalf("deck size = %.2fx%.2f", deck.Width, deck.Height)
	}
	if len(deck.Slides) != 2 {
		t.Fatalf("slides = %d", len(deck.Slides))
	}
}

// A title shape with no transform of its own inherits the master
// placeholder frame through the layout.
func TestDecodeSlidesPlaceholderInheritance(t *testing.T) {
	t.Parallel()

	store := blob.NewStore()
	deck, err := DecodeSlides(buildDeckFixture(t), "deck.pptx", 10<<20, store, "pane-1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	elems := deck.Slides[0].Elements
	if len(elems) != 1 {
		t.Fatalf("slide 1 elements = %d", len(elems))
	}
	e := elems[0]
	if e.Kind != "text" || e.Text != "Hello" {
		t.Fatalf("element = %+v", e)
	}
	// 914400 EMU = 1in = 96px, 457200 EMU = 48px.
	if !almost(e.X, 96) || !almost(e.Y, 48) {
		t.Fatalf("position = %.2f,%.2f", e.X, e.Y)
	}
	if e.FontSize != 44 || !e.Bold {
		t.Fatalf("run style = %+v", e)
	}
	if e.Color != "#FF0000" {
		t.Fatalf("color = %q", e.Color)
	}
	if e.FontFamily != "Calibri" {
		t.Fatalf("font = %q", e.FontFamily)
	}
	// Width heuristic: 5 chars at 44pt scaled by 0.6.
	if !almost(e.Width, 5*44*0.6) {
		t.Fatalf("width = %.2f", e.Width)
	}
}

func TestDecodeSlidesBackgroundFromMasterTheme(t *testing.T) {
	t.Parallel()

	store := blob.NewStore()
	deck, err := DecodeSlides(buildDeckFixture(t), "deck.pptx", 10<<20, store, "pane-1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := deck.Slides[0].Background.Color; got != "#FFFFFF" {
		t.Fatalf("background = %q", got)
	}
}

func TestDecodeSlidesMediaLandsInBlobStore(t *testing.T) {
	t.Parallel()

	store := blob.NewStore()
	deck, err := DecodeSlides(buildDeckFixture(t), "deck.pptx", 10<<20, store, "pane-1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	elems := deck.Slides[1].Elements
	if len(elems) != 1 || elems[0].Kind != "image" {
		t.Fatalf("slide 2 elements = %+v", elems)
	}
	if !strings.HasPrefix(elems[0].URL, "/api/blob/") {
		t.Fatalf("image url = %q", elems[0].URL)
	}
	if !almost(elems[0].X, 192) || !almost(elems[0].Y, 96) {
		t.Fatalf("image position = %.2f,%.2f", elems[0].X, elems[0].Y)
	}
	if len(deck.MediaURLs) != 1 || deck.MediaURLs[0] != elems[0].URL {
		t.Fatalf("media urls = %v", deck.MediaURLs)
	}
	if store.CountOwner("pane-1") != 1 {
		t.Fatalf("owner blob count = %d", store.CountOwner("pane-1"))
	}
}

func TestDecodeSlidesLegacyPPTUnsupported(t *testing.T) {
	t.Parallel()

	_, err := DecodeSlides([]byte("legacy"), "old.ppt", 10<<20, blob.NewStore(), "pane-1")
	if !errors.Is(err, content.ErrFormatUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestDecodeSlidesRejectsOversize(t *testing.T) {
	t.Parallel()

	_, err := DecodeSlides(make([]byte, 100), "deck.pptx", 10, blob.NewStore(), "pane-1")
	if !errors.Is(err, content.ErrSizeExceeded) {
		t.Fatalf("expected size error, got %v", err)
	}
}
