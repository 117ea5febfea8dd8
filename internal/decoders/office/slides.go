package office

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/splitview/content-service/internal/blob"
	"github.com/splitview/content-service/internal/content"
)

// EMU-to-pixel conversion at the conventional 96dpi. A 9144000 EMU slide
// width comes out at exactly 960px.
const (
	emuPerInch = 914400
	pxPerInch  = 96

	defaultSlideCX = 9144000 // 960px
	defaultSlideCY = 6858000 // 720px

	defaultFontSize    = 14.0
	defaultLineSpacing = 1.2
	charWidthFactor    = 0.6
)

func emuToPx(v int64) float64 {
	return float64(v) / emuPerInch * pxPerInch
}

// DecodeSlides reconstructs a .pptx payload into a positioned slide deck.
// Layout is best effort: shape geometry comes from explicit transforms or
// placeholder inheritance (slide -> layout -> master), text placement from
// a simple character-width flow. Embedded media lands in the blob store
// under the given owner; the returned deck lists those handles so the pane
// can release them. Legacy .ppt is not decoded and reports itself as
// unsupported so the caller can offer the original for download.
func DecodeSlides(data []byte, fileName string, maxBytes int64, blobs *blob.Store, owner string) (*content.SlideDeck, error) {
	if len(data) == 0 {
		return nil, &content.DecodeError{Format: "slides", Err: content.ErrNoData}
	}
	if int64(len(data)) > maxBytes {
		return nil, &content.DecodeError{
			Format: "slides",
			Err:    fmt.Errorf("%w: %d bytes over %d limit", content.ErrSizeExceeded, len(data), maxBytes),
		}
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pptx":
	case ".ppt":
		return nil, &content.DecodeError{
			Format: "slides",
			Err:    fmt.Errorf("%w: legacy .ppt", content.ErrFormatUnsupported),
		}
	default:
		return nil, &content.DecodeError{
			Format: "slides",
			Err:    fmt.Errorf("%w: extension %q", content.ErrFormatUnsupported, filepath.Ext(fileName)),
		}
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &content.DecodeError{Format: "slides", Err: err}
	}

	b := &deckBuilder{
		zr:      zr,
		themes:  map[string]*slideTheme{},
		masters: map[string]*masterPart{},
		layouts: map[string]*layoutPart{},
		media:   map[string]string{},
		blobs:   blobs,
		owner:   owner,
	}
	deck, err := b.build()
	if err != nil {
		if blobs != nil {
			blobs.ReleaseOwner(owner)
		}
		return nil, &content.DecodeError{Format: "slides", Err: err}
	}
	return deck, nil
}

// slideTheme is the resolved color and font scheme of one theme part.
type slideTheme struct {
	colors    map[string]string
	majorFont string
	minorFont string
}

func (t *slideTheme) color(scheme string) string {
	if t == nil {
		return ""
	}
	// tx/bg names alias the dk/lt scheme slots.
	switch scheme {
	case "tx1":
		scheme = "dk1"
	case "bg1":
		scheme = "lt1"
	case "tx2":
		scheme = "dk2"
	case "bg2":
		scheme = "lt2"
	}
	return t.colors[scheme]
}

type shapeGeom struct {
	x, y, w, h float64
}

type masterPart struct {
	theme        *slideTheme
	bg           *content.Background
	placeholders map[string]shapeGeom
}

type layoutPart struct {
	master       *masterPart
	bg           *content.Background
	placeholders map[string]shapeGeom
}

type deckBuilder struct {
	zr      *zip.Reader
	themes  map[string]*slideTheme
	masters map[string]*masterPart
	layouts map[string]*layoutPart
	media   map[string]string
	blobs   *blob.Store
	owner   string

	mediaURLs []string
}

// build loads the presentation's parts in dependency order: themes, then
// masters, then layouts, then media, then the slides themselves.
func (b *deckBuilder) build() (*content.SlideDeck, error) {
	pres, presRels, err := b.loadPresentation()
	if err != nil {
		return nil, err
	}

	// Media precedes the master/layout passes because their backgrounds
	// reference media handles; layouts depend on masters, slides on both.
	b.loadThemes()
	b.loadMedia()
	b.loadMasters()
	b.loadLayouts()

	deck := &content.SlideDeck{
		Width:  emuToPx(defaultSlideCX),
		Height: emuToPx(defaultSlideCY),
		Slides: []content.Slide{},
	}
	if pres.SlideSize != nil && pres.SlideSize.CX > 0 && pres.SlideSize.CY > 0 {
		deck.Width = emuToPx(pres.SlideSize.CX)
		deck.Height = emuToPx(pres.SlideSize.CY)
	}

	for _, part := range b.slideParts(pres, presRels) {
		slide, err := b.buildSlide(part)
		if err != nil {
			return nil, fmt.Errorf("slide %s: %w", path.Base(part), err)
		}
		deck.Slides = append(deck.Slides, slide)
	}
	if len(deck.Slides) == 0 {
		return nil, fmt.Errorf("presentation has no slides")
	}

	deck.MediaURLs = b.mediaURLs
	return deck, nil
}

func (b *deckBuilder) loadPresentation() (*xmlPresentation, map[string]string, error) {
	raw, err := readZipEntry(b.zr, "ppt/presentation.xml")
	if err != nil {
		return nil, nil, err
	}
	var pres xmlPresentation
	if err := xml.Unmarshal(raw, &pres); err != nil {
		return nil, nil, fmt.Errorf("presentation.xml: %w", err)
	}
	return &pres, b.loadRels("ppt/presentation.xml"), nil
}

// slideParts returns slide part paths in presentation order, falling back
// to numeric filename order when the slide id list is absent or stale.
func (b *deckBuilder) slideParts(pres *xmlPresentation, presRels map[string]string) []string {
	var parts []string
	for _, sid := range pres.SlideIDs {
		if target, ok := presRels[sid.RID]; ok && strings.Contains(target, "slides/") {
			parts = append(parts, target)
		}
	}
	if len(parts) > 0 {
		return parts
	}

	parts = listZipEntries(b.zr, "ppt/slides/slide", ".xml")
	sort.Slice(parts, func(i, j int) bool {
		return slideOrdinal(parts[i]) < slideOrdinal(parts[j])
	})
	return parts
}

func slideOrdinal(partPath string) int {
	base := strings.TrimSuffix(path.Base(partPath), ".xml")
	n, _ := strconv.Atoi(strings.TrimPrefix(base, "slide"))
	return n
}

func (b *deckBuilder) loadRels(partPath string) map[string]string {
	out := map[string]string{}
	raw, err := readZipEntry(b.zr, relsPathFor(partPath))
	if err != nil {
		return out
	}
	var rels xmlRelationships
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return out
	}
	for _, rel := range rels.Rels {
		out[rel.ID] = resolveRelTarget(partPath, rel.Target)
	}
	return out
}

func (b *deckBuilder) loadThemes() {
	for _, name := range listZipEntries(b.zr, "ppt/theme/", ".xml") {
		raw, err := readZipEntry(b.zr, name)
		if err != nil {
			continue
		}
		var th xmlTheme
		if err := xml.Unmarshal(raw, &th); err != nil {
			continue
		}
		b.themes[name] = &slideTheme{
			colors: map[string]string{
				"dk1": th.ClrScheme.Dk1.hex(), "lt1": th.ClrScheme.Lt1.hex(),
				"dk2": th.ClrScheme.Dk2.hex(), "lt2": th.ClrScheme.Lt2.hex(),
				"accent1": th.ClrScheme.Accent1.hex(), "accent2": th.ClrScheme.Accent2.hex(),
				"accent3": th.ClrScheme.Accent3.hex(), "accent4": th.ClrScheme.Accent4.hex(),
				"accent5": th.ClrScheme.Accent5.hex(), "accent6": th.ClrScheme.Accent6.hex(),
				"hlink": th.ClrScheme.Hlink.hex(), "folHlink": th.ClrScheme.FolHlink.hex(),
			},
			majorFont: th.FontScheme.Major.Latin.Typeface,
			minorFont: th.FontScheme.Minor.Latin.Typeface,
		}
	}
}

func (b *deckBuilder) loadMasters() {
	for _, name := range listZipEntries(b.zr, "ppt/slideMasters/slideMaster", ".xml") {
		part, err := b.parseSlidePart(name)
		if err != nil {
			continue
		}
		rels := b.loadRels(name)

		m := &masterPart{placeholders: collectPlaceholders(&part.CSld.SpTree)}
		for _, target := range rels {
			if th, ok := b.themes[target]; ok {
				m.theme = th
				break
			}
		}
		m.bg = b.resolveBackground(part.CSld.Bg, m.theme, rels)
		b.masters[name] = m
	}
}

func (b *deckBuilder) loadLayouts() {
	for _, name := range listZipEntries(b.zr, "ppt/slideLayouts/slideLayout", ".xml") {
		part, err := b.parseSlidePart(name)
		if err != nil {
			continue
		}
		rels := b.loadRels(name)

		l := &layoutPart{placeholders: collectPlaceholders(&part.CSld.SpTree)}
		for _, target := range rels {
			if m, ok := b.masters[target]; ok {
				l.master = m
				break
			}
		}
		var theme *slideTheme
		if l.master != nil {
			theme = l.master.theme
		}
		l.bg = b.resolveBackground(part.CSld.Bg, theme, rels)
		b.layouts[name] = l
	}
}

// loadMedia copies every embedded media part into the blob store once;
// slides reference the resulting handles through their relationship ids.
func (b *deckBuilder) loadMedia() {
	if b.blobs == nil {
		return
	}
	for _, name := range listZipEntries(b.zr, "ppt/media/", "") {
		raw, err := readZipEntry(b.zr, name)
		if err != nil || len(raw) == 0 {
			continue
		}
		ct := mimetype.Detect(raw).String()
		url := b.blobs.Put(b.owner, ct, path.Base(name), raw)
		b.media[name] = url
		b.mediaURLs = append(b.mediaURLs, url)
	}
}

func (b *deckBuilder) parseSlidePart(name string) (*xmlSlidePart, error) {
	raw, err := readZipEntry(b.zr, name)
	if err != nil {
		return nil, err
	}
	var part xmlSlidePart
	if err := xml.Unmarshal(raw, &part); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &part, nil
}

// placeholderKey identifies a placeholder across the inheritance chain.
// The body placeholder has no type attribute, only an index.
func placeholderKey(phType, phIdx string) string {
	if phType == "" {
		phType = "body"
	}
	return phType + "#" + phIdx
}

func collectPlaceholders(tree *xmlShapeTree) map[string]shapeGeom {
	out := map[string]shapeGeom{}
	for _, sp := range tree.Shapes {
		ph := sp.NvSpPr.NvPr.Ph
		xf := sp.SpPr.Xfrm
		if ph == nil || xf == nil || xf.Off == nil || xf.Ext == nil {
			continue
		}
		out[placeholderKey(ph.Type, ph.Idx)] = shapeGeom{
			x: emuToPx(xf.Off.X),
			y: emuToPx(xf.Off.Y),
			w: emuToPx(xf.Ext.CX),
			h: emuToPx(xf.Ext.CY),
		}
	}
	return out
}

func (b *deckBuilder) buildSlide(partPath string) (content.Slide, error) {
	part, err := b.parseSlidePart(partPath)
	if err != nil {
		return content.Slide{}, err
	}
	rels := b.loadRels(partPath)

	var layout *layoutPart
	for _, target := range rels {
		if l, ok := b.layouts[target]; ok {
			layout = l
			break
		}
	}
	var theme *slideTheme
	if layout != nil && layout.master != nil {
		theme = layout.master.theme
	}

	slide := content.Slide{Elements: []content.SlideElement{}}

	if bg := b.resolveBackground(part.CSld.Bg, theme, rels); bg != nil {
		slide.Background = *bg
	} else if layout != nil {
		if layout.bg != nil {
			slide.Background = *layout.bg
		} else if layout.master != nil && layout.master.bg != nil {
			slide.Background = *layout.master.bg
		}
	}
	if slide.Background.Color == "" && len(slide.Background.Images) == 0 {
		slide.Background.Color = "#FFFFFF"
	}

	b.walkTree(&part.CSld.SpTree, 0, 0, layout, theme, rels, &slide)
	return slide, nil
}

// walkTree emits elements for a shape tree, accumulating group offsets.
// dx/dy are in EMU so nested groups compose before pixel conversion.
func (b *deckBuilder) walkTree(tree *xmlShapeTree, dx, dy int64, layout *layoutPart, theme *slideTheme, rels map[string]string, slide *content.Slide) {
	for i := range tree.Shapes {
		b.emitTextShape(&tree.Shapes[i], dx, dy, layout, theme, slide)
	}
	for i := range tree.Pics {
		b.emitPicture(&tree.Pics[i], dx, dy, rels, slide)
	}
	for i := range tree.Groups {
		g := &tree.Groups[i]
		cdx, cdy := dx, dy
		if xf := g.GrpSpPr.Xfrm; xf != nil && xf.Off != nil && xf.ChOff != nil {
			cdx += xf.Off.X - xf.ChOff.X
			cdy += xf.Off.Y - xf.ChOff.Y
		}
		sub := xmlShapeTree{Shapes: g.Shapes, Pics: g.Pics, Groups: g.Groups}
		b.walkTree(&sub, cdx, cdy, layout, theme, rels, slide)
	}
}

// shapeGeometry resolves a shape's frame: its own transform when present,
// otherwise the matching placeholder from the layout, then the master.
func shapeGeometry(sp *xmlShape, dx, dy int64, layout *layoutPart) shapeGeom {
	if xf := sp.SpPr.Xfrm; xf != nil && xf.Off != nil {
		g := shapeGeom{
			x: emuToPx(xf.Off.X + dx),
			y: emuToPx(xf.Off.Y + dy),
		}
		if xf.Ext != nil {
			g.w = emuToPx(xf.Ext.CX)
			g.h = emuToPx(xf.Ext.CY)
		}
		return g
	}

	if ph := sp.NvSpPr.NvPr.Ph; ph != nil && layout != nil {
		key := placeholderKey(ph.Type, ph.Idx)
		if g, ok := layout.placeholders[key]; ok {
			return g
		}
		if layout.master != nil {
			if g, ok := layout.master.placeholders[key]; ok {
				return g
			}
		}
	}
	return shapeGeom{}
}

func (b *deckBuilder) emitTextShape(sp *xmlShape, dx, dy int64, layout *layoutPart, theme *slideTheme, slide *content.Slide) {
	if sp.TxBody == nil {
		return
	}
	geom := shapeGeometry(sp, dx, dy, layout)

	currentY := 0.0
	for pi := range sp.TxBody.Paras {
		para := &sp.TxBody.Paras[pi]

		lineSpacing := defaultLineSpacing
		spaceBefore := 0.0
		align := "left"
		indentX := 0.0
		bullet := false
		if pp := para.PPr; pp != nil {
			if pp.LnSpc != nil && pp.LnSpc.Pct != nil && pp.LnSpc.Pct.Val > 0 {
				lineSpacing = float64(pp.LnSpc.Pct.Val) / 100000
			}
			if pp.SpcBef != nil && pp.SpcBef.Pts != nil {
				spaceBefore = float64(pp.SpcBef.Pts.Val) / 100
			}
			align = alignName(pp.Algn)
			if m := pp.MarL + pp.Indent; m > 0 {
				indentX = emuToPx(m)
			}
			bullet = (pp.BuChar != nil || pp.BuAutoNum != nil) && pp.BuNone == nil
		}
		currentY += spaceBefore

		maxFont := defaultFontSize
		currentX := indentX
		first := true
		for ri := range para.Runs {
			run := &para.Runs[ri]
			if run.Text == "" {
				continue
			}

			fontSize := defaultFontSize
			fontFamily := ""
			color := "#000000"
			var bold, italic, underline bool
			if rp := run.RPr; rp != nil {
				if rp.Sz > 0 {
					fontSize = float64(rp.Sz) / 100
				}
				bold = rp.B == "1" || rp.B == "true"
				italic = rp.I == "1" || rp.I == "true"
				underline = rp.U != "" && rp.U != "none"
				if c := fillColor(rp.SolidFill, theme); c != "" {
					color = c
				}
				if rp.Latin != nil {
					fontFamily = rp.Latin.Typeface
				}
			}
			fontFamily = resolveFont(fontFamily, theme)
			if fontSize > maxFont {
				maxFont = fontSize
			}

			width := float64(len([]rune(run.Text))) * fontSize * charWidthFactor
			slide.Elements = append(slide.Elements, content.SlideElement{
				Kind:           "text",
				X:              geom.x + currentX,
				Y:              geom.y + currentY,
				Width:          width,
				Height:         fontSize * lineSpacing,
				Text:           run.Text,
				FontSize:       fontSize,
				FontFamily:     fontFamily,
				Color:          color,
				Bold:           bold,
				Italic:         italic,
				Underline:      underline,
				Align:          align,
				LineSpacing:    lineSpacing,
				BulletPrefixed: bullet && first,
			})
			currentX += width
			first = false
		}
		currentY += maxFont * lineSpacing
	}
}

func (b *deckBuilder) emitPicture(pic *xmlPic, dx, dy int64, rels map[string]string, slide *content.Slide) {
	blip := pic.BlipFill.Blip
	if blip == nil || blip.Embed == "" {
		return
	}
	target, ok := rels[blip.Embed]
	if !ok {
		return
	}
	url, ok := b.media[target]
	if !ok {
		return
	}

	elem := content.SlideElement{Kind: "image", URL: url}
	if xf := pic.SpPr.Xfrm; xf != nil && xf.Off != nil {
		elem.X = emuToPx(xf.Off.X + dx)
		elem.Y = emuToPx(xf.Off.Y + dy)
		if xf.Ext != nil {
			elem.Width = emuToPx(xf.Ext.CX)
			elem.Height = emuToPx(xf.Ext.CY)
		}
	}
	slide.Elements = append(slide.Elements, elem)
}

// resolveBackground maps a part's <p:bg> onto the renderable form, or nil
// when the part declares none and inheritance should decide.
func (b *deckBuilder) resolveBackground(bg *xmlBackground, theme *slideTheme, rels map[string]string) *content.Background {
	if bg == nil {
		return nil
	}
	out := &content.Background{}

	if bg.BgPr != nil {
		if c := fillColor(bg.BgPr.SolidFill, theme); c != "" {
			out.Color = c
		}
		if bf := bg.BgPr.BlipFill; bf != nil && bf.Blip != nil && bf.Blip.Embed != "" {
			if target, ok := rels[bf.Blip.Embed]; ok {
				if url, ok := b.media[target]; ok {
					opacity := 1.0
					if bf.Blip.AlphaMod != nil && bf.Blip.AlphaMod.Amt > 0 {
						opacity = float64(bf.Blip.AlphaMod.Amt) / 100000
					}
					out.Images = append(out.Images, content.BackgroundImage{URL: url, Opacity: opacity})
				}
			}
		}
	}
	if bg.BgRef != nil && out.Color == "" {
		if bg.BgRef.Srgb != nil && bg.BgRef.Srgb.Val != "" {
			out.Color = "#" + bg.BgRef.Srgb.Val
		} else if bg.BgRef.Scheme != nil {
			out.Color = theme.color(bg.BgRef.Scheme.Val)
		}
	}

	if out.Color == "" && len(out.Images) == 0 {
		return nil
	}
	return out
}

func fillColor(fill *xmlFill, theme *slideTheme) string {
	if fill == nil {
		return ""
	}
	if fill.Srgb != nil && fill.Srgb.Val != "" {
		return "#" + fill.Srgb.Val
	}
	if fill.Scheme != nil {
		return theme.color(fill.Scheme.Val)
	}
	return ""
}

// resolveFont maps theme font references onto the theme's typefaces.
func resolveFont(typeface string, theme *slideTheme) string {
	switch typeface {
	case "+mj-lt":
		if theme != nil && theme.majorFont != "" {
			return theme.majorFont
		}
	case "+mn-lt", "":
		if theme != nil && theme.minorFont != "" {
			return theme.minorFont
		}
	default:
		return typeface
	}
	return "Arial"
}

func alignName(algn string) string {
	switch algn {
	case "ctr":
		return "center"
	case "r":
		return "right"
	case "just":
		return "justify"
	default:
		return "left"
	}
}
