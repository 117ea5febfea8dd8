package office

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/splitview/content-service/internal/content"
)

// DecodeWord converts a .doc/.docx payload into an HTML fragment wrapped
// in a fixed-width container. Conversion failures come back as a
// DecodeError so the caller can fall into the download-only state instead
// of failing the whole pane.
func DecodeWord(data []byte, fileName string, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", &content.DecodeError{Format: "word", Err: content.ErrNoData}
	}
	if int64(len(data)) > maxBytes {
		return "", &content.DecodeError{
			Format: "word",
			Err:    fmt.Errorf("%w: %d bytes over %d limit", content.ErrSizeExceeded, len(data), maxBytes),
		}
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".doc", ".docx":
	default:
		return "", &content.DecodeError{
			Format: "word",
			Err:    fmt.Errorf("%w: extension %q", content.ErrFormatUnsupported, filepath.Ext(fileName)),
		}
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// Legacy binary .doc is not a zip; surface it as a decode failure
		// so the pane offers the original for download.
		return "", &content.DecodeError{Format: "word", Err: err}
	}

	body, err := readZipEntry(zr, "word/document.xml")
	if err != nil {
		return "", &content.DecodeError{Format: "word", Err: err}
	}

	fragment := wordBodyToHTML(body)
	if strings.TrimSpace(fragment) == "" {
		return "", &content.DecodeError{Format: "word", Err: fmt.Errorf("document produced no content")}
	}

	return `<div style="max-width:800px;margin:0 auto;padding:24px;font-family:Calibri,Arial,sans-serif;line-height:1.5">` +
		fragment + `</div>`, nil
}

// wordBlock is one top-level unit of the document body, tagged so list
// items can be grouped into a shared <ul> at render time.
type wordBlock struct {
	html   string
	isList bool
	indent int
}

// wordBodyToHTML walks <w:body> in word/document.xml producing an HTML
// fragment. Handles paragraphs with heading styles, numbered/bulleted
// lists, run formatting, and tables.
func wordBodyToHTML(b []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(b))

	var blocks []wordBlock
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "p":
			if blk := wordParagraph(dec); blk.html != "" {
				blocks = append(blocks, blk)
			}
		case "tbl":
			if t := wordTable(dec); t != "" {
				blocks = append(blocks, wordBlock{html: t})
			}
		}
	}

	// Group list items into <ul> runs, opening or closing one level per
	// indent step. Level -1 means outside any list.
	var sb strings.Builder
	level := -1
	for _, blk := range blocks {
		if blk.isList {
			for level < blk.indent {
				sb.WriteString("<ul>")
				level++
			}
			for level > blk.indent {
				sb.WriteString("</ul>")
				level--
			}
		} else {
			for level >= 0 {
				sb.WriteString("</ul>")
				level--
			}
		}
		sb.WriteString(blk.html)
	}
	for level >= 0 {
		sb.WriteString("</ul>")
		level--
	}
	return sb.String()
}

type wordRun struct {
	text              string
	bold, italic, und bool
}

// wordParagraph reads one <w:p> element and renders it.
func wordParagraph(dec *xml.Decoder) wordBlock {
	var style, numID, numLvl string
	var runs []wordRun
	var cur wordRun
	inRunProps := false
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "pStyle":
				style = attrVal(t, "val")
			case "numId":
				numID = attrVal(t, "val")
			case "ilvl":
				numLvl = attrVal(t, "val")
			case "r":
				cur = wordRun{}
			case "rPr":
				inRunProps = true
			case "b":
				if inRunProps && attrVal(t, "val") != "0" && attrVal(t, "val") != "false" {
					cur.bold = true
				}
			case "i":
				if inRunProps && attrVal(t, "val") != "0" && attrVal(t, "val") != "false" {
					cur.italic = true
				}
			case "u":
				if inRunProps && attrVal(t, "val") != "none" {
					cur.und = true
				}
			case "t":
				cur.text += readCharData(dec, &depth)
			case "tab":
				cur.text += "\t"
			case "br":
				cur.text += "\n"
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "rPr":
				inRunProps = false
			case "r":
				if cur.text != "" {
					runs = append(runs, cur)
				}
				cur = wordRun{}
			}
		}
	}

	inner := renderRuns(runs)
	if strings.TrimSpace(inner) == "" {
		return wordBlock{}
	}

	if h := headingLevel(style); h > 0 {
		return wordBlock{html: fmt.Sprintf("<h%d>%s</h%d>", h, inner, h)}
	}
	if numID != "" && numID != "0" {
		lvl := 0
		for _, c := range numLvl {
			if c >= '0' && c <= '9' {
				lvl = lvl*10 + int(c-'0')
			}
		}
		return wordBlock{html: "<li>" + inner + "</li>", isList: true, indent: lvl}
	}
	return wordBlock{html: "<p>" + inner + "</p>"}
}

func renderRuns(runs []wordRun) string {
	var sb strings.Builder
	for _, r := range runs {
		s := html.EscapeString(r.text)
		s = strings.ReplaceAll(s, "\n", "<br>")
		if r.und {
			s = "<u>" + s + "</u>"
		}
		if r.italic {
			s = "<em>" + s + "</em>"
		}
		if r.bold {
			s = "<strong>" + s + "</strong>"
		}
		sb.WriteString(s)
	}
	return sb.String()
}

// headingLevel maps OOXML paragraph styles onto HTML heading levels.
func headingLevel(style string) int {
	s := strings.ToLower(style)
	if s == "title" {
		return 1
	}
	if s == "subtitle" {
		return 2
	}
	if strings.HasPrefix(s, "heading") {
		n := strings.TrimPrefix(s, "heading")
		if len(n) == 1 && n[0] >= '1' && n[0] <= '6' {
			return int(n[0] - '0')
		}
	}
	return 0
}

// wordTable reads one <w:tbl> element and renders an HTML table.
func wordTable(dec *xml.Decoder) string {
	var rows [][]string
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "tr" {
				// The row walker consumes the matching </w:tr>.
				rows = append(rows, wordTableRow(dec))
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
	if len(rows) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(`<table style="border-collapse:collapse;width:100%">`)
	for i, row := range rows {
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		sb.WriteString("<tr>")
		for _, cell := range row {
			sb.WriteString(fmt.Sprintf(`<%s style="border:1px solid #ccc;padding:4px 8px">%s</%s>`,
				tag, html.EscapeString(cell), tag))
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</table>")
	return sb.String()
}

// wordTableRow reads one <w:tr> element and returns cell texts.
func wordTableRow(dec *xml.Decoder) []string {
	var cells []string
	depth := 0 // the <w:tr> itself is counted by the caller

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "tc" {
				// The cell walker consumes the matching </w:tc>.
				cells = append(cells, wordTableCell(dec))
				depth--
			}
		case xml.EndElement:
			if depth == 0 {
				return cells
			}
			depth--
		}
	}
	return cells
}

// wordTableCell reads one <w:tc> element and returns its text content.
func wordTableCell(dec *xml.Decoder) string {
	var texts []string
	depth := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "t" {
				texts = append(texts, readCharData(dec, &depth))
			}
		case xml.EndElement:
			if depth == 0 {
				return strings.TrimSpace(strings.Join(texts, " "))
			}
			depth--
		}
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// readCharData reads character data inside a text element, tracking depth.
func readCharData(dec *xml.Decoder, depth *int) string {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			*depth++
		case xml.EndElement:
			*depth--
			return sb.String()
		}
	}
	return sb.String()
}

func attrVal(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
