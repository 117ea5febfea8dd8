// Package spreadsheet decodes workbook payloads into the viewer's grid
// model: display strings plus merge ranges, per-cell styling, and pixel
// column/row sizing. Modern .xlsx goes through excelize; legacy .xls
// through a BIFF reader with grid data only.
package spreadsheet

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/splitview/content-service/internal/content"
)

const (
	// Stored column widths are in character units; the conventional pixel
	// conversion is x7, clamped to a renderable range.
	colWidthFactor    = 7
	minColWidthPx     = 60
	maxColWidthPx     = 300
	defaultColWidthPx = 100

	defaultRowHeightPx = 20
)

// Decode dispatches on the filename extension. Every failure is a
// DecodeError naming which stage gave out, so the pane can show a
// specific message next to the raw-file download it always offers.
func Decode(data []byte, fileName string, maxBytes int64) ([]content.Sheet, error) {
	if len(data) == 0 {
		return nil, &content.DecodeError{Format: "spreadsheet", Err: content.ErrNoData}
	}
	if int64(len(data)) > maxBytes {
		return nil, &content.DecodeError{
			Format: "spreadsheet",
			Err:    fmt.Errorf("%w: %d bytes over %d limit", content.ErrSizeExceeded, len(data), maxBytes),
		}
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xls":
		return DecodeXLS(data)
	default:
		return DecodeXLSX(data)
	}
}

// DecodeXLSX parses an OOXML workbook. The three failure stages are
// distinct: an unparseable workbook, a workbook with no sheets, and a
// workbook whose sheets are all empty. Individual empty sheets are kept
// in the result with an empty grid; the viewer reports no-data only when
// that sheet is the one selected.
func DecodeXLSX(data []byte) ([]content.Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &content.DecodeError{
			Format: "spreadsheet",
			Err:    fmt.Errorf("workbook could not be parsed: %w", err),
		}
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, &content.DecodeError{
			Format: "spreadsheet",
			Err:    fmt.Errorf("%w: workbook contains no sheets", content.ErrNoData),
		}
	}

	sheets := make([]content.Sheet, 0, len(names))
	anyData := false
	for _, name := range names {
		sheet := decodeSheet(f, name)
		if len(sheet.Grid) > 0 {
			anyData = true
		}
		sheets = append(sheets, sheet)
	}
	if !anyData {
		return nil, &content.DecodeError{
			Format: "spreadsheet",
			Err:    fmt.Errorf("%w: no sheet contains any data", content.ErrNoData),
		}
	}
	return sheets, nil
}

func decodeSheet(f *excelize.File, name string) content.Sheet {
	sheet := content.Sheet{Name: name, Grid: [][]string{}}

	rows, err := f.GetRows(name)
	if err != nil || len(rows) == 0 {
		return sheet
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	for _, row := range rows {
		padded := make([]string, maxCols)
		copy(padded, row)
		sheet.Grid = append(sheet.Grid, padded)
	}

	sheet.Merges = decodeMerges(f, name)
	sheet.Styles = decodeStyles(f, name, sheet.Grid)
	sheet.ColWidths = decodeColWidths(f, name, maxCols)
	sheet.RowHeights = decodeRowHeights(f, name, len(sheet.Grid))
	return sheet
}

func decodeMerges(f *excelize.File, name string) []content.Merge {
	cells, err := f.GetMergeCells(name)
	if err != nil {
		return nil
	}
	var merges []content.Merge
	for _, mc := range cells {
		sc, sr, err1 := excelize.CellNameToCoordinates(mc.GetStartAxis())
		ec, er, err2 := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err1 != nil || err2 != nil {
			continue
		}
		merges = append(merges, content.Merge{
			Row:     sr - 1,
			Col:     sc - 1,
			RowSpan: er - sr + 1,
			ColSpan: ec - sc + 1,
		})
	}
	return merges
}

// decodeStyles resolves the style of every populated cell, keyed
// "row,col" zero-based. Style ids repeat heavily across a sheet, so
// resolved styles are cached per id.
func decodeStyles(f *excelize.File, name string, grid [][]string) map[string]content.CellStyle {
	styles := map[string]content.CellStyle{}
	cache := map[int]content.CellStyle{}

	for r, row := range grid {
		for c, val := range row {
			if val == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			id, err := f.GetCellStyle(name, axis)
			if err != nil {
				continue
			}
			cs, ok := cache[id]
			if !ok {
				st, err := f.GetStyle(id)
				if err != nil || st == nil {
					continue
				}
				cs = convertStyle(st)
				cache[id] = cs
			}
			if cs != (content.CellStyle{}) {
				styles[fmt.Sprintf("%d,%d", r, c)] = cs
			}
		}
	}
	if len(styles) == 0 {
		return nil
	}
	return styles
}

func convertStyle(st *excelize.Style) content.CellStyle {
	var cs content.CellStyle

	if ft := st.Font; ft != nil {
		cs.Bold = ft.Bold
		cs.Italic = ft.Italic
		cs.Underline = ft.Underline != "" && ft.Underline != "none"
		cs.FontSize = ft.Size
		cs.FontFamily = ft.Family
		if ft.Color != "" {
			cs.TextColor = "#" + strings.TrimPrefix(ft.Color, "#")
		}
	}
	if len(st.Fill.Color) > 0 && st.Fill.Color[0] != "" && st.Fill.Type == "pattern" {
		cs.BgColor = "#" + strings.TrimPrefix(st.Fill.Color[0], "#")
	}
	if al := st.Alignment; al != nil {
		cs.Alignment = al.Horizontal
		cs.Vertical = al.Vertical
		cs.WrapText = al.WrapText
	}
	for _, b := range st.Border {
		if b.Style <= 0 {
			continue
		}
		switch b.Type {
		case "top":
			cs.Border.Top = true
		case "right":
			cs.Border.Right = true
		case "bottom":
			cs.Border.Bottom = true
		case "left":
			cs.Border.Left = true
		}
	}
	return cs
}

func decodeColWidths(f *excelize.File, name string, cols int) []int {
	if cols == 0 {
		return nil
	}
	widths := make([]int, cols)
	for c := 0; c < cols; c++ {
		colName, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			widths[c] = defaultColWidthPx
			continue
		}
		stored, err := f.GetColWidth(name, colName)
		if err != nil || stored <= 0 {
			widths[c] = defaultColWidthPx
			continue
		}
		px := int(stored * colWidthFactor)
		if px < minColWidthPx {
			px = minColWidthPx
		}
		if px > maxColWidthPx {
			px = maxColWidthPx
		}
		widths[c] = px
	}
	return widths
}

func decodeRowHeights(f *excelize.File, name string, rows int) []int {
	if rows == 0 {
		return nil
	}
	heights := make([]int, rows)
	for r := 0; r < rows; r++ {
		stored, err := f.GetRowHeight(name, r+1)
		if err != nil || stored <= 0 {
			heights[r] = defaultRowHeightPx
			continue
		}
		heights[r] = int(stored)
	}
	return heights
}
