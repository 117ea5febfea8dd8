package spreadsheet

import (
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/splitview/content-service/internal/content"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	cells := map[string]any{
		"A1": "Region", "B1": "Total",
		"A2": "West", "B2": 42,
		"A3": "East", "B3": 17,
	}
	for axis, v := range cells {
		if err := f.SetCellValue("Sheet1", axis, v); err != nil {
			t.Fatalf("set %s: %v", axis, err)
		}
	}

	if err := f.MergeCell("Sheet1", "A1", "B1"); err != nil {
		t.Fatalf("merge: %v", err)
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		t.Fatalf("new style: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "A1", "B1", styleID); err != nil {
		t.Fatalf("set style: %v", err)
	}

	if err := f.SetColWidth("Sheet1", "A", "A", 50); err != nil {
		t.Fatalf("col width: %v", err)
	}
	if err := f.SetColWidth("Sheet1", "B", "B", 5); err != nil {
		t.Fatalf("col width: %v", err)
	}
	if err := f.SetRowHeight("Sheet1", 1, 30); err != nil {
		t.Fatalf("row height: %v", err)
	}

	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

// A workbook with one populated and one empty sheet decodes fully; the
// empty sheet stays in the result with an empty grid so the viewer can
// report no-data only when that sheet is selected.
func TestDecodeXLSXPopulatedAndEmptySheets(t *testing.T) {
	t.Parallel()

	sheets, err := DecodeXLSX(buildWorkbook(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sheets) != 2 {
		t.Fatalf("sheets = %d", len(sheets))
	}

	main := sheets[0]
	if main.Name != "Sheet1" {
		t.Fatalf("name = %q", main.Name)
	}
	if len(main.Grid) != 3 || main.Grid[0][0] != "Region" || main.Grid[1][1] != "42" {
		t.Fatalf("grid = %v", main.Grid)
	}

	empty := sheets[1]
	if empty.Name != "Empty" || len(empty.Grid) != 0 {
		t.Fatalf("empty sheet = %+v", empty)
	}
}

func TestDecodeXLSXMergesAndStyles(t *testing.T) {
	t.Parallel()

	sheets, err := DecodeXLSX(buildWorkbook(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	main := sheets[0]

	if len(main.Merges) != 1 {
		t.Fatalf("merges = %v", main.Merges)
	}
	m := main.Merges[0]
	if m.Row != 0 || m.Col != 0 || m.RowSpan != 1 || m.ColSpan != 2 {
		t.Fatalf("merge = %+v", m)
	}

	header, ok := main.Styles["0,0"]
	if !ok {
		t.Fatalf("no style for header cell: %v", main.Styles)
	}
	if !header.Bold || header.Alignment != "center" {
		t.Fatalf("header style = %+v", header)
	}
}

func TestDecodeXLSXSizingClampedToPixelRange(t *testing.T) {
	t.Parallel()

	sheets, err := DecodeXLSX(buildWorkbook(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	main := sheets[0]

	if len(main.ColWidths) != 2 {
		t.Fatalf("col widths = %v", main.ColWidths)
	}
	// Stored 50 chars x7 = 350, clamped down; stored 5 x7 = 35, clamped up.
	if main.ColWidths[0] != maxColWidthPx || main.ColWidths[1] != minColWidthPx {
		t.Fatalf("col widths = %v", main.ColWidths)
	}
	if main.RowHeights[0] != 30 {
		t.Fatalf("row heights = %v", main.RowHeights)
	}
}

func TestDecodeXLSXAllSheetsEmpty(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err = DecodeXLSX(buf.Bytes())
	if !errors.Is(err, content.ErrNoData) {
		t.Fatalf("expected no-data error, got %v", err)
	}
}

func TestDecodeXLSXUnreadableWorkbook(t *testing.T) {
	t.Parallel()

	_, err := DecodeXLSX([]byte("definitely not a zip"))
	var de *content.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "parsed") {
		t.Fatalf("error should name the parse stage: %v", err)
	}
}

func TestDecodeDispatchesOnExtension(t *testing.T) {
	t.Parallel()

	if _, err := Decode([]byte("junk"), "book.xls", 10<<20); err == nil {
		t.Fatalf("expected legacy reader error")
	}
	if _, err := Decode(nil, "book.xlsx", 10<<20); !errors.Is(err, content.ErrNoData) {
		t.Fatalf("expected no-data for empty payload, got err=%v", err)
	}
	if _, err := Decode(make([]byte, 20), "book.xlsx", 10); !errors.Is(err, content.ErrSizeExceeded) {
		t.Fatalf("expected size guard")
	}
}
