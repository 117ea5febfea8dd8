package spreadsheet

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shakinm/xlsReader/xls"

	"github.com/splitview/content-service/internal/content"
)

// DecodeXLS parses a legacy BIFF workbook. The format carries no usable
// styling through this reader, so the result is grid data with default
// sizing; the viewer renders it unstyled.
func DecodeXLS(data []byte) ([]content.Sheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &content.DecodeError{
			Format: "spreadsheet",
			Err:    fmt.Errorf("workbook could not be parsed: %w", err),
		}
	}

	numSheets := wb.GetNumberSheets()
	if numSheets == 0 {
		return nil, &content.DecodeError{
			Format: "spreadsheet",
			Err:    fmt.Errorf("%w: workbook contains no sheets", content.ErrNoData),
		}
	}

	sheets := make([]content.Sheet, 0, numSheets)
	anyData := false
	for i := 0; i < numSheets; i++ {
		sheet, err := wb.GetSheet(i)
		if err != nil {
			continue
		}

		out := content.Sheet{Name: sheet.GetName(), Grid: [][]string{}}
		numRows := sheet.GetNumberRows()

		maxCols := 0
		grid := make([][]string, 0, numRows)
		for r := 0; r < numRows; r++ {
			row, err := sheet.GetRow(r)
			if err != nil || row == nil {
				grid = append(grid, []string{})
				continue
			}
			cols := row.GetCols()
			vals := make([]string, len(cols))
			for c, cell := range cols {
				vals[c] = strings.TrimSpace(cell.GetString())
			}
			if len(vals) > maxCols {
				maxCols = len(vals)
			}
			grid = append(grid, vals)
		}

		for _, row := range grid {
			padded := make([]string, maxCols)
			copy(padded, row)
			out.Grid = append(out.Grid, padded)
		}
		if gridHasData(out.Grid) {
			anyData = true
		} else {
			out.Grid = [][]string{}
		}

		if n := len(out.Grid); n > 0 {
			out.RowHeights = make([]int, n)
			for r := range out.RowHeights {
				out.RowHeights[r] = defaultRowHeightPx
			}
			out.ColWidths = make([]int, maxCols)
			for c := range out.ColWidths {
				out.ColWidths[c] = defaultColWidthPx
			}
		}
		sheets = append(sheets, out)
	}

	if len(sheets) == 0 || !anyData {
		return nil, &content.DecodeError{
			Format: "spreadsheet",
			Err:    fmt.Errorf("%w: no sheet contains any data", content.ErrNoData),
		}
	}
	return sheets, nil
}

func gridHasData(grid [][]string) bool {
	for _, row := range grid {
		for _, cell := range row {
			if cell != "" {
				return true
			}
		}
	}
	return false
}
