package extract

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XlsxText extracts text from an Excel workbook by reading all cells: each
// row becomes its non-empty cells joined with a tab, rows are joined with a
// newline across all sheets. A sheet that fails to read is skipped; a
// workbook that cannot be opened yields an empty string.
func XlsxText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, "\t"))
			}
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
