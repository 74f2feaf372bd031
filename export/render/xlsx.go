package render

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ncobase/docport/export/structs"
)

// SpreadsheetRenderer produces one worksheet per table. Requests without
// tables skip the format.
type SpreadsheetRenderer struct{}

func (r *SpreadsheetRenderer) Format() string { return structs.FormatXlsx }

func (r *SpreadsheetRenderer) Render(req *structs.ExportRequest, scratchDir string) (string, error) {
	if len(req.Tables) == 0 {
		return "", nil
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("render xlsx: %w", err)
	}

	for i, table := range req.Tables {
		sheet := sheetName(table.Name)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return "", fmt.Errorf("render xlsx: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("render xlsx: %w", err)
		}

		if err := r.writeTable(f, sheet, &table, headerStyle); err != nil {
			return "", fmt.Errorf("render xlsx: %w", err)
		}
	}

	outputPath := filepath.Join(scratchDir, "tables.xlsx")
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("render xlsx: %w", err)
	}
	return outputPath, nil
}

func (r *SpreadsheetRenderer) writeTable(f *excelize.File, sheet string, table *structs.Table, headerStyle int) error {
	columns := table.EffectiveColumns()

	for ci, col := range columns {
		cell, err := excelize.CoordinatesToCellName(ci+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	widths := make([]int, len(columns))
	for ci, col := range columns {
		widths[ci] = len(col)
	}

	for ri, row := range table.Rows {
		values := row.Values()
		for ci, col := range columns {
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, values[col]); err != nil {
				return err
			}
			if l := len(stringify(values[col])); l > widths[ci] {
				widths[ci] = l
			}
		}
	}

	if len(columns) > 0 {
		lastHeader, err := excelize.CoordinatesToCellName(len(columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
			return err
		}
	}

	for ci := range columns {
		name, err := excelize.ColumnNumberToName(ci + 1)
		if err != nil {
			return err
		}
		width := widths[ci] + 2
		if width < 12 {
			width = 12
		}
		if width > 60 {
			width = 60
		}
		if err := f.SetColWidth(sheet, name, name, float64(width)); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// sheetName fits a table name into Excel's 31-character sheet name limit.
func sheetName(name string) string {
	if name == "" {
		return "Sheet1"
	}
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
