package artifact

import (
	"fmt"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/xuri/excelize/v2"
)

// WorkbookEntry is one processed (or failed) document in a summary workbook.
type WorkbookEntry struct {
	Filename string
	Pages    int
	Blocks   int
	Outline  doctree.Outline
	Err      string
}

const (
	documentsSheet = "Documents"
	outlineSheet   = "Outline"
)

// WriteWorkbook writes an XLSX file with one row per document on the
// Documents sheet and one row per heading on the Outline sheet.
func WriteWorkbook(path string, entries []WorkbookEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(outlineSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	writeRow := func(sheet string, row int, values ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow(documentsSheet, 1, "File", "Title", "Pages", "Blocks", "Headings", "Status"); err != nil {
		return err
	}
	if err := writeRow(outlineSheet, 1, "File", "Level", "Text", "Page"); err != nil {
		return err
	}

	outlineRow := 2
	for i, e := range entries {
		status := "ok"
		if e.Err != "" {
			status = e.Err
		}
		if err := writeRow(documentsSheet, i+2, e.Filename, e.Outline.Title, e.Pages, e.Blocks, len(e.Outline.Entries), status); err != nil {
			return err
		}
		for _, h := range e.Outline.Entries {
			if err := writeRow(outlineSheet, outlineRow, e.Filename, h.Level.String(), h.Text, h.Page); err != nil {
				return err
			}
			outlineRow++
		}
	}

	_ = f.SetColWidth(documentsSheet, "A", "B", 40)
	_ = f.SetColWidth(documentsSheet, "F", "F", 40)
	_ = f.SetColWidth(outlineSheet, "A", "A", 40)
	_ = f.SetColWidth(outlineSheet, "C", "C", 60)

	idx, err := f.GetSheetIndex(documentsSheet)
	if err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
