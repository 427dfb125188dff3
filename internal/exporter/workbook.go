package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// SheetWriter writes a report as named sheets of cells. Rows and columns
// are zero-based; row 0 of a sheet is its header.
type SheetWriter interface {
	AddSheet(name string) error
	WriteHeader(sheet string, titles []string) error
	WriteRow(sheet string, row int, cells []any) error
	SetColumnWidth(sheet string, col int, width float64) error
	// Close persists the workbook. Discard releases it without writing.
	Close() error
	Discard() error
}

// placeholderSheet renames the default sheet when a report sheet needs its name
const placeholderSheet = "_placeholder"

// ExcelWorkbook is a SheetWriter backed by an xlsx file
type ExcelWorkbook struct {
	path         string
	file         *excelize.File
	boldStyle    int
	defaultSheet string
	sheets       int
	closed       bool
}

// NewExcelWorkbook creates an empty workbook that is saved to path on Close
func NewExcelWorkbook(path string) (*ExcelWorkbook, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &ExcelWorkbook{
		path:         path,
		file:         f,
		boldStyle:    bold,
		defaultSheet: f.GetSheetName(0),
	}, nil
}

// AddSheet creates a sheet. The workbook's placeholder sheet is removed
// once the first real sheet exists, so a workbook without sheets keeps it.
// Sheet names are case-insensitive; a name that matches an existing sheet
// is an error.
func (w *ExcelWorkbook) AddSheet(name string) error {
	if w.closed {
		return fmt.Errorf("workbook %s is closed", w.path)
	}
	existing, err := w.file.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("invalid sheet name %q: %w", name, err)
	}
	if existing != -1 {
		if w.sheets > 0 {
			return fmt.Errorf("sheet %q already exists as %q", name, w.file.GetSheetName(existing))
		}
		// Only the placeholder exists; move it aside so name can be created.
		if err := w.file.SetSheetName(w.defaultSheet, placeholderSheet); err != nil {
			return fmt.Errorf("failed to rename default sheet: %w", err)
		}
		w.defaultSheet = placeholderSheet
	}

	if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", name, err)
	}
	w.sheets++
	if w.sheets == 1 {
		if err := w.file.DeleteSheet(w.defaultSheet); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
		index, err := w.file.GetSheetIndex(name)
		if err != nil {
			return fmt.Errorf("failed to locate sheet %q: %w", name, err)
		}
		w.file.SetActiveSheet(index)
	}
	return nil
}

// WriteHeader writes titles in bold on row 0
func (w *ExcelWorkbook) WriteHeader(sheet string, titles []string) error {
	for col, title := range titles {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("failed to write header %q: %w", title, err)
		}
		if err := w.file.SetCellStyle(sheet, cell, cell, w.boldStyle); err != nil {
			return fmt.Errorf("failed to style header %q: %w", title, err)
		}
	}
	return nil
}

// WriteRow writes cells on the given row. Empty strings leave the cell blank.
func (w *ExcelWorkbook) WriteRow(sheet string, row int, cells []any) error {
	for col, value := range cells {
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// SetColumnWidth sets the width of one column
func (w *ExcelWorkbook) SetColumnWidth(sheet string, col int, width float64) error {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return err
	}
	return w.file.SetColWidth(sheet, name, name, width)
}

// Close saves the workbook to its path and releases it
func (w *ExcelWorkbook) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			w.file.Close()
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := w.file.SaveAs(w.path); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to save workbook %s: %w", w.path, err)
	}
	return w.file.Close()
}

// Discard releases the workbook without writing anything to disk
func (w *ExcelWorkbook) Discard() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
