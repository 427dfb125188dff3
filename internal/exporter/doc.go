// Package exporter writes reported cargo movements to disk.
//
// GradeReport renders one sheet per grade through a SheetWriter. The sheet
// layout is a bold header of eight labels followed by data rows of nine
// cells; the ninth, unlabelled cell carries the STS event type. Columns are
// auto-sized once per sheet after its rows are written.
//
// ExcelWorkbook is the xlsx SheetWriter. It is saved only on Close, so a
// report that fails part way leaves no file behind.
//
// MovementExporter writes the same rows, plus the grade, to a flat CSV via
// CSVWriter.
//
// Example usage:
//
//	workbook, err := exporter.NewExcelWorkbook("tracking.xlsx")
//	if err != nil {
//	    return err
//	}
//	err = exporter.NewGradeReport(workbook, logger).Write(ctx, movements)
package exporter
