// Package audit produces the booking report reception downloads as Excel.
package audit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ringbook/internal/models"
)

// ExcelWriter abstracts the spreadsheet backend.
type ExcelWriter interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []interface{}) error
	Save(w io.Writer) error
	Close() error
}

// ExcelizeWriter implements ExcelWriter using the excelize library.
type ExcelizeWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

// NewExcelizeWriter creates a new Excel writer.
func NewExcelizeWriter() ExcelWriter {
	return &ExcelizeWriter{
		file: excelize.NewFile(),
	}
}

// AddSheet adds a new sheet with the given name.
func (w *ExcelizeWriter) AddSheet(name string) error {
	// Truncate sheet name to 31 chars (Excel limit)
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		// Rename default sheet
		w.file.SetSheetName("Sheet1", name)
	} else {
		_, err := w.file.NewSheet(name)
		if err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes column headers to current sheet.
func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to current sheet.
func (w *ExcelizeWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the Excel file to the writer.
func (w *ExcelizeWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *ExcelizeWriter) Close() error {
	return w.file.Close()
}

var bookingColumns = []string{"Slot ID", "Slot Time", "Holder", "Created At"}

// WriteBookings writes the booked-slot report to the writer.
func WriteBookings(w ExcelWriter, slots []models.Slot) error {
	if err := w.AddSheet("Bookings"); err != nil {
		return err
	}
	if err := w.WriteHeader(bookingColumns); err != nil {
		return err
	}
	for i := range slots {
		s := &slots[i]
		row := []interface{}{
			s.ID,
			s.SlotTime.Format("2006-01-02 15:04"),
			s.Holder(),
			s.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("write booking row %d: %w", s.ID, err)
		}
	}
	return nil
}
