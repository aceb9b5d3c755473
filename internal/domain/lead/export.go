package lead

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportFormat is a downloadable lead list format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts csv, xlsx and the alias excel. Empty means csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", ErrInvalidExportFormat
	}
}

func (f ExportFormat) Valid() bool {
	return f == FormatCSV || f == FormatXLSX
}

func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename is the attachment name for an export generated at t.
func (f ExportFormat) Filename(t time.Time) string {
	return fmt.Sprintf("leads-%s.%s", t.UTC().Format("20060102-150405"), f)
}

var exportHeader = []string{
	"ID", "Name", "Email", "Phone", "Business Type", "Status",
	"Source", "Message", "Notes", "Created At", "Updated At",
}

const exportSheet = "Leads"

func exportRow(l *Lead) []string {
	return []string{
		strconv.FormatInt(l.ID, 10),
		l.Name,
		l.Email,
		l.Phone,
		string(l.BusinessType),
		string(l.Status),
		l.Source,
		safeCell(l.Message),
		safeCell(l.Notes),
		l.CreatedAt.UTC().Format(time.RFC3339),
		l.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// safeCell stops spreadsheet apps from evaluating free text as a formula.
func safeCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@", rune(v[0])) {
		return "'" + v
	}
	return v
}

func writeExport(w io.Writer, format ExportFormat, leads []Lead) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, leads)
	case FormatXLSX:
		return writeXLSX(w, leads)
	default:
		return ErrInvalidExportFormat
	}
}

func writeCSV(w io.Writer, leads []Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range leads {
		if err := cw.Write(exportRow(&leads[i])); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, leads []Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, len(exportHeader), 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(exportRow(&leads[i]))); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	_, err = f.WriteTo(w)
	return err
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
