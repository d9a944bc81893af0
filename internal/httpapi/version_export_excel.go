package httpapi

import (
	"bytes"
	"fmt"

	"claro-backend/internal/domain"

	"github.com/xuri/excelize/v2"
)

// VersionExportHeader is the column layout of the history export.
var VersionExportHeader = []string{
	"Article Number",
	"Version Start Date",
	"Version End Date",
	"Current",
	"Content",
}

const exportSheetName = "Article Versions"

// GenerateVersionHistoryExport renders version records into an xlsx
// workbook, one row per version, current versions marked.
func GenerateVersionHistoryExport(records []domain.VersionRecord) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; Close only on the error paths.

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, title := range VersionExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheetName, cell, title); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header: %w", err)
		}
		if err := f.SetCellStyle(exportSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}

	const dateLayout = "2006-01-02"
	for i, rec := range records {
		row := i + 2

		endDate := ""
		current := "yes"
		if rec.VersionEndDate != nil {
			endDate = rec.VersionEndDate.Format(dateLayout)
			current = "no"
		}

		values := []any{
			rec.ArticleNumber,
			rec.VersionStartDate.Format(dateLayout),
			endDate,
			current,
			rec.Content,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(exportSheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell: %w", err)
			}
		}
	}

	_ = f.SetColWidth(exportSheetName, "A", "A", 16)
	_ = f.SetColWidth(exportSheetName, "B", "D", 18)
	_ = f.SetColWidth(exportSheetName, "E", "E", 80)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}
