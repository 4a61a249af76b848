package ingestion

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const templateSheet = "Cases"

// buildTemplateWorkbook renders the downloadable XLSX import template: the
// canonical header row plus one example row.
func buildTemplateWorkbook() ([]byte, error) {
	headers, example := TemplateRow()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(templateSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, label := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(templateSheet, cell, label); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	for col, value := range example {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return nil, fmt.Errorf("failed to address example cell: %w", err)
		}
		if err := f.SetCellValue(templateSheet, cell, value); err != nil {
			return nil, fmt.Errorf("failed to write example row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize template: %w", err)
	}
	return buf.Bytes(), nil
}
