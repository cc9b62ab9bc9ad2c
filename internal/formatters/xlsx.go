package formatters

import (
	"fmt"
	"strings"

	"jobprep/internal/results"

	"github.com/xuri/excelize/v2"
)

const (
	resultSheet   = "결과"
	analysisSheet = "분석"
)

// ReportXLSXFormatter writes an assessment report as a workbook. The returned
// string holds the raw xlsx bytes.
type ReportXLSXFormatter struct{}

func (f *ReportXLSXFormatter) Format(data any) (string, error) {
	r, err := deref[results.Report](data)
	if err != nil {
		return "", err
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	// NewFile starts with "Sheet1"; rename it so the result sheet is first
	if err := wb.SetSheetName(wb.GetSheetName(0), resultSheet); err != nil {
		return "", fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if err := writeResultSheet(wb, r); err != nil {
		return "", err
	}

	if _, err := wb.NewSheet(analysisSheet); err != nil {
		return "", fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if err := writeAnalysisSheet(wb, r); err != nil {
		return "", err
	}
	wb.SetActiveSheet(0)

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.String(), nil
}

func (f *ReportXLSXFormatter) SupportedType() string { return TypeReport }

func writeResultSheet(wb *excelize.File, r results.Report) error {
	header, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create Excel style: %w", err)
	}

	rows := [][]any{
		{"이름", r.Name},
		{"유형", r.TypeLabel},
		{"가장 두드러진 역량", r.TopTraitLabel},
		{},
		{"역량", "점수"},
	}
	for _, row := range r.Rows {
		if row.Score != nil {
			rows = append(rows, []any{row.Label, *row.Score})
		} else {
			rows = append(rows, []any{row.Label, "-"})
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(resultSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write Excel row: %w", err)
		}
	}
	if err := wb.SetCellStyle(resultSheet, "A5", "B5", header); err != nil {
		return err
	}
	return wb.SetColWidth(resultSheet, "A", "A", 20)
}

func writeAnalysisSheet(wb *excelize.File, r results.Report) error {
	rows := [][]any{{"요약", strings.Join(r.Summary, "\n")}}
	for _, w := range r.Warnings {
		rows = append(rows, []any{"주의", w})
	}
	if a := r.Analysis; a != nil {
		rows = append(rows,
			[]any{"분석", a.Summary},
			[]any{"업무 스타일", a.WorkStyle},
			[]any{"강점", strings.Join(a.Strengths, "\n")},
			[]any{"약점", strings.Join(a.Weaknesses, "\n")},
		)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(analysisSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write Excel row: %w", err)
		}
	}
	if err := wb.SetColWidth(analysisSheet, "A", "A", 14); err != nil {
		return err
	}
	return wb.SetColWidth(analysisSheet, "B", "B", 80)
}
