package services

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"covid-risk-areas/models"
	"covid-risk-areas/utils"
)

// ReportTitle heads every rendered report.
const ReportTitle = "全国疫情中高风险地区（实时更新）"

const (
	titleRow  = 1
	noteRow   = 2
	headerRow = 3
	firstRow  = 4
)

// ExcelFilename returns the attachment name of the workbook for t,
// e.g. "5月2日全国中高风险地区明细.xlsx".
func ExcelFilename(t time.Time) string {
	return utils.FormatMonthDay(t) + "全国中高风险地区明细.xlsx"
}

type workbookStyles struct {
	title, note, header, cell, newCell int
}

// ToExcel lays stat out as a single-sheet workbook: a merged title row, a
// merged note row with the headline, the header row and then the grid with
// every spanned cell merged. Added areas are written in red. The caller
// closes the returned file.
func ToExcel(stat *models.Statistic) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	styles, err := newWorkbookStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	lastCol, err := excelize.ColumnNumberToName(len(TableHeaders))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("excel: last column: %w", err)
	}

	if err := writeBanner(f, sheet, lastCol, stat, styles); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeHeader(f, sheet, styles); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeGrid(f, sheet, lastCol, stat.Rows, styles); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   ReportTitle,
		Creator: "covid-risk-areas",
		Created: stat.CreatedAt.Format(time.RFC3339),
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("excel: doc props: %w", err)
	}
	return f, nil
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	defs := []*excelize.Style{
		{
			Font:      &excelize.Font{Bold: true, Size: 18},
			Alignment: center,
		},
		{
			Font:      &excelize.Font{Size: 12},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
		},
		{
			Font:      &excelize.Font{Bold: true, Size: 12},
			Border:    border,
			Alignment: center,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F2F2F2"}},
		},
		{
			Font:      &excelize.Font{Size: 11},
			Border:    border,
			Alignment: center,
		},
		{
			Font:      &excelize.Font{Size: 11, Color: "FF0000"},
			Border:    border,
			Alignment: center,
		},
	}

	var s workbookStyles
	targets := []*int{&s.title, &s.note, &s.header, &s.cell, &s.newCell}
	for i, d := range defs {
		id, err := f.NewStyle(d)
		if err != nil {
			return s, fmt.Errorf("excel: new style: %w", err)
		}
		*targets[i] = id
	}
	return s, nil
}

func writeBanner(f *excelize.File, sheet, lastCol string, stat *models.Statistic, styles workbookStyles) error {
	banner := []struct {
		row    int
		text   string
		style  int
		height float64
	}{
		{titleRow, ReportTitle, styles.title, 36},
		{noteRow, Headline(stat), styles.note, 60},
	}

	for _, line := range banner {
		first := fmt.Sprintf("A%d", line.row)
		last := fmt.Sprintf("%s%d", lastCol, line.row)
		if err := f.SetCellValue(sheet, first, line.text); err != nil {
			return fmt.Errorf("excel: write row %d: %w", line.row, err)
		}
		if err := f.MergeCell(sheet, first, last); err != nil {
			return fmt.Errorf("excel: merge row %d: %w", line.row, err)
		}
		if err := f.SetCellStyle(sheet, first, last, line.style); err != nil {
			return fmt.Errorf("excel: style row %d: %w", line.row, err)
		}
		if err := f.SetRowHeight(sheet, line.row, line.height); err != nil {
			return fmt.Errorf("excel: height row %d: %w", line.row, err)
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, styles workbookStyles) error {
	for i, h := range TableHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return fmt.Errorf("excel: header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("excel: write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return fmt.Errorf("excel: style header: %w", err)
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, tableWidths[i]); err != nil {
			return fmt.Errorf("excel: column width: %w", err)
		}
	}
	return nil
}

func writeGrid(f *excelize.File, sheet, lastCol string, rows [][]models.Cell, styles workbookStyles) error {
	if len(rows) == 0 {
		return nil
	}

	// borders for every slot, including the ones covered by merges
	if err := f.SetCellStyle(sheet,
		fmt.Sprintf("A%d", firstRow),
		fmt.Sprintf("%s%d", lastCol, firstRow+len(rows)-1),
		styles.cell); err != nil {
		return fmt.Errorf("excel: style grid: %w", err)
	}

	for r, row := range rows {
		for c, cell := range row {
			if cell.Text == "" {
				continue
			}
			topLeft, err := excelize.CoordinatesToCellName(c+1, firstRow+r)
			if err != nil {
				return fmt.Errorf("excel: grid cell: %w", err)
			}
			if err := f.SetCellValue(sheet, topLeft, cell.Text); err != nil {
				return fmt.Errorf("excel: write %s: %w", topLeft, err)
			}

			bottomRight, err := excelize.CoordinatesToCellName(c+max(cell.Colspan, 1), firstRow+r+max(cell.Rowspan, 1)-1)
			if err != nil {
				return fmt.Errorf("excel: grid cell: %w", err)
			}
			if cell.Rowspan > 1 || cell.Colspan > 1 {
				if err := f.MergeCell(sheet, topLeft, bottomRight); err != nil {
					return fmt.Errorf("excel: merge %s:%s: %w", topLeft, bottomRight, err)
				}
			}
			if cell.New {
				if err := f.SetCellStyle(sheet, topLeft, bottomRight, styles.newCell); err != nil {
					return fmt.Errorf("excel: style %s: %w", topLeft, err)
				}
			}
		}
	}
	return nil
}
