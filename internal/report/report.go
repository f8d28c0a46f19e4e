// Package report writes the floor price spreadsheet.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"sticker-floor-tracker/internal/model"
	"sticker-floor-tracker/internal/reference"
)

// Column headers of the report.
const (
	ColCollection    = reference.ColCollection
	ColSubCollection = reference.ColSubCollection
	ColFloor         = "Floor (TON)"
	ColStars         = reference.ColStars
	ColUSD           = reference.ColUSD
	ColIssued        = reference.ColIssued
	ColDate          = reference.ColDate
)

const (
	sheetName      = "Sheet1" // default sheet of excelize.NewFile
	widthPadding   = 2
	fileNameLayout = "2006-01-02_15-04"
)

// numberFormats maps a column header to the number format of its data cells.
var numberFormats = map[string]string{
	ColFloor: "#,##0.00",
	ColDate:  "dd mmm yyyy",
}

type column struct {
	name  string
	value func(model.ResultRow) any // nil result leaves the cell empty
}

var baseColumns = []column{
	{ColCollection, func(r model.ResultRow) any { return r.Collection }},
	{ColSubCollection, func(r model.ResultRow) any { return r.SubCollection }},
	{ColFloor, func(r model.ResultRow) any { return r.Floor.InexactFloat64() }},
}

var referenceColumns = []column{
	{ColStars, func(r model.ResultRow) any { return refFloat(r, func(ref *model.ReferenceRow) *float64 { return ref.InitialPriceStars }) }},
	{ColUSD, func(r model.ResultRow) any { return refFloat(r, func(ref *model.ReferenceRow) *float64 { return ref.InitialPriceUSD }) }},
	{ColIssued, func(r model.ResultRow) any { return refFloat(r, func(ref *model.ReferenceRow) *float64 { return ref.Issued }) }},
	{ColDate, func(r model.ResultRow) any {
		if r.Reference == nil || r.Reference.Date == nil {
			return nil
		}
		return *r.Reference.Date
	}},
}

func refFloat(r model.ResultRow, field func(*model.ReferenceRow) *float64) any {
	if r.Reference == nil {
		return nil
	}
	if v := field(r.Reference); v != nil {
		return *v
	}
	return nil
}

// Writer writes reports into a directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// FileName returns the report file name for t, e.g. floor_prices_2024-01-01_12-30.xlsx.
// Runs within the same minute share a name.
func FileName(t time.Time) string {
	return fmt.Sprintf("floor_prices_%s.xlsx", t.Format(fileNameLayout))
}

// columnsFor returns the report columns for rows. The reference columns are
// only present when at least one row has a reference match.
func columnsFor(rows []model.ResultRow) []column {
	cols := append([]column(nil), baseColumns...)
	for _, r := range rows {
		if r.Reference != nil {
			return append(cols, referenceColumns...)
		}
	}
	return cols
}

// Write saves rows to a new timestamped workbook and formats it. It writes
// nothing and returns "" when rows is empty.
func (w *Writer) Write(rows []model.ResultRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(w.dir, FileName(w.now()))
	cols := columnsFor(rows)

	widths, err := writeRows(path, cols, rows)
	if err != nil {
		return "", err
	}
	if err := applyLayout(path, cols, len(rows), widths); err != nil {
		return "", err
	}
	return path, nil
}

// writeRows writes the header and data rows and returns the longest
// stringified value per column.
func writeRows(path string, cols []column, rows []model.ResultRow) ([]int, error) {
	f := excelize.NewFile()
	defer f.Close()

	widths := make([]int, len(cols))
	for ci, c := range cols {
		if err := setCell(f, ci+1, 1, c.name); err != nil {
			return nil, err
		}
		widths[ci] = displayLen(c.name)
	}

	for ri, r := range rows {
		for ci, c := range cols {
			v := c.value(r)
			if v == nil {
				continue
			}
			if err := setCell(f, ci+1, ri+2, v); err != nil {
				return nil, err
			}
			widths[ci] = max(widths[ci], displayLen(v))
		}
	}

	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	return widths, nil
}

func setCell(f *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, cell, v); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell, err)
	}
	return nil
}

// applyLayout re-opens the saved report and applies borders, alignment,
// column widths, the bold header and per-column number formats.
func applyLayout(path string, cols []column, rowCount int, widths []int) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to reopen report: %w", err)
	}
	defer f.Close()

	base := excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}

	header := base
	header.Font = &excelize.Font{Bold: true}
	headerStyle, err := f.NewStyle(&header)
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&base)
	if err != nil {
		return fmt.Errorf("failed to create body style: %w", err)
	}

	lastRow := rowCount + 1
	for ci, c := range cols {
		name, err := excelize.ColumnNumberToName(ci + 1)
		if err != nil {
			return err
		}

		if err := f.SetCellStyle(sheetName, name+"1", name+"1", headerStyle); err != nil {
			return fmt.Errorf("failed to style header %s: %w", c.name, err)
		}

		style := bodyStyle
		if numFmt, ok := numberFormats[c.name]; ok {
			s := base
			s.CustomNumFmt = &numFmt
			if style, err = f.NewStyle(&s); err != nil {
				return fmt.Errorf("failed to create style for %s: %w", c.name, err)
			}
		}
		if err := f.SetCellStyle(sheetName, name+"2", name+strconv.Itoa(lastRow), style); err != nil {
			return fmt.Errorf("failed to style column %s: %w", c.name, err)
		}

		if err := f.SetColWidth(sheetName, name, name, float64(widths[ci]+widthPadding)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", c.name, err)
		}
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save formatted report: %w", err)
	}
	return nil
}

// displayLen is the character count of v as it would be printed.
func displayLen(v any) int {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		s = x.Format("2006-01-02 15:04:05")
	default:
		s = fmt.Sprint(x)
	}
	return utf8.RuneCountInString(s)
}
