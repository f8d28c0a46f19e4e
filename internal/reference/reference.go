// Package reference loads the issuance reference spreadsheet (Stickers.xlsx)
// and answers name-based lookups against it.
package reference

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sticker-floor-tracker/internal/model"
	"sticker-floor-tracker/internal/parse"
)

// Column names of the reference table after renaming.
const (
	ColCollection    = "Коллекция"
	ColSubCollection = "Сабколлекция"
	ColStars         = "Initial price (stars)"
	ColUSD           = "Initial price ($)"
	ColIssued        = "Issued"
	ColDate          = "Date"
)

// renames maps source headers to the names used everywhere else.
var renames = map[string]string{
	"By":          ColCollection,
	"Collections": ColSubCollection,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02.01.2006",
}

// Table is the in-memory reference table. It is read-only after Load.
type Table struct {
	rows  []model.ReferenceRow
	index map[parse.NameKey]int
}

// NewTable indexes rows for lookup. Earlier rows win on duplicate keys.
func NewTable(rows []model.ReferenceRow) *Table {
	t := &Table{
		rows:  rows,
		index: make(map[parse.NameKey]int, len(rows)),
	}
	for i, r := range rows {
		key := parse.NewNameKey(r.Collection, r.SubCollection)
		if _, exists := t.index[key]; !exists {
			t.index[key] = i
		}
	}
	return t
}

// Len returns the number of loaded rows.
func (t *Table) Len() int { return len(t.rows) }

// Lookup returns the first row whose normalized collection and sub-collection
// names equal the normalized arguments.
func (t *Table) Lookup(collection, subCollection string) (model.ReferenceRow, bool) {
	i, ok := t.index[parse.NewNameKey(collection, subCollection)]
	if !ok {
		return model.ReferenceRow{}, false
	}
	return t.rows[i], true
}

// Load reads the reference spreadsheet at path. sheet selects a worksheet by
// name; empty means the first one.
func Load(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	// Raw values keep numeric-looking names as typed ("100", not "100.0")
	// and expose dates as serial numbers.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	columns := mapColumns(rows[0])
	for _, required := range []string{ColCollection, ColSubCollection} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("reference sheet %q has no %q column", sheet, required)
		}
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	var out []model.ReferenceRow
	for _, row := range rows[1:] {
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		collection, subCollection := cell(ColCollection), cell(ColSubCollection)
		if collection == "" && subCollection == "" {
			continue
		}

		out = append(out, model.ReferenceRow{
			Collection:        rawText(row, columns[ColCollection]),
			SubCollection:     rawText(row, columns[ColSubCollection]),
			InitialPriceStars: parseNumber(cell(ColStars)),
			InitialPriceUSD:   parseNumber(cell(ColUSD)),
			Issued:            parseNumber(cell(ColIssued)),
			Date:              parseDate(cell(ColDate), date1904),
		})
	}

	return NewTable(out), nil
}

// mapColumns returns the index of each known header, applying renames.
func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if renamed, ok := renames[h]; ok {
			h = renamed
		}
		if _, exists := columns[h]; !exists {
			columns[h] = i
		}
	}
	return columns
}

func rawText(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseNumber(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseDate(s string, date1904 bool) *time.Time {
	if s == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return nil
		}
		return &t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
