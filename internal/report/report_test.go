package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sticker-floor-tracker/internal/model"
)

func ptr[T any](v T) *T { return &v }

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	w := NewWriter(dir)
	w.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local) }
	return w, dir
}

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 59, 0, time.Local)
	assert.Equal(t, "floor_prices_2024-01-02_03-04.xlsx", FileName(ts))
}

func TestWrite_EmptyRowsWritesNothing(t *testing.T) {
	w, dir := newTestWriter(t)

	path, err := w.Write(nil)
	require.NoError(t, err)
	assert.Empty(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestColumnNames(t *testing.T) {
	unmatched := model.ResultRow{Collection: "A", SubCollection: "B", Floor: decimal.NewFromInt(1)}
	matched := unmatched
	matched.Reference = &model.ReferenceRow{}

	assert.Equal(t, []string{ColCollection, ColSubCollection, ColFloor}, columnNames([]model.ResultRow{unmatched}))
	assert.Equal(t,
		[]string{ColCollection, ColSubCollection, ColFloor, ColStars, ColUSD, ColIssued, ColDate},
		columnNames([]model.ResultRow{unmatched, matched}))
}

func TestWrite_ValuesAndLayout(t *testing.T) {
	w, dir := newTestWriter(t)
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []model.ResultRow{
		{
			Collection:    "Space",
			SubCollection: "Rocket",
			Floor:         decimal.RequireFromString("1.01"),
			Reference: &model.ReferenceRow{
				Collection:        "Space",
				SubCollection:     "Rocket",
				InitialPriceStars: ptr(100.0),
				Date:              &date,
			},
		},
		{
			Collection:    "Очень длинная коллекция",
			SubCollection: "Moon",
			Floor:         decimal.RequireFromString("1234.5"),
		},
	}

	path, err := w.Write(rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "floor_prices_2025-03-14_09-26.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	rawRows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rawRows, 3)
	assert.Equal(t, []string{ColCollection, ColSubCollection, ColFloor, ColStars, ColUSD, ColIssued, ColDate}, rawRows[0])
	assert.Equal(t, []string{"Space", "Rocket", "1.01", "100", "", "", "45292"}, rawRows[1])
	// Unmatched rows leave the reference cells empty.
	assert.Equal(t, []string{"Очень длинная коллекция", "Moon", "1234.5"}, rawRows[2])

	styleOf := func(cell string) *excelize.Style {
		t.Helper()
		id, err := f.GetCellStyle(sheet, cell)
		require.NoError(t, err)
		style, err := f.GetStyle(id)
		require.NoError(t, err)
		return style
	}

	header := styleOf("A1")
	require.NotNil(t, header.Font)
	assert.True(t, header.Font.Bold)
	assert.Len(t, header.Border, 4)
	require.NotNil(t, header.Alignment)
	assert.Equal(t, "center", header.Alignment.Horizontal)
	assert.Equal(t, "center", header.Alignment.Vertical)

	body := styleOf("A2")
	assert.True(t, body.Font == nil || !body.Font.Bold)
	assert.Len(t, body.Border, 4)

	floor := styleOf("C3")
	require.NotNil(t, floor.CustomNumFmt)
	assert.Equal(t, "#,##0.00", *floor.CustomNumFmt)

	dateStyle := styleOf("G2")
	require.NotNil(t, dateStyle.CustomNumFmt)
	assert.Equal(t, "dd mmm yyyy", *dateStyle.CustomNumFmt)

	// Empty cells inside the used range are bordered too.
	assert.Len(t, styleOf("E3").Border, 4)

	widthA, err := f.GetColWidth(sheet, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(len([]rune("Очень длинная коллекция"))+2), widthA)

	widthG, err := f.GetColWidth(sheet, "G")
	require.NoError(t, err)
	assert.Equal(t, float64(len("2024-01-01 00:00:00")+2), widthG)
}

func TestWrite_FormatsFollowColumnNames(t *testing.T) {
	w, _ := newTestWriter(t)

	// Without reference columns there is no Date column to format.
	path, err := w.Write([]model.ResultRow{
		{Collection: "A", SubCollection: "B", Floor: decimal.RequireFromString("2")},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	cols, err := f.GetCols(sheet)
	require.NoError(t, err)
	assert.Len(t, cols, 3)

	id, err := f.GetCellStyle(sheet, "C2")
	require.NoError(t, err)
	style, err := f.GetStyle(id)
	require.NoError(t, err)
	require.NotNil(t, style.CustomNumFmt)
	assert.Equal(t, "#,##0.00", *style.CustomNumFmt)
}

func TestWrite_SameMinuteOverwrites(t *testing.T) {
	w, dir := newTestWriter(t)
	rows := []model.ResultRow{{Collection: "A", SubCollection: "B", Floor: decimal.NewFromInt(1)}}

	first, err := w.Write(rows)
	require.NoError(t, err)
	second, err := w.Write(rows)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func columnNames(rows []model.ResultRow) []string {
	var names []string
	for _, c := range columnsFor(rows) {
		names = append(names, c.name)
	}
	return names
}
