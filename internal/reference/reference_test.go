package reference

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves rows (header first) to a temporary xlsx file.
func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "Stickers.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

var sourceHeader = []any{"By", "Collections", "Initial price (stars)", "Initial price ($)", "Issued", "Date"}

func TestLoad_RenamesAndParsesColumns(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeWorkbook(t, [][]any{
		sourceHeader,
		{"Space", "Rocket", 100, 1.5, 5000, date},
		{"Space", "Moon", nil, nil, nil, nil},
	})

	table, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	row, ok := table.Lookup("Space", "Rocket")
	require.True(t, ok)
	assert.Equal(t, "Space", row.Collection)
	assert.Equal(t, "Rocket", row.SubCollection)
	require.NotNil(t, row.InitialPriceStars)
	assert.Equal(t, 100.0, *row.InitialPriceStars)
	require.NotNil(t, row.InitialPriceUSD)
	assert.Equal(t, 1.5, *row.InitialPriceUSD)
	require.NotNil(t, row.Issued)
	assert.Equal(t, 5000.0, *row.Issued)
	require.NotNil(t, row.Date)
	assert.True(t, date.Equal(*row.Date), "got %v", *row.Date)

	blank, ok := table.Lookup("Space", "Moon")
	require.True(t, ok)
	assert.Nil(t, blank.InitialPriceStars)
	assert.Nil(t, blank.InitialPriceUSD)
	assert.Nil(t, blank.Issued)
	assert.Nil(t, blank.Date)
}

func TestLoad_NumericKeysStayText(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		sourceHeader,
		{2024, 100, 7, nil, nil, nil},
	})

	table, err := Load(path, "")
	require.NoError(t, err)

	row, ok := table.Lookup("2024", "100")
	require.True(t, ok)
	assert.Equal(t, "2024", row.Collection)
	assert.Equal(t, "100", row.SubCollection)

	_, ok = table.Lookup("2024", "100.0")
	assert.False(t, ok)
}

func TestLoad_AcceptsRenamedHeaders(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{ColCollection, ColSubCollection, ColDate},
		{"Space", "Rocket", "2024-03-05"},
	})

	table, err := Load(path, "")
	require.NoError(t, err)

	row, ok := table.Lookup("space", "rocket")
	require.True(t, ok)
	require.NotNil(t, row.Date)
	assert.Equal(t, "2024-03-05", row.Date.Format("2006-01-02"))
}

func TestLoad_Errors(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"), "")
		assert.Error(t, err)
	})

	t.Run("Missing key column", func(t *testing.T) {
		path := writeWorkbook(t, [][]any{{"By", "Issued"}, {"Space", 1}})
		_, err := Load(path, "")
		assert.Error(t, err)
	})

	t.Run("Unknown sheet", func(t *testing.T) {
		path := writeWorkbook(t, [][]any{sourceHeader})
		_, err := Load(path, "Missing")
		assert.Error(t, err)
	})
}

func TestTable_LookupIsCaseAndWhitespaceInsensitive(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		sourceHeader,
		{" Foo ", "BAR", 1, nil, nil, nil},
		{"foo", "bar", 2, nil, nil, nil},
	})

	table, err := Load(path, "")
	require.NoError(t, err)

	row, ok := table.Lookup("foo", " bar ")
	require.True(t, ok)
	require.NotNil(t, row.InitialPriceStars)
	assert.Equal(t, 1.0, *row.InitialPriceStars, "first match wins")

	_, ok = table.Lookup("foo", "baz")
	assert.False(t, ok)
}
