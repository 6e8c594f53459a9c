package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, dir, name string, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for sheetName, rows := range sheets {
		sheet, err := f.AddSheet(sheetName)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX_FirstSheet(t *testing.T) {
	path := createTestXLSX(t, t.TempDir(), "orders.xlsx", map[string][][]string{
		"Sheet1": {
			{"Order_ID", "Priority"},
			{"ORD1", "Express"},
			{"ORD2", "Standard"},
		},
	})

	tbl, err := ReadXLSX("orders", path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, "orders", tbl.Name)
	assert.Equal(t, []string{"Order_ID", "Priority"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "Standard", tbl.Value(1, 1))
}

func TestReadXLSX_NamedSheet(t *testing.T) {
	path := createTestXLSX(t, t.TempDir(), "tables.xlsx", map[string][][]string{
		"costs": {
			{"Order_ID", "Fuel_Cost"},
			{"ORD1", "310.5"},
		},
	})

	tbl, err := ReadXLSX("costs", path, XLSXOptions{SheetName: "costs"})
	require.NoError(t, err)
	assert.Equal(t, "310.5", tbl.Value(0, 1))

	_, err = ReadXLSX("costs", path, XLSXOptions{SheetName: "routes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "routes" not found`)
}

func TestReadXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := createTestXLSX(t, t.TempDir(), "one.xlsx", map[string][][]string{
		"Sheet1": {{"Order_ID"}},
	})
	_, err := ReadXLSX("orders", path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX("orders", filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	require.Error(t, err)
}
