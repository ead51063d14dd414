package sheet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/long1234hcc/ctc-east-extract/internal/layout"
)

// TestExtractionOverRealWorkbook exercises ExcelizeSheet as the real
// layout.Sheet implementation driving the full pipeline end to end,
// complementing the fakeSheet-driven scenario tests in internal/layout.
func TestExtractionOverRealWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheetName := f.GetSheetName(0)

	boxStyle, err := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheetName, "A1", "B2", boxStyle))

	require.NoError(t, f.SetCellValue(sheetName, "A1", "Name"))
	require.NoError(t, f.SetCellValue(sheetName, "B1", "Amount"))
	require.NoError(t, f.SetCellValue(sheetName, "A2", "Widget"))
	require.NoError(t, f.SetCellValue(sheetName, "B2", "12.5"))

	s, err := NewExcelizeSheet(f, sheetName)
	require.NoError(t, err)

	result := layout.Extract(context.Background(), s, layout.DefaultOptions())
	require.Len(t, result.Tables, 1)
	require.Equal(t, layout.TableBox{MinRow: 1, MaxRow: 2, MinCol: 1, MaxCol: 2}, result.Tables[0].Box)
	require.Len(t, result.Tables[0].Records, 1)
	require.Equal(t, "Widget", result.Tables[0].Records[0]["Name"])
	require.Equal(t, 12.5, result.Tables[0].Records[0]["Amount"])
}
