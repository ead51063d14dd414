package sheet

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/long1234hcc/ctc-east-extract/internal/layout"
)

func TestNewExcelizeSheet_Dimensions(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheetName := f.GetSheetName(0)

	require.NoError(t, f.SetCellValue(sheetName, "A1", "K1"))
	require.NoError(t, f.SetCellValue(sheetName, "C3", "v"))

	s, err := NewExcelizeSheet(f, sheetName)
	require.NoError(t, err)

	rows, cols := s.Dimensions()
	require.Equal(t, 3, rows)
	require.Equal(t, 3, cols)
}

func TestExcelizeSheet_Value_ClassifiesTypes(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheetName := f.GetSheetName(0)

	require.NoError(t, f.SetCellValue(sheetName, "A1", "hello"))
	require.NoError(t, f.SetCellValue(sheetName, "A2", "42.5"))
	require.NoError(t, f.SetCellValue(sheetName, "A3", "true"))
	require.NoError(t, f.SetCellValue(sheetName, "A4", "2024-01-15"))
	require.NoError(t, f.SetCellValue(sheetName, "A5", "$1,234.50"))
	require.NoError(t, f.SetCellValue(sheetName, "A6", ""))

	s, err := NewExcelizeSheet(f, sheetName)
	require.NoError(t, err)

	require.Equal(t, layout.StringValue("hello"), s.Value(1, 1))
	require.Equal(t, layout.KindNumber, s.Value(2, 1).Kind)
	require.InDelta(t, 42.5, s.Value(2, 1).Num, 0.0001)
	require.Equal(t, layout.BoolValue(true), s.Value(3, 1))
	require.Equal(t, layout.KindDate, s.Value(4, 1).Kind)
	require.Equal(t, layout.KindNumber, s.Value(5, 1).Kind)
	require.InDelta(t, 1234.50, s.Value(5, 1).Num, 0.0001)
	require.True(t, s.Value(6, 1).IsNull())
}

func TestExcelizeSheet_Value_CachesLookups(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheetName := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheetName, "A1", "v1"))

	s, err := NewExcelizeSheet(f, sheetName)
	require.NoError(t, err)

	first := s.Value(1, 1)
	require.NoError(t, f.SetCellValue(sheetName, "A1", "v2"))
	second := s.Value(1, 1)
	require.Equal(t, first, second, "cached value must not reflect a later sheet mutation")
}

func TestExcelizeSheet_Edges(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheetName := f.GetSheetName(0)

	styleID, err := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheetName, "B2", "B2", styleID))
	require.NoError(t, f.SetCellValue(sheetName, "B2", "x"))

	s, err := NewExcelizeSheet(f, sheetName)
	require.NoError(t, err)

	e := s.Edges(2, 2)
	require.True(t, e.Top)
	require.True(t, e.Bottom)
	require.False(t, e.Left)
	require.False(t, e.Right)

	require.Equal(t, layout.Edges{}, s.Edges(5, 5), "an unstyled cell carries no edges")
}

func TestExcelizeSheet_MergedRanges(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheetName := f.GetSheetName(0)

	require.NoError(t, f.SetCellValue(sheetName, "A1", "Group"))
	require.NoError(t, f.MergeCell(sheetName, "A1", "C1"))

	s, err := NewExcelizeSheet(f, sheetName)
	require.NoError(t, err)

	ranges := s.MergedRanges()
	require.Len(t, ranges, 1)
	require.Equal(t, layout.MergedRange{MinRow: 1, MinCol: 1, MaxRow: 1, MaxCol: 3}, ranges[0])
}
