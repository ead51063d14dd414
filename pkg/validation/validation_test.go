package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/long1234hcc/ctc-east-extract/pkg/pagination"
)

type pathInput struct {
	Path string `validate:"required,xlsxpath"`
}

type thresholdInput struct {
	BorderThreshold float64 `validate:"omitempty,threshold01"`
}

type cursorInput struct {
	Cursor string `validate:"omitempty,cursor"`
}

func TestXlsxPath_AcceptsSupportedExtensions(t *testing.T) {
	for _, ext := range []string{".xlsx", ".XLSX", ".xlsm", ".xltx", ".xltm"} {
		err := Validator().Struct(pathInput{Path: "/tmp/book" + ext})
		require.NoError(t, err, "extension %s should pass", ext)
	}
}

func TestXlsxPath_RejectsUnsupportedExtensions(t *testing.T) {
	require.Error(t, Validator().Struct(pathInput{Path: "/tmp/book.csv"}))
	require.Error(t, Validator().Struct(pathInput{Path: ""}))
}

func TestThreshold01_AcceptsInRangeValues(t *testing.T) {
	require.NoError(t, Validator().Struct(thresholdInput{BorderThreshold: 0}))
	require.NoError(t, Validator().Struct(thresholdInput{BorderThreshold: 0.95}))
	require.NoError(t, Validator().Struct(thresholdInput{BorderThreshold: 1}))
}

func TestThreshold01_RejectsOutOfRangeValues(t *testing.T) {
	require.Error(t, Validator().Struct(thresholdInput{BorderThreshold: 1.5}))
	require.Error(t, Validator().Struct(thresholdInput{BorderThreshold: -0.1}))
}

func TestCursorTag_AcceptsEmptyAndValidCursors(t *testing.T) {
	require.NoError(t, Validator().Struct(cursorInput{Cursor: ""}))

	token, err := pagination.EncodeCursor(pagination.Cursor{V: 1, Wid: "wb1", S: "Sheet1", Tbl: 0, U: pagination.UnitRecords, Off: 10, Ps: 50})
	require.NoError(t, err)
	require.NoError(t, Validator().Struct(cursorInput{Cursor: token}))
}

func TestCursorTag_RejectsGarbage(t *testing.T) {
	require.Error(t, Validator().Struct(cursorInput{Cursor: "not-a-real-cursor!!"}))
}

func TestValidateStruct_ReturnsFriendlyMessages(t *testing.T) {
	require.Equal(t, "", ValidateStruct(pathInput{Path: "/tmp/book.xlsx"}))
	require.Equal(t, "VALIDATION: path must be an Excel file (.xlsx, .xlsm, .xltx, .xltm)", ValidateStruct(pathInput{Path: "/tmp/book.csv"}))
	require.Equal(t, "VALIDATION: border_threshold must be between 0 and 1", ValidateStruct(thresholdInput{BorderThreshold: 2}))
	require.Equal(t, "CURSOR_INVALID: failed to decode cursor; reopen workbook and restart pagination", ValidateStruct(cursorInput{Cursor: "garbage!!"}))
}
