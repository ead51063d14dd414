package mcperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize_KnownCodeUsesCatalogMessage(t *testing.T) {
	got := normalize(Validation, "")
	require.Contains(t, got, "VALIDATION: invalid inputs")
	require.Contains(t, got, "nextSteps:")
}

func TestNormalize_MessageOverrideWins(t *testing.T) {
	got := normalize(Validation, "path is required")
	require.Contains(t, got, "VALIDATION: path is required")
}

func TestNormalize_UnknownCodeHasNoGuidance(t *testing.T) {
	got := normalize(Code("NOT_A_REAL_CODE"), "boom")
	require.Equal(t, "NOT_A_REAL_CODE: boom", got)
}

func TestIsInvalidSheet(t *testing.T) {
	require.False(t, IsInvalidSheet(nil))
	require.False(t, IsInvalidSheet(errors.New("some other failure")))
	require.True(t, IsInvalidSheet(errors.New(`sheet "Sheet9" doesn't exist`)))
	require.True(t, IsInvalidSheet(errors.New(`sheet "Sheet9" does not exist`)))
}

func TestNew_ReturnsAnErrorResult(t *testing.T) {
	res := New(InvalidHandle, "")
	require.NotNil(t, res)
	require.True(t, res.IsError)
}

func TestFromText_ParsesCodeAndMessage(t *testing.T) {
	res := FromText("CURSOR_INVALID: cursor is stale")
	require.NotNil(t, res)
	require.True(t, res.IsError)
}

func TestFromText_EmptyFallsBackToValidation(t *testing.T) {
	res := FromText("")
	require.NotNil(t, res)
	require.True(t, res.IsError)
}

func TestWrapf_FormatsDetails(t *testing.T) {
	res := Wrapf(ExtractionFailed, "table_index %d out of range; %d tables detected", 3, 1)
	require.NotNil(t, res)
	require.True(t, res.IsError)
}
