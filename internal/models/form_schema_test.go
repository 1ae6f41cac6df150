package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureFieldSetKeepsNumbersExact(t *testing.T) {
	fs, err := CaptureFieldSet(FormTypeUpload, map[string]any{
		"requestingPhone": float64(9055550100),
		"lockerNumber":    float64(1000000),
		"locations": []any{
			map[string]any{"businessName": float64(7), "locationAddress": "1 Main St"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "9055550100", fs.Raw(FieldRequestingPhone))
	require.Equal(t, "1000000", fs.Raw(FieldLockerNumber))
	require.Equal(t, "7", fs.Locations()[0].Values[LocBusinessName])
}

func TestCaptureFieldSetRejectsUnknownNames(t *testing.T) {
	_, err := CaptureFieldSet(FormTypeAnalysis, map[string]any{"rNmae": "Jane"})
	var unknown *UnknownFieldsError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, []string{"rNmae"}, unknown.Names)
}
