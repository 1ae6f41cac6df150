package service

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fvu-intake/internal/models"
)

func newDocumentForTest() *DocumentService {
	calc := newCalcForTest(fixtureNow)
	validation := NewValidationService(nil, calc, ValidationConfig{}, nil)
	return NewDocumentService(calc, validation, DocumentConfig{SchemaVersion: "1.0"}, nil)
}

func sectionTitles(report models.Report) []string {
	titles := make([]string, 0, len(report.Sections))
	for _, s := range report.Sections {
		titles = append(titles, s.Title)
	}
	return titles
}

func TestBuildOmitsEmptySections(t *testing.T) {
	svc := newDocumentForTest()
	model, err := svc.Build(validUpload())
	require.NoError(t, err)

	want := []string{"Urgent Notice", "Investigator", "Case Details", "Evidence", "Location"}
	if diff := cmp.Diff(want, sectionTitles(model.Report)); diff != "" {
		t.Fatalf("section titles mismatch (-want +got):\n%s", diff)
	}

	withInfo, err := svc.Build(validUpload().With(models.FieldOtherInfo, "Suspect wore a red jacket"))
	require.NoError(t, err)
	titles := sectionTitles(withInfo.Report)
	require.Equal(t, "Additional Information", titles[len(titles)-1])
	last := withInfo.Report.Sections[len(titles)-1]
	require.Equal(t, models.SectionText, last.Kind)
	require.Equal(t, "Suspect wore a red jacket", last.Text)
}

func TestBuildNumbersLocationsOnlyWhenSeveral(t *testing.T) {
	svc := newDocumentForTest()
	model, err := svc.Build(validUpload(validLocation(), validLocation()))
	require.NoError(t, err)

	titles := sectionTitles(model.Report)
	require.Contains(t, titles, "Location 1")
	require.Contains(t, titles, "Location 2")
	require.NotContains(t, titles, "Location")
}

func TestBuildFillsEmptyValuesWithNA(t *testing.T) {
	svc := newDocumentForTest()
	model, err := svc.Build(validUpload())
	require.NoError(t, err)

	var evidence models.ReportSection
	for _, s := range model.Report.Sections {
		if s.Title == "Evidence" {
			evidence = s
		}
	}
	want := []models.LabeledField{
		{Label: "Media Type", Value: "USB"},
		{Label: "Locker Number", Value: "12"},
		{Label: "Evidence Submitted", Value: "N/A"},
	}
	if diff := cmp.Diff(want, evidence.Fields); diff != "" {
		t.Fatalf("evidence rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildResolvesOtherSelections(t *testing.T) {
	svc := newDocumentForTest()
	fs := validUpload().With(models.FieldOffenceType, models.OtherOption).With(models.FieldOffenceOther, "Mischief")
	model, err := svc.Build(fs)
	require.NoError(t, err)

	for _, s := range model.Report.Sections {
		if s.Title == "Case Details" {
			require.Contains(t, s.Fields, models.LabeledField{Label: "Offence Type", Value: "Other: Mischief"})
			return
		}
	}
	t.Fatal("case details section missing")
}

func TestBannersReuseDerivedValues(t *testing.T) {
	svc := newDocumentForTest()
	loc := withLocation(withLocation(validLocation(), models.LocTimeCorrect, models.NoOption), models.LocTimeOffset, "2 hours fast")
	model, err := svc.Build(validUpload(loc))
	require.NoError(t, err)

	calcs := model.Record.Calculations.Locations[0]
	require.NotNil(t, calcs.Retention)
	require.NotNil(t, calcs.Offset)

	banner := model.Report.Sections[0]
	require.Equal(t, models.SectionBanner, banner.Kind)
	require.Contains(t, banner.Text, calcs.Retention.Message)
	require.Contains(t, banner.Text, calcs.Offset.Formatted)
	require.Equal(t, []string{
		"Location: " + calcs.Retention.Message,
		"Location: DVR is 2 hours AHEAD of real time",
	}, model.Record.Calculations.UrgentFlags)

	require.NotNil(t, calcs.AdjustedStart)
	require.Equal(t, "2024-03-09 08:00", *calcs.AdjustedStart)
	require.Equal(t, "2024-03-09 09:05", *calcs.AdjustedEnd)
}

func TestRecordNormalisesEmptiesToNull(t *testing.T) {
	svc := newDocumentForTest()
	model, err := svc.Build(validUpload().With(models.FieldMediaTypeOther, models.PlaceholderValue))
	require.NoError(t, err)

	rec := model.Record
	require.Equal(t, models.FormTypeUpload, rec.Metadata.FormType)
	require.Equal(t, "1.0", rec.Metadata.SchemaVersion)
	require.Equal(t, "2024-03-10T18:45:00-05:00", rec.Metadata.GeneratedAt)
	require.Nil(t, rec.FormData["mediaTypeOther"])
	require.Nil(t, rec.FormData["otherInfo"])
	require.Equal(t, "Jane Doe", rec.FormData["rName"])
	require.Equal(t, 100, rec.Calculations.CompletionPct)

	locations, ok := rec.FormData["locations"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, locations, 1)
	require.Nil(t, locations[0]["cityOther"])
}

func TestEncodeRecordIsCanonicalAndValid(t *testing.T) {
	svc := newDocumentForTest()
	model, err := svc.Build(validRecovery())
	require.NoError(t, err)

	first, digest, err := svc.EncodeRecord(model.Record)
	require.NoError(t, err)
	second, again, err := svc.EncodeRecord(model.Record)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, digest, again)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(first, &decoded))
	require.Contains(t, decoded, "calculations")
}

func TestBuildAnalysisHasNoLocations(t *testing.T) {
	svc := newDocumentForTest()
	model, err := svc.Build(validAnalysis())
	require.NoError(t, err)

	require.Empty(t, model.Record.Calculations.Locations)
	require.NotContains(t, model.Record.FormData, "locations")
	require.Equal(t, []string{"Investigator", "Case Details", "Service", "Request Details"}, sectionTitles(model.Report))
}

func TestAttachmentBaseName(t *testing.T) {
	require.Equal(t, "upload_PR240001_20240310", AttachmentBaseName(validUpload(), fixtureNow))
	require.Equal(t, "analysis_NOOCC_20240310", AttachmentBaseName(validAnalysis().With(models.FieldOccurrenceNum, ""), fixtureNow))
}
