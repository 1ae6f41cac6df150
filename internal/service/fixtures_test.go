package service

import (
	"time"

	"github.com/noah-isme/fvu-intake/internal/models"
)

var fixtureNow = time.Date(2024, 3, 10, 18, 45, 0, 0, testZone)

func validLocation() models.Location {
	return models.Location{Values: map[models.LocationField]string{
		models.LocBusinessName:    "Corner Mart",
		models.LocAddress:         "10 Main St",
		models.LocCity:            "Brampton",
		models.LocVideoStart:      "2024-03-09T10:00",
		models.LocVideoEnd:        "2024-03-09T11:05",
		models.LocTimeCorrect:     models.YesOption,
		models.LocDVREarliestDate: "2024-03-07",
	}}
}

func investigatorValues() map[models.Field]string {
	return map[models.Field]string{
		models.FieldRequestingName:  "Jane Doe",
		models.FieldBadge:           "1234",
		models.FieldRequestingPhone: "905-555-0100",
		models.FieldRequestingEmail: "jane.doe@peelpolice.ca",
		models.FieldOccurrenceNum:   "PR240001",
		models.FieldOffenceType:     "Robbery",
	}
}

func validUpload(locations ...models.Location) models.FieldSet {
	values := investigatorValues()
	values[models.FieldMediaType] = "USB"
	values[models.FieldLockerNumber] = "12"
	if len(locations) == 0 {
		locations = []models.Location{validLocation()}
	}
	return models.NewFieldSet(models.FormTypeUpload, values, locations)
}

func validRecovery() models.FieldSet {
	values := investigatorValues()
	values[models.FieldExtractionDetails] = "Export cameras 1-4 from 10:00 to 11:05"
	values[models.FieldContactName] = "Sam Owner"
	values[models.FieldContactPhone] = "(905) 555-0199"
	return models.NewFieldSet(models.FormTypeRecovery, values, []models.Location{validLocation()})
}

func validAnalysis() models.FieldSet {
	values := investigatorValues()
	values[models.FieldServiceRequired] = "Video Enhancement"
	values[models.FieldVideoLocation] = "Evidence Locker"
	values[models.FieldFileNames] = "cam1.mp4, cam2.mp4"
	values[models.FieldRequestDetails] = "Enhance the plate on cam1 at 10:32"
	return models.NewFieldSet(models.FormTypeAnalysis, values, nil)
}

func withLocation(loc models.Location, f models.LocationField, value string) models.Location {
	cp := models.Location{Values: make(map[models.LocationField]string, len(loc.Values)+1)}
	for k, v := range loc.Values {
		cp.Values[k] = v
	}
	cp.Values[f] = value
	return cp
}
