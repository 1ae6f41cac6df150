package models

import (
	"fmt"
	"strings"
)

// FormType enumerates the supported request variants.
type FormType string

const (
	FormTypeUpload   FormType = "upload"
	FormTypeAnalysis FormType = "analysis"
	FormTypeRecovery FormType = "recovery"
)

// ParseFormType resolves a path or payload value into a FormType.
func ParseFormType(raw string) (FormType, error) {
	switch FormType(strings.ToLower(strings.TrimSpace(raw))) {
	case FormTypeUpload:
		return FormTypeUpload, nil
	case FormTypeAnalysis:
		return FormTypeAnalysis, nil
	case FormTypeRecovery:
		return FormTypeRecovery, nil
	default:
		return "", fmt.Errorf("unknown form type %q", raw)
	}
}

// Title returns the human readable request name.
func (t FormType) Title() string {
	switch t {
	case FormTypeUpload:
		return "Video Upload Request"
	case FormTypeAnalysis:
		return "Video Analysis Request"
	case FormTypeRecovery:
		return "Video Recovery Request"
	default:
		return "Request"
	}
}

// Placeholder values emitted by the UI for untouched inputs and selects.
const (
	PlaceholderValue  = "__placeholder__"
	PlaceholderSelect = "Select..."
)

// Selector sentinels.
const (
	OtherOption = "Other"
	YesOption   = "Yes"
	NoOption    = "No"
)

// Field is a top-level form field name.
type Field string

const (
	FieldRequestingName  Field = "rName"
	FieldBadge           Field = "badge"
	FieldRequestingPhone Field = "requestingPhone"
	FieldRequestingEmail Field = "requestingEmail"
	FieldOccurrenceNum   Field = "occNumber"
	FieldOffenceType     Field = "offenceType"
	FieldOffenceOther    Field = "offenceTypeOther"
	FieldOtherInfo       Field = "otherInfo"

	FieldMediaType         Field = "mediaType"
	FieldMediaTypeOther    Field = "mediaTypeOther"
	FieldLockerNumber      Field = "lockerNumber"
	FieldEvidenceSubmitted Field = "evidenceSubmitted"

	FieldServiceRequired      Field = "serviceRequired"
	FieldServiceRequiredOther Field = "serviceRequiredOther"
	FieldVideoLocation        Field = "videoLocation"
	FieldVideoLocationOther   Field = "videoLocationOther"
	FieldFileNames            Field = "fileNames"
	FieldRequestDetails       Field = "requestDetails"

	FieldDVRMake           Field = "dvrMake"
	FieldContactName       Field = "contactName"
	FieldContactPhone      Field = "contactPhone"
	FieldCameraDetails     Field = "cameraDetails"
	FieldExtractionDetails Field = "extractionDetails"
)

// LocationField is a field inside a repeatable location group.
type LocationField string

const (
	LocBusinessName    LocationField = "businessName"
	LocAddress         LocationField = "locationAddress"
	LocCity            LocationField = "city"
	LocCityOther       LocationField = "cityOther"
	LocVideoStart      LocationField = "videoStartTime"
	LocVideoEnd        LocationField = "videoEndTime"
	LocTimeCorrect     LocationField = "timeCorrect"
	LocTimeOffset      LocationField = "timeOffset"
	LocDVREarliestDate LocationField = "dvrEarliestDate"
)

// LocationFields lists group fields in display order.
var LocationFields = []LocationField{
	LocBusinessName,
	LocAddress,
	LocCity,
	LocCityOther,
	LocVideoStart,
	LocVideoEnd,
	LocTimeCorrect,
	LocTimeOffset,
	LocDVREarliestDate,
}

// LocationKey builds the error/lookup key for a field inside location index i.
func LocationKey(i int, f LocationField) string {
	return fmt.Sprintf("locations[%d].%s", i, f)
}

// IsEmpty reports whether a captured value counts as unfilled.
func IsEmpty(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || v == PlaceholderValue || v == PlaceholderSelect
}

// Location is one repeatable site/video group.
type Location struct {
	Values map[LocationField]string `json:"values"`
}

// Get returns the trimmed value of a location field, "" when empty.
func (l Location) Get(f LocationField) string {
	v := l.Values[f]
	if IsEmpty(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// FieldSet is an immutable snapshot of one captured form.
type FieldSet struct {
	Type      FormType
	values    map[Field]string
	locations []Location
}

// NewFieldSet copies the provided values into a snapshot.
func NewFieldSet(formType FormType, values map[Field]string, locations []Location) FieldSet {
	fs := FieldSet{
		Type:      formType,
		values:    make(map[Field]string, len(values)),
		locations: make([]Location, 0, len(locations)),
	}
	for k, v := range values {
		fs.values[k] = v
	}
	for _, loc := range locations {
		cp := Location{Values: make(map[LocationField]string, len(loc.Values))}
		for k, v := range loc.Values {
			cp.Values[k] = v
		}
		fs.locations = append(fs.locations, cp)
	}
	return fs
}

// Get returns the trimmed value of a field, "" when empty or placeholder.
func (fs FieldSet) Get(f Field) string {
	v := fs.values[f]
	if IsEmpty(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// Raw returns the value exactly as captured.
func (fs FieldSet) Raw(f Field) string {
	return fs.values[f]
}

// Locations returns a copy of the repeatable groups.
func (fs FieldSet) Locations() []Location {
	out := make([]Location, len(fs.locations))
	copy(out, fs.locations)
	return out
}

// Values returns a copy of the top-level values.
func (fs FieldSet) Values() map[Field]string {
	out := make(map[Field]string, len(fs.values))
	for k, v := range fs.values {
		out[k] = v
	}
	return out
}

// With returns a new snapshot with one field replaced.
func (fs FieldSet) With(f Field, value string) FieldSet {
	values := fs.Values()
	values[f] = value
	return NewFieldSet(fs.Type, values, fs.locations)
}
