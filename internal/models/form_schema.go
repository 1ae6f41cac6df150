package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldSpec describes one top-level field of a form variant.
type FieldSpec struct {
	Field    Field
	Label    string
	Required bool
}

// LocationFieldSpec describes one field of a location group.
type LocationFieldSpec struct {
	Field    LocationField
	Label    string
	Required bool
}

// FormSchema enumerates the accepted fields of a variant in display order.
type FormSchema struct {
	Type           FormType
	Fields         []FieldSpec
	LocationFields []LocationFieldSpec
	MinLocations   int
	MaxLocations   int
}

var investigatorFields = []FieldSpec{
	{Field: FieldRequestingName, Label: "Requesting Investigator", Required: true},
	{Field: FieldBadge, Label: "Badge Number", Required: true},
	{Field: FieldRequestingPhone, Label: "Contact Phone", Required: true},
	{Field: FieldRequestingEmail, Label: "Email", Required: true},
	{Field: FieldOccurrenceNum, Label: "Occurrence Number", Required: true},
	{Field: FieldOffenceType, Label: "Offence Type", Required: true},
	{Field: FieldOffenceOther, Label: "Offence Type (Other)"},
}

func locationSpecs(earliestRequired bool) []LocationFieldSpec {
	return []LocationFieldSpec{
		{Field: LocBusinessName, Label: "Business Name"},
		{Field: LocAddress, Label: "Address", Required: true},
		{Field: LocCity, Label: "City", Required: true},
		{Field: LocCityOther, Label: "City (Other)"},
		{Field: LocVideoStart, Label: "Video Start", Required: true},
		{Field: LocVideoEnd, Label: "Video End", Required: true},
		{Field: LocTimeCorrect, Label: "DVR Time Correct", Required: true},
		{Field: LocTimeOffset, Label: "Time Offset"},
		{Field: LocDVREarliestDate, Label: "DVR Earliest Recording", Required: earliestRequired},
	}
}

func concatSpecs(groups ...[]FieldSpec) []FieldSpec {
	out := make([]FieldSpec, 0)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var schemas = map[FormType]FormSchema{
	FormTypeUpload: {
		Type: FormTypeUpload,
		Fields: concatSpecs(investigatorFields, []FieldSpec{
			{Field: FieldMediaType, Label: "Media Type", Required: true},
			{Field: FieldMediaTypeOther, Label: "Media Type (Other)"},
			{Field: FieldLockerNumber, Label: "Locker Number"},
			{Field: FieldEvidenceSubmitted, Label: "Evidence Submitted"},
			{Field: FieldOtherInfo, Label: "Additional Information"},
		}),
		LocationFields: locationSpecs(false),
		MinLocations:   1,
		MaxLocations:   20,
	},
	FormTypeAnalysis: {
		Type: FormTypeAnalysis,
		Fields: concatSpecs(investigatorFields, []FieldSpec{
			{Field: FieldServiceRequired, Label: "Service Required", Required: true},
			{Field: FieldServiceRequiredOther, Label: "Service Required (Other)"},
			{Field: FieldVideoLocation, Label: "Video Seized From", Required: true},
			{Field: FieldVideoLocationOther, Label: "Video Seized From (Other)"},
			{Field: FieldLockerNumber, Label: "Locker Number"},
			{Field: FieldFileNames, Label: "File Names", Required: true},
			{Field: FieldRequestDetails, Label: "Request Details", Required: true},
			{Field: FieldOtherInfo, Label: "Additional Information"},
		}),
	},
	FormTypeRecovery: {
		Type: FormTypeRecovery,
		Fields: concatSpecs(investigatorFields, []FieldSpec{
			{Field: FieldDVRMake, Label: "DVR Make / Model"},
			{Field: FieldContactName, Label: "Site Contact"},
			{Field: FieldContactPhone, Label: "Site Contact Phone"},
			{Field: FieldCameraDetails, Label: "Camera Details"},
			{Field: FieldExtractionDetails, Label: "Extraction Details", Required: true},
			{Field: FieldOtherInfo, Label: "Additional Information"},
		}),
		LocationFields: locationSpecs(true),
		MinLocations:   1,
		MaxLocations:   1,
	},
}

// SchemaFor returns the schema for a form type.
func SchemaFor(t FormType) (FormSchema, bool) {
	s, ok := schemas[t]
	return s, ok
}

// HasLocations reports whether the variant carries location groups.
func (s FormSchema) HasLocations() bool {
	return len(s.LocationFields) > 0
}

// Spec returns the spec of a top-level field.
func (s FormSchema) Spec(f Field) (FieldSpec, bool) {
	for _, spec := range s.Fields {
		if spec.Field == f {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// LocationSpec returns the spec of a location field.
func (s FormSchema) LocationSpec(f LocationField) (LocationFieldSpec, bool) {
	for _, spec := range s.LocationFields {
		if spec.Field == f {
			return spec, true
		}
	}
	return LocationFieldSpec{}, false
}

// Label returns the display label of a field, falling back to its name.
func (s FormSchema) Label(f Field) string {
	if spec, ok := s.Spec(f); ok {
		return spec.Label
	}
	return string(f)
}

// LocationLabel returns the display label of a location field.
func (s FormSchema) LocationLabel(f LocationField) string {
	if spec, ok := s.LocationSpec(f); ok {
		return spec.Label
	}
	return string(f)
}

// UnknownFieldsError lists field names that the variant does not accept.
type UnknownFieldsError struct {
	FormType FormType
	Names    []string
}

func (e *UnknownFieldsError) Error() string {
	return fmt.Sprintf("unknown %s fields: %s", e.FormType, strings.Join(e.Names, ", "))
}

// CaptureFieldSet converts a loosely typed UI payload into a FieldSet.
// Scalars become strings; "locations" must be a list of objects. Names the
// variant does not declare are rejected so typos surface immediately.
func CaptureFieldSet(formType FormType, raw map[string]any) (FieldSet, error) {
	schema, ok := SchemaFor(formType)
	if !ok {
		return FieldSet{}, fmt.Errorf("unknown form type %q", formType)
	}
	values := make(map[Field]string, len(raw))
	var locations []Location
	var unknown []string

	for name, value := range raw {
		if name == "locations" {
			if !schema.HasLocations() {
				unknown = append(unknown, name)
				continue
			}
			locs, bad, err := captureLocations(schema, value)
			if err != nil {
				return FieldSet{}, err
			}
			unknown = append(unknown, bad...)
			locations = locs
			continue
		}
		if _, ok := schema.Spec(Field(name)); !ok {
			unknown = append(unknown, name)
			continue
		}
		str, err := stringify(value)
		if err != nil {
			return FieldSet{}, fmt.Errorf("field %s: %w", name, err)
		}
		values[Field(name)] = str
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return FieldSet{}, &UnknownFieldsError{FormType: formType, Names: unknown}
	}
	return NewFieldSet(formType, values, locations), nil
}

func captureLocations(schema FormSchema, value any) ([]Location, []string, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("locations must be a list")
	}
	locations := make([]Location, 0, len(list))
	var unknown []string
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("locations[%d] must be an object", i)
		}
		loc := Location{Values: make(map[LocationField]string, len(obj))}
		for name, v := range obj {
			if _, ok := schema.LocationSpec(LocationField(name)); !ok {
				unknown = append(unknown, fmt.Sprintf("locations[%d].%s", i, name))
				continue
			}
			str, err := stringify(v)
			if err != nil {
				return nil, nil, fmt.Errorf("locations[%d].%s: %w", i, name, err)
			}
			loc.Values[LocationField(name)] = str
		}
		locations = append(locations, loc)
	}
	return locations, unknown, nil
}

func stringify(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		if v {
			return YesOption, nil
		}
		return NoOption, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}
