package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/pkg/record"
)

const notProvided = "N/A"

// DocumentConfig tunes the document builder.
type DocumentConfig struct {
	SchemaVersion string
}

// DocumentService turns a captured field set into the report and the JSON
// record. Both are produced from one derivation so they never disagree.
type DocumentService struct {
	calc       *CalculationService
	validation *ValidationService
	cfg        DocumentConfig
	logger     *zap.Logger
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(calc *CalculationService, validation *ValidationService, cfg DocumentConfig, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = "1.0"
	}
	return &DocumentService{calc: calc, validation: validation, cfg: cfg, logger: logger}
}

type sectionLayout struct {
	title  string
	kind   models.SectionKind
	fields []models.Field
}

var (
	investigatorLayout = sectionLayout{title: "Investigator", kind: models.SectionTable, fields: []models.Field{
		models.FieldRequestingName, models.FieldBadge, models.FieldRequestingPhone, models.FieldRequestingEmail,
	}}
	caseLayout = sectionLayout{title: "Case Details", kind: models.SectionTable, fields: []models.Field{
		models.FieldOccurrenceNum, models.FieldOffenceType,
	}}
	additionalInfoLayout = sectionLayout{title: "Additional Information", kind: models.SectionText, fields: []models.Field{models.FieldOtherInfo}}
)

// headLayouts precede the location sections, tailLayouts follow them.
var headLayouts = map[models.FormType][]sectionLayout{
	models.FormTypeUpload: {investigatorLayout, caseLayout, {title: "Evidence", kind: models.SectionTable, fields: []models.Field{
		models.FieldMediaType, models.FieldLockerNumber, models.FieldEvidenceSubmitted,
	}}},
	models.FormTypeAnalysis: {investigatorLayout, caseLayout, {title: "Service", kind: models.SectionTable, fields: []models.Field{
		models.FieldServiceRequired, models.FieldVideoLocation, models.FieldLockerNumber, models.FieldFileNames,
	}}},
	models.FormTypeRecovery: {investigatorLayout, caseLayout, {title: "Site Contact", kind: models.SectionTable, fields: []models.Field{
		models.FieldDVRMake, models.FieldContactName, models.FieldContactPhone,
	}}},
}

var tailLayouts = map[models.FormType][]sectionLayout{
	models.FormTypeUpload: {additionalInfoLayout},
	models.FormTypeAnalysis: {
		{title: "Request Details", kind: models.SectionText, fields: []models.Field{models.FieldRequestDetails}},
		additionalInfoLayout,
	},
	models.FormTypeRecovery: {
		{title: "Camera Details", kind: models.SectionText, fields: []models.Field{models.FieldCameraDetails}},
		{title: "Extraction Details", kind: models.SectionText, fields: []models.Field{models.FieldExtractionDetails}},
		additionalInfoLayout,
	},
}

type locationFacts struct {
	calc  models.LocationCalculations
	start *time.Time
	end   *time.Time
}

type derivation struct {
	generatedAt time.Time
	locations   []locationFacts
	urgentFlags []string
	completion  int
}

func (s *DocumentService) derive(fs models.FieldSet) derivation {
	d := derivation{generatedAt: s.calc.Now(), urgentFlags: []string{}}
	locations := fs.Locations()
	policy := s.calc.RetentionPolicyFor(fs.Type)

	for i, loc := range locations {
		facts := locationFacts{calc: models.LocationCalculations{Index: i}}
		title := locationTitle(i, len(locations))

		if t, err := s.calc.ParseTimestamp(loc.Get(models.LocVideoStart)); err == nil {
			facts.start = &t
		}
		if t, err := s.calc.ParseTimestamp(loc.Get(models.LocVideoEnd)); err == nil {
			facts.end = &t
		}
		if facts.start != nil && facts.end != nil {
			facts.calc.Duration = s.calc.VideoDuration(*facts.start, *facts.end)
		} else {
			facts.calc.Duration = models.DurationInfo{Text: "Invalid duration: start and end times are required"}
		}

		if raw := loc.Get(models.LocDVREarliestDate); raw != "" {
			if earliest, err := s.calc.ParseDate(raw); err == nil {
				info := s.calc.RetentionInfo(earliest, policy)
				facts.calc.Retention = &info
				if info.IsUrgent {
					d.urgentFlags = append(d.urgentFlags, fmt.Sprintf("%s: %s", title, info.Message))
				}
			}
		}

		if strings.EqualFold(loc.Get(models.LocTimeCorrect), models.NoOption) {
			if raw := loc.Get(models.LocTimeOffset); raw != "" {
				offset := ParseTimeOffset(raw)
				facts.calc.Offset = &offset
				if offset.HasUnits {
					facts.calc.AdjustedStart = adjustedText(facts.start, offset)
					facts.calc.AdjustedEnd = adjustedText(facts.end, offset)
				}
				if s.calc.OffsetIsSignificant(offset) {
					d.urgentFlags = append(d.urgentFlags, fmt.Sprintf("%s: %s", title, offset.Formatted))
				}
			}
		}
		d.locations = append(d.locations, facts)
	}

	if s.validation != nil {
		d.completion = s.validation.CompletionPercent(fs)
	}
	return d
}

func adjustedText(t *time.Time, offset models.OffsetInfo) *string {
	if t == nil {
		return nil
	}
	text := FormatTimestamp(AdjustedTime(*t, offset))
	return &text
}

func locationTitle(i, total int) string {
	if total <= 1 {
		return "Location"
	}
	return fmt.Sprintf("Location %d", i+1)
}

// Build derives the document model for a validated field set.
func (s *DocumentService) Build(fs models.FieldSet) (models.DocumentModel, error) {
	schema, ok := models.SchemaFor(fs.Type)
	if !ok {
		return models.DocumentModel{}, fmt.Errorf("unknown form type %q", fs.Type)
	}
	d := s.derive(fs)
	return models.DocumentModel{
		Report: s.buildReport(schema, fs, d),
		Record: s.buildRecord(schema, fs, d),
	}, nil
}

func (s *DocumentService) buildReport(schema models.FormSchema, fs models.FieldSet, d derivation) models.Report {
	report := models.Report{
		Title:    fs.Type.Title(),
		Subtitle: subtitle(fs, d.generatedAt),
		Sections: make([]models.ReportSection, 0),
	}
	if len(d.urgentFlags) > 0 {
		report.Sections = append(report.Sections, models.ReportSection{
			Title: "Urgent Notice",
			Kind:  models.SectionBanner,
			Text:  strings.Join(d.urgentFlags, "\n"),
		})
	}
	for _, layout := range headLayouts[fs.Type] {
		if section, ok := layoutSection(schema, fs, layout); ok {
			report.Sections = append(report.Sections, section)
		}
	}
	locations := fs.Locations()
	for i, loc := range locations {
		report.Sections = append(report.Sections, s.locationSection(schema, loc, d.locations[i], locationTitle(i, len(locations))))
	}
	for _, layout := range tailLayouts[fs.Type] {
		if section, ok := layoutSection(schema, fs, layout); ok {
			report.Sections = append(report.Sections, section)
		}
	}
	return report
}

func subtitle(fs models.FieldSet, generatedAt time.Time) string {
	parts := make([]string, 0, 2)
	if occ := fs.Get(models.FieldOccurrenceNum); occ != "" {
		parts = append(parts, "Occurrence "+strings.ToUpper(occ))
	}
	parts = append(parts, "Generated "+FormatTimestamp(generatedAt))
	return strings.Join(parts, " | ")
}

// displayValue resolves "Other" selectors to their companion text.
func displayValue(fs models.FieldSet, f models.Field) string {
	value := fs.Get(f)
	for _, rule := range FormConditionalRules {
		if rule.Selector == f && strings.EqualFold(value, rule.Sentinel) {
			if companion := fs.Get(rule.Dependent); companion != "" {
				return fmt.Sprintf("%s: %s", value, companion)
			}
		}
	}
	return value
}

func layoutSection(schema models.FormSchema, fs models.FieldSet, layout sectionLayout) (models.ReportSection, bool) {
	section := models.ReportSection{Title: layout.title, Kind: layout.kind}
	if layout.kind == models.SectionText {
		texts := make([]string, 0, len(layout.fields))
		for _, f := range layout.fields {
			if v := fs.Get(f); v != "" {
				texts = append(texts, v)
			}
		}
		section.Text = strings.Join(texts, "\n\n")
		return section, section.Text != ""
	}

	filled := false
	for _, f := range layout.fields {
		if _, ok := schema.Spec(f); !ok {
			continue
		}
		value := displayValue(fs, f)
		if value == "" {
			value = notProvided
		} else {
			filled = true
		}
		section.Fields = append(section.Fields, models.LabeledField{Label: schema.Label(f), Value: value})
	}
	return section, filled
}

func (s *DocumentService) locationSection(schema models.FormSchema, loc models.Location, facts locationFacts, title string) models.ReportSection {
	row := func(label, value string) models.LabeledField {
		if value == "" {
			value = notProvided
		}
		return models.LabeledField{Label: label, Value: value}
	}
	city := loc.Get(models.LocCity)
	if strings.EqualFold(city, models.OtherOption) && loc.Get(models.LocCityOther) != "" {
		city = loc.Get(models.LocCityOther)
	}

	fields := []models.LabeledField{
		row(schema.LocationLabel(models.LocBusinessName), loc.Get(models.LocBusinessName)),
		row(schema.LocationLabel(models.LocAddress), loc.Get(models.LocAddress)),
		row(schema.LocationLabel(models.LocCity), city),
		row(schema.LocationLabel(models.LocVideoStart), formatOptional(facts.start)),
		row(schema.LocationLabel(models.LocVideoEnd), formatOptional(facts.end)),
		row("Duration", facts.calc.Duration.Text),
		row(schema.LocationLabel(models.LocTimeCorrect), loc.Get(models.LocTimeCorrect)),
	}
	if facts.calc.Offset != nil {
		fields = append(fields, row(schema.LocationLabel(models.LocTimeOffset), facts.calc.Offset.Formatted))
		if facts.calc.AdjustedStart != nil {
			fields = append(fields, row("Adjusted Start (real time)", *facts.calc.AdjustedStart))
		}
		if facts.calc.AdjustedEnd != nil {
			fields = append(fields, row("Adjusted End (real time)", *facts.calc.AdjustedEnd))
		}
	}
	fields = append(fields, row(schema.LocationLabel(models.LocDVREarliestDate), loc.Get(models.LocDVREarliestDate)))
	if facts.calc.Retention != nil {
		fields = append(fields, row("Retention", facts.calc.Retention.Message))
	}
	return models.ReportSection{Title: title, Kind: models.SectionTable, Fields: fields}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTimestamp(*t)
}

func nullable(value string) any {
	if models.IsEmpty(value) {
		return nil
	}
	return strings.TrimSpace(value)
}

func (s *DocumentService) buildRecord(schema models.FormSchema, fs models.FieldSet, d derivation) models.JSONRecord {
	formData := make(map[string]any, len(schema.Fields)+1)
	for _, spec := range schema.Fields {
		formData[string(spec.Field)] = nullable(fs.Raw(spec.Field))
	}
	if schema.HasLocations() {
		locations := make([]map[string]any, 0)
		for _, loc := range fs.Locations() {
			m := make(map[string]any, len(schema.LocationFields))
			for _, spec := range schema.LocationFields {
				m[string(spec.Field)] = nullable(loc.Values[spec.Field])
			}
			locations = append(locations, m)
		}
		formData["locations"] = locations
	}

	calcs := make([]models.LocationCalculations, 0, len(d.locations))
	for _, facts := range d.locations {
		calcs = append(calcs, facts.calc)
	}
	return models.JSONRecord{
		Metadata: models.RecordMetadata{
			FormType:      fs.Type,
			SchemaVersion: s.cfg.SchemaVersion,
			GeneratedAt:   d.generatedAt.Format(time.RFC3339),
		},
		FormData: formData,
		Calculations: models.RecordCalculations{
			Locations:     calcs,
			UrgentFlags:   d.urgentFlags,
			CompletionPct: d.completion,
		},
	}
}

// EncodeRecord serialises a record canonically, checks it against the record
// schema and returns the bytes with their sha256 digest.
func (s *DocumentService) EncodeRecord(rec models.JSONRecord) ([]byte, string, error) {
	data, err := record.Encode(rec)
	if err != nil {
		return nil, "", err
	}
	if err := record.Validate(data); err != nil {
		s.logger.Error("record failed schema validation", zap.String("form_type", string(rec.Metadata.FormType)), zap.Error(err))
		return nil, "", err
	}
	digest, err := record.Digest(data)
	if err != nil {
		return nil, "", err
	}
	return data, digest, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// AttachmentBaseName names the artifacts of a request, for example
// "upload_PR240001_20240310".
func AttachmentBaseName(fs models.FieldSet, at time.Time) string {
	occ := unsafeFilenameChars.ReplaceAllString(strings.ToUpper(fs.Get(models.FieldOccurrenceNum)), "")
	if occ == "" {
		occ = "NOOCC"
	}
	return fmt.Sprintf("%s_%s_%s", fs.Type, occ, at.Format("20060102"))
}
