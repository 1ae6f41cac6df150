package models

// SectionKind distinguishes how a report section is rendered.
type SectionKind string

const (
	SectionTable  SectionKind = "table"
	SectionText   SectionKind = "text"
	SectionBanner SectionKind = "banner"
)

// LabeledField is one row of a table section.
type LabeledField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ReportSection is one titled block of the rendered report.
type ReportSection struct {
	Title  string         `json:"title"`
	Kind   SectionKind    `json:"kind"`
	Fields []LabeledField `json:"fields,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// Report is the renderer-facing content model.
type Report struct {
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle"`
	Sections []ReportSection `json:"sections"`
}

// RecordMetadata heads the canonical JSON record.
type RecordMetadata struct {
	FormType      FormType `json:"formType"`
	SchemaVersion string   `json:"schemaVersion"`
	GeneratedAt   string   `json:"generatedAt"`
}

// LocationCalculations carries derived values for one location.
type LocationCalculations struct {
	Index         int            `json:"index"`
	Duration      DurationInfo   `json:"duration"`
	Retention     *RetentionInfo `json:"retention"`
	Offset        *OffsetInfo    `json:"offset"`
	AdjustedStart *string        `json:"adjustedStart"`
	AdjustedEnd   *string        `json:"adjustedEnd"`
}

// RecordCalculations holds every derived value embedded in the record.
type RecordCalculations struct {
	Locations     []LocationCalculations `json:"locations"`
	UrgentFlags   []string               `json:"urgentFlags"`
	CompletionPct int                    `json:"completionPercent"`
}

// JSONRecord is the machine-readable counterpart of the report.
type JSONRecord struct {
	Metadata     RecordMetadata     `json:"metadata"`
	FormData     map[string]any     `json:"formData"`
	Calculations RecordCalculations `json:"calculations"`
}

// DocumentModel pairs the report and the record built from one derivation.
type DocumentModel struct {
	Report Report
	Record JSONRecord
}
