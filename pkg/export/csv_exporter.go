package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/noah-isme/fvu-intake/internal/models"
)

var csvHeaders = []string{"section", "label", "value"}

// CSVExporter flattens a report into section/label/value rows.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the report. Text and banner sections
// become a single row with an empty label.
func (e *CSVExporter) Render(report models.Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, section := range report.Sections {
		if section.Kind != models.SectionTable {
			if err := writer.Write([]string{section.Title, "", section.Text}); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
			continue
		}
		for _, field := range section.Fields {
			if err := writer.Write([]string{section.Title, field.Label, field.Value}); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
