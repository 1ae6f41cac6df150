package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/fvu-intake/internal/models"
)

const (
	pageWidth    = 190.0
	labelWidth   = 60.0
	lineHeight   = 6.0
	bottomMargin = 20.0
)

// PDFRenderer lays a report out on A4 pages.
type PDFRenderer struct {
	footer string
}

// NewPDFRenderer constructs a renderer. footer is printed left of the page number.
func NewPDFRenderer(footer string) *PDFRenderer {
	return &PDFRenderer{footer: footer}
}

// Render produces the PDF bytes for report. ctx is checked between sections so
// a render deadline stops long documents early.
func (r *PDFRenderer) Render(ctx context.Context, report models.Report) ([]byte, error) {
	if strings.TrimSpace(report.Title) == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(pageWidth/2, 10, tr(r.footer), "", 0, "L", false, 0, "")
		pdf.CellFormat(pageWidth/2, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(strings.ToUpper(report.Title)), "", 1, "C", false, 0, "")
	if report.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(report.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, section := range report.Sections {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		switch section.Kind {
		case models.SectionBanner:
			renderBanner(pdf, tr, section)
		case models.SectionText:
			renderText(pdf, tr, section)
		default:
			renderTable(pdf, tr, section)
		}
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionHeading(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(225, 230, 240)
	pdf.CellFormat(pageWidth, 8, tr(title), "1", 1, "L", true, 0, "")
}

func renderBanner(pdf *gofpdf.Fpdf, tr func(string) string, section models.ReportSection) {
	pdf.SetFillColor(190, 30, 45)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(pageWidth, 8, tr(section.Title), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.MultiCell(pageWidth, lineHeight, tr(section.Text), "1", "L", true)
	pdf.SetTextColor(0, 0, 0)
}

func renderText(pdf *gofpdf.Fpdf, tr func(string) string, section models.ReportSection) {
	sectionHeading(pdf, tr, section.Title)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(pageWidth, lineHeight, tr(section.Text), "1", "L", false)
}

func renderTable(pdf *gofpdf.Fpdf, tr func(string) string, section models.ReportSection) {
	sectionHeading(pdf, tr, section.Title)
	_, pageHeight := pdf.GetPageSize()
	valueWidth := pageWidth - labelWidth

	for _, field := range section.Fields {
		value := tr(field.Value)
		pdf.SetFont("Arial", "", 10)
		lines := pdf.SplitLines([]byte(value), valueWidth-2)
		height := float64(len(lines)) * lineHeight
		if height < lineHeight {
			height = lineHeight
		}

		x, y := pdf.GetXY()
		if y+height > pageHeight-bottomMargin {
			pdf.AddPage()
			x, y = pdf.GetXY()
		}

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		pdf.Rect(x, y, labelWidth, height, "FD")
		pdf.SetXY(x, y)
		pdf.CellFormat(labelWidth, lineHeight, tr(field.Label), "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		pdf.Rect(x+labelWidth, y, valueWidth, height, "D")
		pdf.SetXY(x+labelWidth, y)
		pdf.MultiCell(valueWidth, lineHeight, value, "", "L", false)
		pdf.SetXY(x, y+height)
	}
}
