package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title, table body, and
// a bold summary row when the dataset carries a footer. Signed numeric
// cells are right aligned so point columns read like a statement.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	colWidth := 190.0 / float64(len(data.Headers))

	pdf.SetFont("Arial", "B", 10)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		writeRow(pdf, data.Headers, row, colWidth)
	}

	if len(data.Footer) > 0 {
		pdf.SetFont("Arial", "B", 9)
		writeRow(pdf, data.Headers, data.Footer, colWidth)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(pdf *gofpdf.Fpdf, headers []string, row map[string]string, colWidth float64) {
	for _, header := range headers {
		value := row[header]
		align := ""
		if isSigned(value) {
			align = "R"
		}
		pdf.CellFormat(colWidth, 7, value, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func isSigned(value string) bool {
	if len(value) < 2 {
		return false
	}
	if value[0] != '+' && value[0] != '-' {
		return false
	}
	return value[1] >= '0' && value[1] <= '9'
}
