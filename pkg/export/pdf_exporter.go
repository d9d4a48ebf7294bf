package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders syllabus documents into a simple sectioned PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF for the document: title, metadata table, then one
// block per section.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf requires a document title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 6, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if len(doc.Meta) > 0 {
		pdf.SetFont("Arial", "", 9)
		for _, field := range doc.Meta {
			pdf.CellFormat(50, 6, field.Label, "1", 0, "", false, 0, "")
			pdf.CellFormat(140, 6, field.Value, "1", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	for _, section := range doc.Sections {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, section.Title, "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, field := range section.Fields {
			if field.Label != "" {
				pdf.SetFont("Arial", "B", 9)
				pdf.CellFormat(0, 5, field.Label, "", 1, "", false, 0, "")
				pdf.SetFont("Arial", "", 9)
			}
			pdf.MultiCell(0, 5, field.Value, "", "", false)
		}
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
