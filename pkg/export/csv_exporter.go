package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders a document as section/field/value rows.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the document.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("csv requires a document title")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"section", "field", "value"}); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, field := range doc.Meta {
		if err := writer.Write([]string{"meta", field.Label, field.Value}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	for _, section := range doc.Sections {
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
