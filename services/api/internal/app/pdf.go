package app

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// pdfPageCount verifies the payload parses as a PDF and returns its page
// count. Publishing rejects bytes that are not a readable PDF.
func pdfPageCount(data []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	pages := reader.NumPage()
	if pages <= 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return pages, nil
}
