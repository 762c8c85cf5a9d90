package documents

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// pageCount returns the number of pages of a PDF, or 0 for anything else.
// Malformed PDFs are not an upload error.
func pageCount(mimeType string, data []byte) (n int) {
	if !strings.HasPrefix(mimeType, mimePDF) || len(data) == 0 {
		return 0
	}
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
