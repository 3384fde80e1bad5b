package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts text from a PDF, page by page. Pages that fail to decode
// are skipped; a document that cannot be opened yields an empty string.
func PDFText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	reader, err := openPDF(data)
	if err != nil || reader == nil {
		return "", nil
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		text := pdfPageText(reader, i)
		if text != "" {
			pages = append(pages, text)
		}
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// openPDF guards pdf.NewReader, which panics on some malformed inputs
func openPDF(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, nil
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pdfPageText extracts one page, containing any decode panic to that page
func pdfPageText(reader *pdf.Reader, num int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(content)
}
