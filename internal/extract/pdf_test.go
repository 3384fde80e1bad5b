package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFText_EmptyPayload(t *testing.T) {
	text, err := PDFText(nil)
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestPDFText_NotAPDF(t *testing.T) {
	text, err := PDFText([]byte("plain text masquerading as a pdf"))
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestPDFText_TruncatedHeader(t *testing.T) {
	// A valid header with a garbage body must not panic
	text, err := PDFText([]byte("%PDF-1.7\nnot really a pdf body"))
	assert.NoError(t, err)
	assert.Empty(t, text)
}
