package parser

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	horizontalWS = regexp.MustCompile(`[ \t]+`)
	blankLines   = regexp.MustCompile(`\n\s*\n`)

	stripTags = bluemonday.StrictPolicy()
)

// NormalizeBody cleans a message body: CRLF/CR become LF, runs of spaces and
// tabs collapse to one space, runs of blank lines collapse to exactly one
// blank line, and the result is trimmed. Idempotent.
func NormalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	body = horizontalWS.ReplaceAllString(body, " ")
	body = blankLines.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

// SplitThread splits a normalized body on every occurrence of the literal
// quoted-reply delimiter, trimming segments and discarding empty ones. The
// second return reports whether the delimiter occurred at all; when it did
// not, the body is returned unchanged as the single segment.
//
// Segments share the parent message's metadata; there is no per-segment
// header recovery.
func SplitThread(body, delimiter string) ([]string, bool) {
	if delimiter == "" || !strings.Contains(body, delimiter) {
		return []string{body}, false
	}

	parts := strings.Split(body, delimiter)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments, true
}

// htmlToText strips markup from an HTML body so it can be normalized like a
// plain-text one.
func htmlToText(markup string) string {
	return html.UnescapeString(stripTags.Sanitize(markup))
}
