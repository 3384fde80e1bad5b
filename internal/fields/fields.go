// Package fields parses the free-form answer text returned by the analysis
// service into a normalized field map. Two layouts are recognized, tried in
// priority order with first-match-wins: an inline numbered layout
// ("1. Label: value 2. Label: value") and a plain line layout
// ("Label: value" per line). Input with neither layout yields an empty map;
// parsing never fails.
package fields

import (
	"regexp"
	"strings"
)

// FieldSet maps normalized field names (lowercase, spaces replaced with
// underscores) to trimmed values, and retains the raw source text.
type FieldSet struct {
	Raw    string            `json:"raw"`
	Fields map[string]string `json:"fields"`
}

// Unit anchors for the two layouts. A value runs from its label's colon to
// the start of the next full anchor or end of text. A bare colon or
// digit-period inside a value does not terminate it, but text shaped like a
// full anchor does. That boundary rule is deterministic and is applied
// without semantic disambiguation, so a value containing "2. Note:" will
// mis-split; callers must tolerate occasional field mis-splitting.
var (
	numberedAnchor = regexp.MustCompile(`(?s)\d+\.\s*([\w\s]+?)\s*:`)
	plainAnchor    = regexp.MustCompile(`(?m)^[ \t]*([\w][\w \t]*?)[ \t]*:`)
)

// layouts are tried in order; the first that yields any field wins, even if
// individual labels look malformed. Partial results from different layouts
// are never merged.
var layouts = []func(string) map[string]string{
	parseNumbered,
	parsePlain,
}

// Parse extracts structured fields from an analysis answer
func Parse(answer string) FieldSet {
	fs := FieldSet{Raw: answer, Fields: map[string]string{}}
	for _, layout := range layouts {
		if parsed := layout(answer); len(parsed) > 0 {
			fs.Fields = parsed
			break
		}
	}
	return fs
}

func parseNumbered(answer string) map[string]string {
	return parseAnchored(answer, numberedAnchor)
}

func parsePlain(answer string) map[string]string {
	return parseAnchored(answer, plainAnchor)
}

// parseAnchored segments the text at every anchor match; each field's value
// is the text between its anchor and the next one.
func parseAnchored(answer string, anchor *regexp.Regexp) map[string]string {
	matches := anchor.FindAllStringSubmatchIndex(answer, -1)
	if len(matches) == 0 {
		return nil
	}

	parsed := make(map[string]string, len(matches))
	for i, m := range matches {
		label := answer[m[2]:m[3]]
		end := len(answer)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		value := answer[m[1]:end]
		parsed[normalizeLabel(label)] = strings.TrimSpace(value)
	}
	return parsed
}

// normalizeLabel trims, lowercases and replaces spaces with underscores
func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.ReplaceAll(label, " ", "_")
}
