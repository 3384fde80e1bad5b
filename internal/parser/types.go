package parser

import (
	"encoding/json"
	"strings"

	"github.com/kdelaney/msg-analyzer/internal/extract"
)

// Metadata holds the coerced header fields of one container level. Values
// are always strings; a missing header is an empty string, never absent.
type Metadata struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Cc      string `json:"cc"`
	Bcc     string `json:"bcc"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
}

// ExtractedDocument is the extracted text of one attachment. It is owned by
// the ParsedMessage that contains it.
type ExtractedDocument struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Body is either a single normalized string or, when a thread delimiter was
// detected, an ordered sequence of normalized segments. Never both.
type Body struct {
	Text   string
	Thread []string
}

// MarshalJSON renders the thread form as an array and the single form as a
// string, matching the output schema.
func (b Body) MarshalJSON() ([]byte, error) {
	if len(b.Thread) > 0 {
		return json.Marshal(b.Thread)
	}
	return json.Marshal(b.Text)
}

// UnmarshalJSON accepts either form
func (b *Body) UnmarshalJSON(data []byte) error {
	var thread []string
	if err := json.Unmarshal(data, &thread); err == nil {
		b.Thread = thread
		b.Text = ""
		return nil
	}
	b.Thread = nil
	return json.Unmarshal(data, &b.Text)
}

// Flatten returns the body as one string for downstream analysis
func (b Body) Flatten() string {
	if len(b.Thread) > 0 {
		return strings.Join(b.Thread, "\n\n")
	}
	return b.Text
}

// ParsedMessage is one container level of the output tree. It is immutable
// after the walker returns it.
type ParsedMessage struct {
	Metadata          Metadata                             `json:"metadata"`
	Body              Body                                 `json:"body"`
	AttachmentsByKind map[extract.Kind][]ExtractedDocument `json:"attachments_by_kind,omitempty"`
	NestedMessages    []*ParsedMessage                     `json:"nested_messages,omitempty"`
}
