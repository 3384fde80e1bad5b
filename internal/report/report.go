// Package report assembles walker output and analysis results into the
// externally served schema.
package report

import (
	"context"
	"fmt"

	"github.com/kdelaney/msg-analyzer/internal/extract"
	"github.com/kdelaney/msg-analyzer/internal/fields"
	"github.com/kdelaney/msg-analyzer/internal/parser"
)

// Report is the serialized form of one container level, plus the analysis
// of its body.
type Report struct {
	Metadata          parser.Metadata                             `json:"metadata"`
	Body              parser.Body                                 `json:"body"`
	AttachmentsByKind map[extract.Kind][]parser.ExtractedDocument `json:"attachments_by_kind,omitempty"`
	Analysis          *Analysis                                   `json:"analysis,omitempty"`
	NestedMessages    []*Report                                   `json:"nested_messages,omitempty"`
}

// Analysis is the answer for one body and its parsed field map
type Analysis struct {
	Answer string            `json:"answer"`
	Fields map[string]string `json:"fields,omitempty"`
}

// AnalyzeFunc produces the analysis answer for one body text
type AnalyzeFunc func(ctx context.Context, text string) (string, error)

// Build serializes a ParsedMessage tree, invoking analyze on the body of
// every level when analyze is non-nil. An analysis failure is a transport
// error and aborts the build; parse degradations never reach here.
func Build(ctx context.Context, msg *parser.ParsedMessage, analyze AnalyzeFunc) (*Report, error) {
	rep := &Report{
		Metadata:          msg.Metadata,
		Body:              msg.Body,
		AttachmentsByKind: msg.AttachmentsByKind,
	}

	if analyze != nil {
		answer, err := analyze(ctx, msg.Body.Flatten())
		if err != nil {
			return nil, fmt.Errorf("analysis failed: %w", err)
		}
		fs := fields.Parse(answer)
		rep.Analysis = &Analysis{Answer: answer, Fields: fs.Fields}
	}

	for _, nested := range msg.NestedMessages {
		child, err := Build(ctx, nested, analyze)
		if err != nil {
			return nil, err
		}
		rep.NestedMessages = append(rep.NestedMessages, child)
	}

	return rep, nil
}
