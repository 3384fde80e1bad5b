package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kdelaney/msg-analyzer/internal/config"
	"github.com/kdelaney/msg-analyzer/internal/container"
	"github.com/kdelaney/msg-analyzer/internal/extract"
)

// ErrRecursionDepthExceeded marks a nested branch abandoned at the depth
// bound. It never escapes a Parse call; the offending branch is dropped and
// the parent parse continues.
var ErrRecursionDepthExceeded = errors.New("recursion depth exceeded")

// containerExts are attachment extensions treated as embedded containers
var containerExts = map[string]bool{
	".msg": true,
	".eml": true,
}

// Walker turns container bytes into a ParsedMessage tree. It is stateless
// across calls; each Parse invocation is independent and reentrant.
type Walker struct {
	cfg        *config.Config
	log        zerolog.Logger
	extractors *extract.Registry
}

// New creates a Walker with the built-in extractor registry
func New(cfg *config.Config, log zerolog.Logger) *Walker {
	return &Walker{
		cfg:        cfg,
		log:        log,
		extractors: extract.DefaultRegistry(),
	}
}

// ParseFile parses the container document at path
func (w *Walker) ParseFile(ctx context.Context, path string) (*ParsedMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read container file: %w", err)
	}
	return w.Parse(ctx, data)
}

// Parse parses container bytes into a ParsedMessage tree. The only error it
// returns is container.ErrUnsupportedFormat (wrapped) for input that is not
// a recognizable container; every per-attachment condition is contained and
// degrades the output instead.
func (w *Walker) Parse(ctx context.Context, data []byte) (*ParsedMessage, error) {
	msg, err := container.Open(data)
	if err != nil {
		return nil, err
	}
	return w.walk(ctx, msg, 0), nil
}

// walk assembles one tree level. depth counts container levels from the top
// and travels by value down each branch.
func (w *Walker) walk(ctx context.Context, msg *container.Message, depth int) *ParsedMessage {
	parsed := &ParsedMessage{
		Metadata: metadataFrom(msg),
		Body:     w.body(msg),
	}

	if len(msg.Attachments) == 0 {
		return parsed
	}

	// Siblings are independent; process them with a bounded pool and
	// assemble in attachment order once all are done.
	results := make([]attachmentResult, len(msg.Attachments))
	g := new(errgroup.Group)
	g.SetLimit(w.cfg.Workers)
	for i, att := range msg.Attachments {
		i, att := i, att
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = attachmentResult{name: att.Name(), err: err}
				return nil
			}
			results[i] = w.processAttachment(ctx, att, depth)
			return nil
		})
	}
	g.Wait()

	for _, res := range results {
		switch {
		case res.err != nil:
			w.log.Warn().Str("attachment", res.name).Err(res.err).
				Msg("attachment dropped")
		case res.nested != nil:
			parsed.NestedMessages = append(parsed.NestedMessages, res.nested)
		case res.kind != "":
			if parsed.AttachmentsByKind == nil {
				parsed.AttachmentsByKind = make(map[extract.Kind][]ExtractedDocument)
			}
			parsed.AttachmentsByKind[res.kind] = append(parsed.AttachmentsByKind[res.kind], res.doc)
		}
	}

	return parsed
}

type attachmentResult struct {
	name   string
	kind   extract.Kind
	doc    ExtractedDocument
	nested *ParsedMessage
	err    error
}

// processAttachment classifies and handles a single attachment. Any failure
// is reported in the result and dropped by the caller; it never aborts
// siblings or the parent message.
func (w *Walker) processAttachment(ctx context.Context, att container.Attachment, depth int) attachmentResult {
	name := att.Name()
	res := attachmentResult{name: name}

	// Embedded containers already materialized by the reader (MSG
	// sub-storages) recurse without a byte round-trip.
	if emb, ok := att.(container.EmbeddedContainer); ok {
		if depth+1 >= w.cfg.MaxDepth {
			res.err = ErrRecursionDepthExceeded
			return res
		}
		msg, err := emb.Embedded()
		if err != nil {
			res.err = fmt.Errorf("reading embedded container: %w", err)
			return res
		}
		res.nested = w.walk(ctx, msg, depth+1)
		return res
	}

	if containerExts[strings.ToLower(filepath.Ext(name))] {
		if depth+1 >= w.cfg.MaxDepth {
			res.err = ErrRecursionDepthExceeded
			return res
		}
		data, err := materialize(att)
		if err != nil {
			res.err = err
			return res
		}
		msg, err := container.Open(data)
		if err != nil {
			res.err = fmt.Errorf("parsing embedded container: %w", err)
			return res
		}
		res.nested = w.walk(ctx, msg, depth+1)
		return res
	}

	kind, ok := w.extractors.KindFor(name)
	if !ok {
		// unknown kinds are silently skipped
		w.log.Debug().Str("attachment", name).Msg("skipping unrecognized attachment kind")
		return res
	}

	data, err := materialize(att)
	if err != nil {
		res.err = err
		return res
	}

	text, err := w.extractors.Extract(kind, data)
	if err != nil {
		res.err = fmt.Errorf("extracting %s: %w", kind, err)
		return res
	}

	res.kind = kind
	res.doc = ExtractedDocument{Filename: name, Content: text}
	return res
}

// materialize reads an attachment's bytes through its scoped handle; the
// handle is released before the caller dispatches to an extractor.
func materialize(att container.Attachment) ([]byte, error) {
	rc, err := att.Open()
	if err != nil {
		return nil, fmt.Errorf("opening attachment: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}
	return data, nil
}

// body extracts and normalizes the message body, preferring plain text and
// falling back to stripped HTML, then applies thread splitting.
func (w *Walker) body(msg *container.Message) Body {
	raw := msg.BodyText
	if raw == "" && msg.BodyHTML != "" {
		raw = htmlToText(msg.BodyHTML)
	}
	if raw == "" {
		return Body{}
	}

	normalized := NormalizeBody(raw)
	segments, found := SplitThread(normalized, w.cfg.ThreadDelimiter)
	if found && len(segments) > 0 {
		return Body{Thread: segments}
	}
	return Body{Text: normalized}
}

// metadataFrom coerces container headers into the metadata map: the date
// becomes RFC 3339 when a structured timestamp was available, otherwise the
// best-effort string form; missing fields become empty strings.
func metadataFrom(msg *container.Message) Metadata {
	date := msg.DateRaw
	if !msg.Date.IsZero() {
		date = msg.Date.Format(time.RFC3339)
	}
	return Metadata{
		From:    msg.From,
		To:      msg.To,
		Cc:      msg.Cc,
		Bcc:     msg.Bcc,
		Date:    date,
		Subject: msg.Subject,
	}
}
