package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdelaney/msg-analyzer/internal/config"
	"github.com/kdelaney/msg-analyzer/internal/container"
	"github.com/kdelaney/msg-analyzer/internal/extract"
)

type testAttachment struct {
	filename string
	data     []byte
}

// buildEML assembles a multipart MIME container with a plain body and the
// given attachments, base64-encoded.
func buildEML(subject, body string, atts ...testAttachment) []byte {
	var buf bytes.Buffer

	buf.WriteString("From: Alice <alice@example.com>\r\n")
	buf.WriteString("To: bob@example.com\r\n")
	buf.WriteString("Subject: " + subject + "\r\n")
	buf.WriteString("Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(atts) == 0 {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(body + "\r\n")
		return buf.Bytes()
	}

	const boundary = "testboundary42"
	buf.WriteString("Content-Type: multipart/mixed; boundary=\"" + boundary + "\"\r\n\r\n")

	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body + "\r\n")

	for _, att := range atts {
		buf.WriteString("--" + boundary + "\r\n")
		buf.WriteString("Content-Type: application/octet-stream\r\n")
		buf.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", att.filename))
		buf.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		buf.WriteString(base64.StdEncoding.EncodeToString(att.data) + "\r\n")
	}
	buf.WriteString("--" + boundary + "--\r\n")
	return buf.Bytes()
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body bytes.Buffer
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", p)
	}
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testWalker(mutate ...func(*config.Config)) *Walker {
	cfg := config.Default()
	cfg.Workers = 2
	for _, m := range mutate {
		m(cfg)
	}
	return New(cfg, zerolog.Nop())
}

func TestParse_SimpleMessage(t *testing.T) {
	w := testWalker()

	msg, err := w.Parse(context.Background(), buildEML("Hello", "Some   body\r\n\r\n\r\ntext"))
	require.NoError(t, err)

	assert.Equal(t, "Alice <alice@example.com>", msg.Metadata.From)
	assert.Equal(t, "bob@example.com", msg.Metadata.To)
	assert.Equal(t, "", msg.Metadata.Cc)
	assert.Equal(t, "", msg.Metadata.Bcc)
	assert.Equal(t, "Hello", msg.Metadata.Subject)
	assert.Equal(t, "2006-01-02T15:04:05Z", msg.Metadata.Date)
	assert.Equal(t, "Some body\n\ntext", msg.Body.Text)
	assert.Empty(t, msg.Body.Thread)
	assert.Empty(t, msg.AttachmentsByKind)
	assert.Empty(t, msg.NestedMessages)
}

func TestParse_UnsupportedInput(t *testing.T) {
	w := testWalker()

	_, err := w.Parse(context.Background(), []byte{0xDE, 0xAD, 0xBE, 0xEF})
	assert.ErrorIs(t, err, container.ErrUnsupportedFormat)
}

func TestParse_ThreadSplitting(t *testing.T) {
	w := testWalker()
	body := "Hi\r\n-----Original Message-----\r\nOlder text"

	msg, err := w.Parse(context.Background(), buildEML("Re: Hi", body))
	require.NoError(t, err)

	assert.Equal(t, []string{"Hi", "Older text"}, msg.Body.Thread)
	assert.Empty(t, msg.Body.Text)
}

func TestParse_DocumentAttachment(t *testing.T) {
	w := testWalker()
	docx := buildDocx(t, "Attached paragraph")

	msg, err := w.Parse(context.Background(), buildEML("Docs", "see attached",
		testAttachment{filename: "memo.docx", data: docx}))
	require.NoError(t, err)

	docs := msg.AttachmentsByKind[extract.KindWordprocessing]
	require.Len(t, docs, 1)
	assert.Equal(t, "memo.docx", docs[0].Filename)
	assert.Equal(t, "Attached paragraph", docs[0].Content)
}

func TestParse_CorruptSiblingDoesNotAbort(t *testing.T) {
	w := testWalker()
	valid := buildDocx(t, "still extracted")

	msg, err := w.Parse(context.Background(), buildEML("Mixed", "body",
		testAttachment{filename: "broken.docx", data: []byte("not a zip at all")},
		testAttachment{filename: "good.docx", data: valid},
	))
	require.NoError(t, err)

	docs := msg.AttachmentsByKind[extract.KindWordprocessing]
	require.Len(t, docs, 2)
	assert.Equal(t, "broken.docx", docs[0].Filename)
	assert.Equal(t, "", docs[0].Content)
	assert.Equal(t, "good.docx", docs[1].Filename)
	assert.Equal(t, "still extracted", docs[1].Content)
}

func TestParse_UnknownKindSilentlySkipped(t *testing.T) {
	w := testWalker()

	msg, err := w.Parse(context.Background(), buildEML("Junk", "body",
		testAttachment{filename: "data.bin", data: []byte{1, 2, 3}},
		testAttachment{filename: "noextension", data: []byte{4, 5}},
	))
	require.NoError(t, err)

	assert.Empty(t, msg.AttachmentsByKind)
	assert.Empty(t, msg.NestedMessages)
}

func TestParse_NestedThreeLevels(t *testing.T) {
	w := testWalker()

	level3 := buildEML("Level three", "innermost")
	level2 := buildEML("Level two", "middle",
		testAttachment{filename: "three.eml", data: level3})
	level1 := buildEML("Level one", "outermost",
		testAttachment{filename: "two.eml", data: level2})

	msg, err := w.Parse(context.Background(), level1)
	require.NoError(t, err)

	assert.Equal(t, "Level one", msg.Metadata.Subject)
	assert.Equal(t, "outermost", msg.Body.Text)

	require.Len(t, msg.NestedMessages, 1)
	second := msg.NestedMessages[0]
	assert.Equal(t, "Level two", second.Metadata.Subject)
	assert.Equal(t, "middle", second.Body.Text)

	require.Len(t, second.NestedMessages, 1)
	third := second.NestedMessages[0]
	assert.Equal(t, "Level three", third.Metadata.Subject)
	assert.Equal(t, "innermost", third.Body.Text)
	assert.Empty(t, third.NestedMessages)
}

func TestParse_DepthBoundTerminatesBranch(t *testing.T) {
	w := testWalker(func(cfg *config.Config) { cfg.MaxDepth = 3 })

	// Five nested levels, bound at three: the parse must finish without an
	// error and truncate the deeper branches only.
	inner := buildEML("Level 5", "deepest")
	for i := 4; i >= 1; i-- {
		inner = buildEML(fmt.Sprintf("Level %d", i), "body",
			testAttachment{filename: "nested.eml", data: inner})
	}

	msg, err := w.Parse(context.Background(), inner)
	require.NoError(t, err)

	depth := 1
	for node := msg; len(node.NestedMessages) > 0; node = node.NestedMessages[0] {
		depth++
	}
	assert.Equal(t, 3, depth)
}

func TestParse_CorruptNestedContainerDropped(t *testing.T) {
	w := testWalker()

	msg, err := w.Parse(context.Background(), buildEML("Outer", "body",
		testAttachment{filename: "broken.eml", data: []byte{0xFF, 0x00, 0xFF}}))
	require.NoError(t, err)

	assert.Empty(t, msg.NestedMessages)
	assert.Equal(t, "body", msg.Body.Text)
}

func TestParse_CancelledContextDropsAttachments(t *testing.T) {
	w := testWalker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg, err := w.Parse(ctx, buildEML("Cancelled", "body",
		testAttachment{filename: "memo.docx", data: buildDocx(t, "unreached")}))
	require.NoError(t, err)

	// cancellation is checked at the start of each attachment's processing
	assert.Empty(t, msg.AttachmentsByKind)
	assert.Equal(t, "body", msg.Body.Text)
}

func TestParse_HTMLBodyFallback(t *testing.T) {
	w := testWalker()
	eml := []byte("From: a@example.com\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>rendered   text</p></body></html>\r\n")

	msg, err := w.Parse(context.Background(), eml)
	require.NoError(t, err)
	assert.Equal(t, "rendered text", msg.Body.Text)
}
