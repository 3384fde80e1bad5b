// Package container reads compound message documents (Outlook .msg and
// MIME/.eml) into a uniform in-memory representation: header metadata, one
// body and a list of named attachments, where an attachment may itself be an
// embedded container.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedFormat is returned when the input bytes are not a
// recognizable container. It is the only error a parse call surfaces for
// bad input.
var ErrUnsupportedFormat = errors.New("unsupported container format")

// Message is a single container level, before any normalization.
type Message struct {
	From    string
	To      string
	Cc      string
	Bcc     string
	Subject string

	// Date is the structured timestamp when one was present; DateRaw keeps
	// the best-effort string form for headers that did not parse.
	Date    time.Time
	DateRaw string

	BodyText string
	BodyHTML string

	Attachments []Attachment
}

// Attachment exposes an attachment through two operations: display name and
// raw bytes. Every format kind is dispatched uniformly through this
// interface.
type Attachment interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// EmbeddedContainer is implemented by attachments whose payload the reader
// already exposes as a parsed container level (MSG sub-storages are read in
// place rather than re-exported as bytes).
type EmbeddedContainer interface {
	Embedded() (*Message, error)
}

// cfbMagic is the OLE compound file signature
var cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Open sniffs the container format and parses it. CFB bytes are read as an
// Outlook message; anything else is attempted as a MIME message. Input that
// is neither yields ErrUnsupportedFormat carrying the detected media type.
func Open(data []byte) (*Message, error) {
	if bytes.HasPrefix(data, cfbMagic) {
		return ReadMSG(data)
	}

	msg, err := ReadMIME(bytes.NewReader(data))
	if err == nil {
		return msg, nil
	}

	mt := mimetype.Detect(data)
	return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedFormat, mt.String())
}

// bytesAttachment is an attachment whose payload is held in memory
type bytesAttachment struct {
	name string
	data []byte
}

func (a *bytesAttachment) Name() string { return a.name }

func (a *bytesAttachment) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.data)), nil
}
