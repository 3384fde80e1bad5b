package container

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	// Register additional charsets that are commonly used in emails
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// ReadMIME parses an RFC 5322 message from a reader. Individual malformed
// headers are coerced to best-effort strings rather than failing the read;
// only an unreadable message structure is an error.
func ReadMIME(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}

	msg := &Message{}
	header := mr.Header

	msg.Subject = decodeMIMEWord(header.Get("Subject"))
	msg.From = addressField(header, "From")
	msg.To = addressField(header, "To")
	msg.Cc = addressField(header, "Cc")
	msg.Bcc = addressField(header, "Bcc")

	if date, err := header.Date(); err == nil {
		msg.Date = date
	} else {
		msg.DateRaw = strings.TrimSpace(header.Get("Date"))
	}

	// Walk body parts and attachments. A broken part ends the walk with
	// whatever was collected so far; it does not fail the message.
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}

			switch {
			case contentType == "message/rfc822":
				// Inline attached message, treated as an embedded container
				msg.Attachments = append(msg.Attachments, &bytesAttachment{
					name: "embedded-message.eml",
					data: body,
				})
			case strings.HasPrefix(contentType, "text/plain"):
				if msg.BodyText == "" {
					msg.BodyText = string(body)
				}
			case strings.HasPrefix(contentType, "text/html"):
				if msg.BodyHTML == "" {
					msg.BodyHTML = string(body)
				}
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}

			if filename == "" && contentType == "message/rfc822" {
				filename = "embedded-message.eml"
			}

			msg.Attachments = append(msg.Attachments, &bytesAttachment{
				name: filename,
				data: data,
			})
		}
	}

	return msg, nil
}

// addressField returns a display string for an address header, joining
// multiple addresses with "; ". Malformed address lists fall back to the raw
// decoded header value.
func addressField(header mail.Header, key string) string {
	addrs, err := header.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return decodeMIMEWord(strings.TrimSpace(header.Get(key)))
	}

	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		parts = append(parts, formatAddress(addr.Name, addr.Address))
	}
	return strings.Join(parts, "; ")
}

// formatAddress renders "Name <addr>" or whichever half is present
func formatAddress(name, addr string) string {
	switch {
	case name != "" && addr != "":
		return name + " <" + addr + ">"
	case addr != "":
		return addr
	default:
		return name
	}
}

// decodeMIMEWord decodes MIME-encoded words (RFC 2047)
// Example: =?UTF-8?Q?Invitaci=C3=B3n?= -> Invitación
func decodeMIMEWord(s string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(s)
	if err != nil {
		// If decoding fails, return original string
		return s
	}
	return decoded
}
