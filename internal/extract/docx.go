package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"
)

// DocxText extracts paragraph text from a Word .docx document
// (word/document.xml inside the OOXML zip). Non-empty paragraphs are joined
// with a newline; an unreadable archive yields an empty string.
func DocxText(data []byte) (string, error) {
	doc := zipEntry(data, "word/document.xml")
	if doc == nil {
		return "", nil
	}

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}

// zipEntry returns the named file's contents from a zip archive, or nil if
// the archive or entry cannot be read.
func zipEntry(data []byte, name string) []byte {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil
		}
		return buf.Bytes()
	}
	return nil
}
