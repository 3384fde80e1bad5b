package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PptxText extracts text from a PowerPoint .pptx presentation: for each
// slide, in deck order, the text of every shape exposing one. Shape texts
// are joined with a newline; a faulty slide is skipped.
func PptxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil
	}

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range zr.File {
		m := slidePattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: num, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var texts []string
	for _, slide := range slides {
		rc, err := slide.file.Open()
		if err != nil {
			continue
		}
		texts = append(texts, slideShapeTexts(rc)...)
		rc.Close()
	}

	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}

// slideShapeTexts collects the trimmed, non-empty text of each shape on one
// slide. A shape's text body (txBody) holds paragraphs of runs; paragraphs
// are joined with a newline within the shape.
func slideShapeTexts(r io.Reader) []string {
	var (
		shapes  []string
		current strings.Builder
		inShape bool
		inText  bool
	)

	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			shapes = append(shapes, text)
		}
		current.Reset()
	}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "txBody":
				inShape = true
			case "t":
				inText = inShape
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "txBody":
				flush()
				inShape = false
			case "t":
				inText = false
			case "p":
				if inShape {
					current.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	// tolerate truncated slide XML
	if inShape {
		flush()
	}

	return shapes
}
