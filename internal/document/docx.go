package document

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// DOCX reads the paragraphs of word/document.xml in document order, table
// cells included.
type DOCX struct{}

func (DOCX) Extract(ctx context.Context, path string) (ExtractedText, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return ExtractedText{}, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ExtractedText{}, fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()

		paragraphs, err := docxParagraphs(ctx, rc)
		if err != nil {
			return ExtractedText{}, err
		}
		return ExtractedText{Text: strings.Join(paragraphs, "\n"), Provenance: ProvenanceDOCX}, nil
	}
	return ExtractedText{}, errors.New("docx: word/document.xml not found")
}

func docxParagraphs(ctx context.Context, r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		current    strings.Builder
		depth      int
		inText     bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			return paragraphs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Space != wordprocessingNS {
				continue
			}
			switch el.Name.Local {
			case "p":
				if depth == 0 {
					current.Reset()
				}
				depth++
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			if el.Name.Space != wordprocessingNS {
				continue
			}
			switch el.Name.Local {
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 {
					paragraphs = append(paragraphs, current.String())
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && depth > 0 {
				current.Write(el)
			}
		}
	}
}
