package document

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/david/tender-digest/internal/config"
)

type Provenance string

const (
	ProvenancePlainPDF   Provenance = "parsed_without_rotation"
	ProvenanceRotatedPDF Provenance = "parsed_with_rotation"
	ProvenanceDOCX       Provenance = "parsed_docx"
	ProvenanceDOC        Provenance = "parsed_doc"
)

// ExtractedText is the plain text of one document and the parser that produced it.
type ExtractedText struct {
	Text       string     `json:"text"`
	Provenance Provenance `json:"provenance"`
}

// Extractor turns one file on disk into text.
type Extractor interface {
	Extract(ctx context.Context, path string) (ExtractedText, error)
}

type Kind string

const (
	KindPDF         Kind = "pdf"
	KindContractPDF Kind = "pdf_contract"
	KindDOCX        Kind = "docx"
	KindDOC         Kind = "doc"
)

// KindFor selects the parser for path from its extension, case-insensitively.
// PDFs whose file name contains marker use the rotation-aware contract mode.
func KindFor(path, marker string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		name := strings.ToLower(filepath.Base(path))
		if marker != "" && strings.Contains(name, strings.ToLower(marker)) {
			return KindContractPDF, nil
		}
		return KindPDF, nil
	case ".docx":
		return KindDOCX, nil
	case ".doc":
		return KindDOC, nil
	default:
		return "", &UnsupportedFormatError{Path: path, Ext: ext}
	}
}

// Dispatcher routes each file to the extractor registered for its Kind.
type Dispatcher struct {
	marker     string
	extractors map[Kind]Extractor
}

// NewDispatcher registers the built-in extractors for every supported format.
func NewDispatcher(cfg config.DocumentsConfig) *Dispatcher {
	d := &Dispatcher{marker: cfg.ContractMarker, extractors: make(map[Kind]Extractor)}
	d.Register(KindPDF, PlainPDF{})
	d.Register(KindContractPDF, ContractPDF{})
	d.Register(KindDOCX, DOCX{})
	d.Register(KindDOC, NewDOC(cfg.DocConverter, nil))
	return d
}

// Register replaces the extractor used for kind.
func (d *Dispatcher) Register(kind Kind, ex Extractor) {
	d.extractors[kind] = ex
}

func (d *Dispatcher) Extract(ctx context.Context, path string) (ExtractedText, error) {
	kind, err := KindFor(path, d.marker)
	if err != nil {
		return ExtractedText{}, err
	}
	ex, ok := d.extractors[kind]
	if !ok {
		return ExtractedText{}, &UnsupportedFormatError{Path: path, Ext: strings.ToLower(filepath.Ext(path))}
	}
	out, err := ex.Extract(ctx, path)
	if err != nil {
		return ExtractedText{}, err
	}
	out.Text = SanitizeText(out.Text)
	return out, nil
}

// SanitizeText drops invalid UTF-8, NUL and the other C0 control characters
// except tab, newline and carriage return. Postgres rejects NUL in TEXT and JSONB.
func SanitizeText(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r == 0x7f || (r < 0x20 && r != '\t' && r != '\n' && r != '\r') {
			return -1
		}
		return r
	}, s)
}
