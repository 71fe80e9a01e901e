package document

import (
	"context"
	"strings"
)

// PlainPDF extracts page text as laid out, one page after another.
type PlainPDF struct{}

func (PlainPDF) Extract(ctx context.Context, path string) (ExtractedText, error) {
	pages, err := readPages(ctx, path)
	if err != nil {
		return ExtractedText{}, err
	}

	var b strings.Builder
	for _, p := range pages {
		text := PlainPageText(p)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return ExtractedText{Text: b.String(), Provenance: ProvenancePlainPDF}, nil
}

// ContractPDF handles contract drafts whose tables are often set sideways on
// portrait pages. Rotated tables are lifted out of the prose and re-emitted
// upright after it.
type ContractPDF struct{}

func (ContractPDF) Extract(ctx context.Context, path string) (ExtractedText, error) {
	pages, err := readPages(ctx, path)
	if err != nil {
		return ExtractedText{}, err
	}

	var b strings.Builder
	for _, p := range pages {
		b.WriteString(ContractPageText(p))
	}
	return ExtractedText{Text: b.String(), Provenance: ProvenanceRotatedPDF}, nil
}
