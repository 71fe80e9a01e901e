package document

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"

	rpdf "rsc.io/pdf"
)

// rotatedGlyphSize stands in for the glyph extent when the text layer reports
// no horizontal scale for a rotated glyph.
const rotatedGlyphSize = 10.0

// Char is one glyph placed on a page.
type Char struct {
	Text    string
	Box     BBox
	Upright bool
}

// Page is the geometry of one PDF page: its glyphs and the ruling rectangles
// that outline tables.
type Page struct {
	Number  int
	Width   float64
	Height  float64
	Chars   []Char
	Rulings []BBox
}

func readPages(ctx context.Context, path string) (pages []Page, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			pages = nil
		}
	}()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		pages = append(pages, pageFromPDF(i, p))
	}
	return pages, nil
}

func pageFromPDF(number int, p rpdf.Page) Page {
	width, height := mediaBox(p)
	content := p.Content()

	page := Page{Number: number, Width: width, Height: height}
	for _, t := range content.Text {
		page.Chars = append(page.Chars, charFromText(t, height))
	}
	for _, r := range content.Rect {
		page.Rulings = append(page.Rulings, BBox{
			X0:     r.Min.X,
			X1:     r.Max.X,
			Top:    height - r.Max.Y,
			Bottom: height - r.Min.Y,
		}.normalized())
	}
	return page
}

// charFromText converts a text run into top-down page space. The library
// reports the first diagonal term of the text rendering matrix as FontSize,
// so a non-positive value means the glyph is turned away from upright.
func charFromText(t rpdf.Text, pageHeight float64) Char {
	if t.FontSize > 0 {
		width := t.W
		if width <= 0 {
			width = t.FontSize / 2
		}
		return Char{
			Text:    t.S,
			Upright: true,
			Box: BBox{
				X0:     t.X,
				X1:     t.X + width,
				Top:    pageHeight - (t.Y + t.FontSize),
				Bottom: pageHeight - t.Y,
			},
		}
	}

	size := math.Abs(t.FontSize)
	if size == 0 {
		size = rotatedGlyphSize
	}
	return Char{
		Text: t.S,
		Box: BBox{
			X0:     t.X - size,
			X1:     t.X,
			Top:    pageHeight - (t.Y + size),
			Bottom: pageHeight - t.Y,
		},
	}
}

// mediaBox walks the page tree upwards since MediaBox is inheritable.
func mediaBox(p rpdf.Page) (width, height float64) {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() != rpdf.Array || box.Len() < 4 {
			continue
		}
		x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
		x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
		return math.Abs(x1 - x0), math.Abs(y1 - y0)
	}
	// US Letter, the PDF reference default.
	return 612, 792
}
