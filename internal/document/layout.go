package document

import (
	"sort"
	"strings"
)

const (
	lineTolerance = 3.0
	// The text layer drops space glyphs, so a word break is a horizontal gap
	// wider than this fraction of the glyph height.
	wordGapRatio = 0.15
)

// Word is a run of glyphs on one line without whitespace or wide gaps.
type Word struct {
	Text string
	Box  BBox
}

// Lines groups chars whose tops lie within lineTolerance of the first char of
// the line, ordered top to bottom and left to right.
func Lines(chars []Char) [][]Char {
	if len(chars) == 0 {
		return nil
	}
	sorted := append([]Char(nil), chars...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Box.Top != sorted[j].Box.Top {
			return sorted[i].Box.Top < sorted[j].Box.Top
		}
		return sorted[i].Box.X0 < sorted[j].Box.X0
	})

	var lines [][]Char
	current := []Char{sorted[0]}
	lineTop := sorted[0].Box.Top
	for _, c := range sorted[1:] {
		if c.Box.Top-lineTop <= lineTolerance {
			current = append(current, c)
			continue
		}
		lines = append(lines, current)
		current = []Char{c}
		lineTop = c.Box.Top
	}
	lines = append(lines, current)

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].Box.X0 < line[j].Box.X0 })
	}
	return lines
}

// Words splits every line on whitespace glyphs and on word-sized gaps.
func Words(chars []Char) []Word {
	var words []Word
	for _, line := range Lines(chars) {
		words = append(words, lineWords(line)...)
	}
	return words
}

func wordBreak(prev, c Char) bool {
	height := max(prev.Box.Bottom-prev.Box.Top, c.Box.Bottom-c.Box.Top)
	return c.Box.X0-prev.Box.X1 > wordGapRatio*height
}

func lineWords(line []Char) []Word {
	var (
		words []Word
		text  strings.Builder
		box   BBox
		open  bool
		prev  Char
	)
	flush := func() {
		if open {
			words = append(words, Word{Text: text.String(), Box: box})
		}
		text.Reset()
		open = false
	}

	for _, c := range line {
		if strings.TrimSpace(c.Text) == "" {
			flush()
			continue
		}
		if open && wordBreak(prev, c) {
			flush()
		}
		if open {
			box = Union(box, c.Box)
		} else {
			box = c.Box
			open = true
		}
		text.WriteString(c.Text)
		prev = c
	}
	flush()
	return words
}

// PlainPageText renders a page line by line with words separated by spaces.
func PlainPageText(p Page) string {
	var lines []string
	for _, line := range Lines(p.Chars) {
		words := lineWords(line)
		if len(words) == 0 {
			continue
		}
		parts := make([]string, len(words))
		for i, w := range words {
			parts[i] = w.Text
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

// ContractPageText keeps the page prose outside rotated tables and appends
// those tables turned back upright.
func ContractPageText(p Page) string {
	var (
		excluded []BBox
		rendered strings.Builder
	)
	for _, t := range DetectTables(p) {
		if !IsRotated(RotatedFraction(t, p.Chars)) {
			continue
		}
		excluded = append(excluded, t.BBox)
		rendered.WriteString(RenderTable(RotateTable(t.Rows)))
		rendered.WriteString("\n")
	}

	var kept []string
	for _, w := range Words(p.Chars) {
		if overlapsAny(w.Box, excluded) {
			continue
		}
		kept = append(kept, w.Text)
	}

	var out strings.Builder
	if prose := strings.TrimSpace(strings.Join(kept, " ")); prose != "" {
		out.WriteString(prose)
		out.WriteString("\n")
	}
	if tables := strings.TrimSpace(rendered.String()); tables != "" {
		out.WriteString(tables)
		out.WriteString("\n")
	}
	return out.String()
}

func overlapsAny(box BBox, others []BBox) bool {
	for _, o := range others {
		if Overlaps(box, o) {
			return true
		}
	}
	return false
}

func reverseRunes(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
