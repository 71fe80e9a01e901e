package document

import (
	"sort"
	"strings"
)

const (
	// rotationThreshold is the share of non-upright glyphs above which a table
	// is treated as laid out sideways.
	rotationThreshold = 0.30

	snapTolerance    = 2.0
	rulingConnectGap = 1.0
)

// Table is a ruled grid found on a page.
type Table struct {
	BBox BBox
	Rows [][]string
}

// DetectTables groups touching ruling rectangles and turns every group that
// spans at least two cells into a table. Cell text comes from the glyphs
// whose centre falls into the cell.
func DetectTables(p Page) []Table {
	var tables []Table
	for _, group := range groupRulings(p.Rulings) {
		xs, ys := gridEdges(group)
		cols, rows := len(xs)-1, len(ys)-1
		if cols < 1 || rows < 1 || cols*rows < 2 {
			continue
		}

		bbox := Union(group...)
		cells := make([][][]Char, rows)
		for r := range cells {
			cells[r] = make([][]Char, cols)
		}
		for _, c := range p.Chars {
			cx, cy := c.Box.center()
			if cx < bbox.X0 || cx > bbox.X1 || cy < bbox.Top || cy > bbox.Bottom {
				continue
			}
			r, col := edgeIndex(ys, cy), edgeIndex(xs, cx)
			cells[r][col] = append(cells[r][col], c)
		}

		t := Table{BBox: bbox, Rows: make([][]string, rows)}
		for r := range cells {
			t.Rows[r] = make([]string, cols)
			for col := range cells[r] {
				t.Rows[r][col] = cellText(cells[r][col])
			}
		}
		tables = append(tables, t)
	}
	sort.SliceStable(tables, func(i, j int) bool {
		if tables[i].BBox.Top != tables[j].BBox.Top {
			return tables[i].BBox.Top < tables[j].BBox.Top
		}
		return tables[i].BBox.X0 < tables[j].BBox.X0
	})
	return tables
}

// RotatedFraction is the share of non-upright glyphs among the chars whose
// origin lies inside the table. A table without glyphs has fraction 0.
func RotatedFraction(t Table, chars []Char) float64 {
	var total, rotated int
	for _, c := range chars {
		if !ContainsOrigin(t.BBox, c.Box) {
			continue
		}
		total++
		if !c.Upright {
			rotated++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(rotated) / float64(total)
}

// IsRotated applies the strict rotation threshold.
func IsRotated(fraction float64) bool {
	return fraction > rotationThreshold
}

// RotateTable turns a grid 90 degrees counter-clockwise and reverses the
// characters of every cell. Short rows are padded with empty cells.
func RotateTable(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	out := make([][]string, width)
	for i := range out {
		src := width - 1 - i
		out[i] = make([]string, len(rows))
		for j, row := range rows {
			if src < len(row) {
				out[i][j] = reverseRunes(row[src])
			}
		}
	}
	return out
}

// RenderTable writes one line per row with cells separated by tabs.
func RenderTable(rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

// groupRulings returns the connected components of rectangles that touch or
// overlap within rulingConnectGap.
func groupRulings(rulings []BBox) [][]BBox {
	parent := make([]int, len(rulings))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := range rulings {
		for j := i + 1; j < len(rulings); j++ {
			if Overlaps(rulings[i].expand(rulingConnectGap), rulings[j]) {
				parent[find(i)] = find(j)
			}
		}
	}

	byRoot := make(map[int][]BBox)
	var order []int
	for i, r := range rulings {
		root := find(i)
		if _, seen := byRoot[root]; !seen {
			order = append(order, root)
		}
		byRoot[root] = append(byRoot[root], r)
	}
	groups := make([][]BBox, 0, len(order))
	for _, root := range order {
		groups = append(groups, byRoot[root])
	}
	return groups
}

func gridEdges(group []BBox) (xs, ys []float64) {
	for _, b := range group {
		xs = append(xs, b.X0, b.X1)
		ys = append(ys, b.Top, b.Bottom)
	}
	return snap(xs), snap(ys)
}

// snap sorts values and merges those closer than snapTolerance to the first
// value of their run.
func snap(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	out := []float64{sorted[0]}
	for _, v := range sorted[1:] {
		if v-out[len(out)-1] > snapTolerance {
			out = append(out, v)
		}
	}
	return out
}

// edgeIndex finds the band [edges[i], edges[i+1]) holding v, clamped to the grid.
func edgeIndex(edges []float64, v float64) int {
	i := sort.SearchFloat64s(edges, v)
	if i < len(edges) && edges[i] == v {
		i++
	}
	i--
	if i < 0 {
		return 0
	}
	if i > len(edges)-2 {
		return len(edges) - 2
	}
	return i
}

// cellText joins the glyphs of one cell in reading order. Lines of sideways
// glyphs hold one char each and are concatenated without separators.
func cellText(chars []Char) string {
	var b strings.Builder
	for li, line := range Lines(chars) {
		if li > 0 && line[0].Upright && b.Len() > 0 {
			b.WriteString(" ")
		}
		for ci, c := range line {
			if ci > 0 && c.Upright && wordBreak(line[ci-1], c) {
				b.WriteString(" ")
			}
			b.WriteString(c.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
