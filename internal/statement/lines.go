package statement

import (
	"math"
	"sort"
	"strings"
)

const (
	// Fragments whose baselines differ by less than this share a line.
	lineTolerance = 2.0
	// A horizontal gap wider than this fraction of the font size becomes a space.
	spaceGapRatio = 0.2
)

// pageLines splits a page at its horizontal midpoint and returns the lines of
// the left half followed by the lines of the right half.
func pageLines(page Page) []string {
	width := page.Width
	if width <= 0 {
		width = contentWidth(page.Fragments)
	}
	mid := width / 2

	var left, right []Fragment
	for _, f := range page.Fragments {
		if f.X < mid {
			left = append(left, f)
		} else {
			right = append(right, f)
		}
	}

	lines := assembleLines(left)
	return append(lines, assembleLines(right)...)
}

func contentWidth(fragments []Fragment) float64 {
	var width float64
	for _, f := range fragments {
		width = math.Max(width, f.X+f.W)
	}
	return width
}

// assembleLines groups fragments into text lines, top of the page first.
func assembleLines(fragments []Fragment) []string {
	if len(fragments) == 0 {
		return nil
	}

	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var (
		lines   []string
		current []Fragment
		lineY   float64
	)
	flush := func() {
		if text := joinFragments(current); text != "" {
			lines = append(lines, text)
		}
		current = current[:0]
	}

	for _, f := range sorted {
		if len(current) > 0 && math.Abs(f.Y-lineY) >= lineTolerance {
			flush()
		}
		if len(current) == 0 {
			lineY = f.Y
		}
		current = append(current, f)
	}
	flush()

	return lines
}

func joinFragments(fragments []Fragment) string {
	line := make([]Fragment, len(fragments))
	copy(line, fragments)
	sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

	var b strings.Builder
	for i, f := range line {
		if i > 0 {
			prev := line[i-1]
			gap := f.X - (prev.X + prev.W)
			threshold := spaceGapRatio * math.Max(f.FontSize, 1)
			if gap > threshold && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(f.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(f.S)
	}
	return strings.TrimSpace(b.String())
}
