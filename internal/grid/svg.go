package grid

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// svgMargin leaves room for month labels and decade numbers.
const svgMargin = 28.0

// WriteSVG paints g as a standalone SVG document.
func WriteSVG(w io.Writer, g *Grid) error {
	var svg strings.Builder
	width := g.Width + 2*svgMargin
	height := g.Height + 2*svgMargin
	cell := g.CellSize

	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%.0f" height="%.0f" viewBox="0 0 %.2f %.2f" xmlns="http://www.w3.org/2000/svg" data-weeks-lived="%d">
<rect width="100%%" height="100%%" fill="#ffffff"/>
`, width, height, width, height, g.WeeksLived))

	radius := 0.0
	switch g.CellShape {
	case ShapeRounded:
		radius = cell / 4
	case ShapeCircle:
		radius = cell / 2
	}

	svg.WriteString(`<g id="cells">` + "\n")
	for _, c := range g.Cells {
		x, y := c.Pos.X+svgMargin, c.Pos.Y+svgMargin
		title := string(c.Key)
		if c.Style.EventName != "" {
			title += " " + c.Style.EventName
		}
		svg.WriteString(fmt.Sprintf(`<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="%.2f" fill="%s" data-key="%s" data-state="%s"><title>%s</title></rect>`,
			x, y, cell, cell, radius, html.EscapeString(c.Style.Fill()), c.Key, c.Style.State, html.EscapeString(title)))
		svg.WriteString("\n")
		if g.BirthdayMarker && c.WeekIndex == 0 {
			svg.WriteString(fmt.Sprintf(`<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="%.2f" fill="none" stroke="#000000" stroke-width="1"/>`,
				x, y, cell, cell, radius))
			svg.WriteString("\n")
		}
	}
	svg.WriteString("</g>\n")

	writeDecades(&svg, g)
	writeMonthLabels(&svg, g)

	svg.WriteString("</svg>\n")
	_, err := io.WriteString(w, svg.String())
	return err
}

func writeDecades(svg *strings.Builder, g *Grid) {
	for n, off := range g.Decades {
		year := 10 * (n + 1)
		// Separator sits in the middle of the widened gap before the decade.
		prevEnd := YearPosition(year-1, g.Layout.CellSize, g.Layout.Gap, g.Layout.DecadeGap) + g.CellSize
		pos := (prevEnd+off)/2 + svgMargin
		label := fmt.Sprintf("%d", year)
		if g.Orientation == Portrait {
			svg.WriteString(fmt.Sprintf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#9E9E9E" stroke-width="1" stroke-dasharray="2,2"/>`,
				svgMargin, pos, svgMargin+g.Width, pos))
			svg.WriteString(fmt.Sprintf(`<text x="%.2f" y="%.2f" text-anchor="end" font-size="9" fill="#616161">%s</text>`,
				svgMargin-4, pos+3, label))
		} else {
			svg.WriteString(fmt.Sprintf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#9E9E9E" stroke-width="1" stroke-dasharray="2,2"/>`,
				pos, svgMargin, pos, svgMargin+g.Height))
			svg.WriteString(fmt.Sprintf(`<text x="%.2f" y="%.2f" text-anchor="middle" font-size="9" fill="#616161">%s</text>`,
				pos, svgMargin-6, label))
		}
		svg.WriteString("\n")
	}
}

// writeMonthLabels labels the week axis using the first year's markers.
func writeMonthLabels(svg *strings.Builder, g *Grid) {
	for _, m := range g.Markers {
		if m.YearIndex != 0 {
			continue
		}
		weight := "normal"
		if m.IsBirthMonth {
			weight = "bold"
		}
		off := WeekPosition(m.WeekOfYear, g.Layout.CellSize, g.Layout.Gap) + svgMargin
		if g.Orientation == Portrait {
			svg.WriteString(fmt.Sprintf(`<text x="%.2f" y="%.2f" text-anchor="start" font-size="9" font-weight="%s" fill="#616161">%s</text>`,
				off, svgMargin-6, weight, html.EscapeString(m.Label)))
		} else {
			svg.WriteString(fmt.Sprintf(`<text x="%.2f" y="%.2f" text-anchor="end" font-size="9" font-weight="%s" fill="#616161">%s</text>`,
				svgMargin-4, off+g.CellSize, weight, html.EscapeString(m.Label)))
		}
		svg.WriteString("\n")
	}
}
