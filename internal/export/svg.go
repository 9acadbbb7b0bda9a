// Package export writes hourglass snapshots and run curves as SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/sandglass/internal/sand"
)

const background = "#0a0a0a"

// Palette colours a snapshot.
type Palette struct {
	Glass string
	Sand  string
}

var DefaultPalette = Palette{Glass: "#78a0b4", Sand: "#e8b04a"}

// GlassSVG draws the glass outline and every grain at its position, in the
// container's own pixel coordinates.
func GlassSVG(geo sand.Geometry, grains []sand.Grain, pal Palette) string {
	if geo.Width <= 0 || geo.Height <= 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, geo.Width, geo.Height, geo.Width, geo.Height, background))

	left, right := geo.Outline()
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="2" d="M%.1f,%.1f`, pal.Glass, left[0][0], left[0][1]))
	for _, p := range left[1:] {
		sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", p[0], p[1]))
	}
	for i := len(right) - 1; i >= 0; i-- {
		sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", right[i][0], right[i][1]))
	}
	sb.WriteString(" Z\"/>\n")

	sb.WriteString(fmt.Sprintf("<g fill=\"%s\">\n", pal.Sand))
	for _, g := range grains {
		opacity := min(1, max(0.2, 0.8+g.Shade))
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.2f" fill-opacity="%.2f"/>
`, g.X, g.Y, g.Radius, opacity))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesSVG plots each series as a polyline over a shared scale. Series are
// indexed by step; colors cycles when shorter than series.
func SeriesSVG(series [][]float64, colors []string, width, height int) string {
	n := 0
	for _, s := range series {
		n = max(n, len(s))
	}
	if n < 2 || len(colors) == 0 {
		return ""
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			lo, hi = min(lo, v), max(hi, v)
		}
	}

	// Add padding
	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.05
	hi += span * 0.05
	span = hi - lo

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))

	for si, s := range series {
		if len(s) < 2 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, colors[si%len(colors)]))
		for i, v := range s {
			x := float64(i) / float64(n-1) * float64(width)
			y := float64(height) - (v-lo)/span*float64(height)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}
