package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/weronikagajda/Citography-hostmap.github.io/globe"
)

func colorFor(s Style, class string) string {
	switch globe.ParseClassification(class) {
	case globe.ClassHost:
		return s.Host
	case globe.ClassEdge:
		return s.Edge
	default:
		return s.Unknown
	}
}

// SVG renders a frame into a self-contained document. The engine emits every
// entity and flags the invisible ones; only Visible commands are drawn.
//
// The sphere and the markers sit inside a group magnified by the zoom scale
// about the viewport center. Command radii, strokes and offsets arrive
// pre-divided by that scale, so the magnification cancels and markers keep a
// constant on-screen size while positions spread apart under zoom.
func SVG(frame globe.FrameResult, style Style) string {
	v := frame.Viewport
	w, h := int(v.Width), int(v.Height)
	cx, cy := v.Width/2, v.Height/2
	var b strings.Builder

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		w, h, w, h)
	fmt.Fprintf(&b, `  <rect width="%d" height="%d" fill="%s"/>`+"\n", w, h, style.Background)

	fmt.Fprintf(&b, `  <g transform="translate(%.1f,%.1f) scale(%.4f) translate(%.1f,%.1f)">`+"\n",
		cx, cy, v.Scale, -cx, -cy)

	if v.Projection == globe.ProjectionOrthographic {
		r := math.Min(v.Width, v.Height)/2 - 10
		fmt.Fprintf(&b, `    <circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`+"\n",
			cx, cy, r, style.Sphere)
	}

	for _, cmd := range frame.Commands {
		if !cmd.Visible {
			continue
		}
		fmt.Fprintf(&b, `    <circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s" fill-opacity="%.2f" stroke="%s" stroke-width="%.2f"/>`+"\n",
			cmd.X, cmd.Y, cmd.Radius, colorFor(style, cmd.Classification), style.MarkerOpacity, style.Stroke, cmd.StrokeWidth)
		if cmd.Highlighted {
			fmt.Fprintf(&b, `    <circle cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="%s" stroke-width="%.2f"/>`+"\n",
				cmd.X, cmd.Y, cmd.Radius+2, style.Highlight, cmd.StrokeWidth)
		}
	}

	b.WriteString("  </g>\n")

	if frame.Popup != nil {
		// The label stays in screen space at a fixed font size; only its
		// anchor follows the magnified marker position.
		px := cx + (frame.Popup.X-cx)*v.Scale
		py := cy + (frame.Popup.Y-cy)*v.Scale
		fmt.Fprintf(&b, `  <text x="%.2f" y="%.2f" font-family="monospace" font-size="12" fill="%s">%s</text>`+"\n",
			px+8, py-8, style.Highlight, escapeText(frame.Popup.ID))
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
