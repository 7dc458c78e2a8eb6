package viz

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
)

var trailColors = []string{"#00ff88", "#00ccff", "#ffcc00", "#ff66cc", "#ff4444", "#aa88ff"}

// TrajectoriesSVG draws one path per body across snaps, with a dot at
// each body's final position. Returns "" when there is nothing to draw.
func TrajectoriesSVG(snaps []dynamo.Snapshot, width, height int) string {
	if len(snaps) == 0 || snaps[0].Len() == 0 || width <= 0 || height <= 0 {
		return ""
	}

	v := FitViewport(snaps)
	scale := float64(min(width, height)) / v.Size
	project := func(p r2.Vec) (float64, float64) {
		return (p.X-v.Center.X)*scale + float64(width)/2,
			float64(height)/2 - (p.Y-v.Center.Y)*scale
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	bodies := snaps[0].Len()
	for i := range bodies {
		color := trailColors[i%len(trailColors)]

		sb.WriteString(`<path fill="none" stroke="` + color + `" stroke-width="1" d="`)
		for k, snap := range snaps {
			if i >= snap.Len() {
				break
			}
			x, y := project(snap.R[i])
			if k == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	last := snaps[len(snaps)-1]
	sb.WriteString("<g>\n")
	for i, p := range last.R {
		x, y := project(p)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="2" fill="%s"/>
`, x, y, trailColors[i%len(trailColors)])
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
