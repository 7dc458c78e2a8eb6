// Package viz renders recorded runs for the terminal and as SVG.
//
//   - [Canvas]: Braille-based pixel canvas; [Canvas.DrawBodies] and
//     [Canvas.DrawTrails] project body positions through a [Viewport]
//   - [Plot]: asciigraph chart of a [Series] extracted from snapshots
//   - [TrajectoriesSVG]: one polyline per body
//   - [Summary]: styled key/value block for run reports
package viz
