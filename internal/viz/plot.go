package viz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
)

// SeriesNames lists the fixed series; "x<i>" and "y<i>" select the
// coordinate of body i.
var SeriesNames = []string{"kinetic", "speed", "momentum", "angular"}

// Series extracts one value per snapshot.
func Series(snaps []dynamo.Snapshot, name string) ([]float64, error) {
	value, err := seriesFunc(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(snaps))
	for i, snap := range snaps {
		v, err := value(snap)
		if err != nil {
			return nil, fmt.Errorf("viz: step %d: %w", snap.Step, err)
		}
		out[i] = v
	}
	return out, nil
}

func seriesFunc(name string) (func(dynamo.Snapshot) (float64, error), error) {
	switch name {
	case "kinetic":
		return func(s dynamo.Snapshot) (float64, error) { return metrics.KineticEnergy(s), nil }, nil
	case "speed":
		return func(s dynamo.Snapshot) (float64, error) {
			var top float64
			for _, v := range s.V {
				top = max(top, r2.Norm(v))
			}
			return top, nil
		}, nil
	case "momentum":
		return func(s dynamo.Snapshot) (float64, error) { return r2.Norm(metrics.Momentum(s)), nil }, nil
	case "angular":
		return func(s dynamo.Snapshot) (float64, error) { return metrics.AngularMomentum(s), nil }, nil
	}

	if len(name) > 1 && (name[0] == 'x' || name[0] == 'y') {
		body, err := strconv.Atoi(name[1:])
		if err == nil && body >= 0 {
			axis := name[0]
			return func(s dynamo.Snapshot) (float64, error) {
				if body >= s.Len() {
					return 0, fmt.Errorf("body %d out of range (%d bodies)", body, s.Len())
				}
				if axis == 'x' {
					return s.R[body].X, nil
				}
				return s.R[body].Y, nil
			}, nil
		}
	}
	return nil, fmt.Errorf("viz: unknown series %q (want %s, x<i> or y<i>)", name, strings.Join(SeriesNames, ", "))
}

// Plot draws values as an asciigraph line chart.
func Plot(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return Subtle.Render("(no data)")
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
