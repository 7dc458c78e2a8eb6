// Package optim sweeps evaluator parameters against a direct-sum reference.
package optim

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/quadtree"
)

// Sample is one force pass of a grid search.
type Sample struct {
	Theta     float64
	Threads   int
	Wall      time.Duration
	Stats     physics.Stats
	MaxRelErr float64
}

// GridSearch evaluates every (theta, threads) pair on one tree.
type GridSearch struct {
	thetas  []float64
	threads []int
}

func NewGridSearch(thetas []float64, threads []int) *GridSearch {
	return &GridSearch{thetas: thetas, threads: threads}
}

// Search runs one force pass per pair on a fresh copy of base and compares
// the forces with exact. cfg supplies G and epsilon.
func (g *GridSearch) Search(ctx context.Context, base *dynamo.Scenario, tree *quadtree.Tree, cfg physics.Config, exact []r2.Vec) ([]Sample, error) {
	if len(exact) != base.Len() {
		return nil, fmt.Errorf("optim: %d reference forces for %d bodies: %w", len(exact), base.Len(), dynamo.ErrLengthMismatch)
	}

	samples := make([]Sample, 0, len(g.thetas)*len(g.threads))
	for _, theta := range g.thetas {
		for _, threads := range g.threads {
			if err := ctx.Err(); err != nil {
				return samples, err
			}

			pc := cfg
			pc.Theta = theta
			pc.Threads = threads
			if err := pc.Validate(); err != nil {
				return samples, fmt.Errorf("optim: %w", err)
			}

			s := base.Clone()
			start := time.Now()
			stats := physics.NewEvaluator(pc).Evaluate(s, tree, 0)
			samples = append(samples, Sample{
				Theta:     theta,
				Threads:   threads,
				Wall:      time.Since(start),
				Stats:     stats,
				MaxRelErr: physics.MaxRelativeError(s.F, exact),
			})
		}
	}
	return samples, nil
}

// BestTheta returns the sample with the fewest interactions whose error
// stays within tolerance, preferring the faster run on ties.
func BestTheta(samples []Sample, tolerance float64) (Sample, bool) {
	var best Sample
	found := false
	for _, s := range samples {
		if s.MaxRelErr > tolerance {
			continue
		}
		switch {
		case !found:
		case s.Stats.Interactions() < best.Stats.Interactions():
		case s.Stats.Interactions() == best.Stats.Interactions() && s.Wall < best.Wall:
		default:
			continue
		}
		best, found = s, true
	}
	return best, found
}
