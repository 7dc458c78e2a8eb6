package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// GravitationalConstant is the SI value used when no other G is configured.
const GravitationalConstant = 6.67430e-11

// PairForce returns the force body j exerts on body i. The squared distance
// is floored at eps so coincident bodies produce a finite result.
func PairForce(g, mi, mj float64, ri, rj r2.Vec, eps float64) r2.Vec {
	dr := r2.Sub(rj, ri)
	distSq := math.Max(r2.Norm2(dr), eps)
	return r2.Scale(g*mi*mj/(distSq*math.Sqrt(distSq)), dr)
}

// DirectForces sums every pair exactly and returns the net force on each
// body. s is not modified.
func DirectForces(s *dynamo.Scenario, g, eps float64, threads int) []r2.Vec {
	n := s.Len()
	forces := make([]r2.Vec, n)
	dynamo.ParallelFor(n, threads, func(_, start, end int) {
		for i := start; i < end; i++ {
			var f r2.Vec
			ri, mi := s.R[i], s.M[i]
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				f = r2.Add(f, PairForce(g, mi, s.M[j], ri, s.R[j], eps))
			}
			forces[i] = f
		}
	})
	return forces
}

// MaxRelativeError compares approx against exact and returns the largest
// per-body error |approx-exact| normalised by the mean exact magnitude.
func MaxRelativeError(approx, exact []r2.Vec) float64 {
	if len(exact) == 0 {
		return 0
	}
	var mean float64
	for _, f := range exact {
		mean += r2.Norm(f)
	}
	mean /= float64(len(exact))
	if mean == 0 {
		return 0
	}
	var worst float64
	for i := range exact {
		worst = math.Max(worst, r2.Norm(r2.Sub(approx[i], exact[i])))
	}
	return worst / mean
}
