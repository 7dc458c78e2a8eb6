package integrators

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// Euler drifts positions by the velocities already kicked during force
// evaluation. Together they form a semi-implicit Euler step.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

// Advance applies r += v*dt to every body.
func (e *Euler) Advance(s *dynamo.Scenario, dt float64) {
	for i := range s.R {
		s.R[i] = r2.Add(s.R[i], r2.Scale(dt, s.V[i]))
	}
}
