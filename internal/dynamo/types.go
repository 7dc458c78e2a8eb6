package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Scenario holds the state of every body in one run. The four slices are
// indexed by body and always share a length.
type Scenario struct {
	M []float64
	R []r2.Vec
	V []r2.Vec
	// F is the last net force computed for each body. It is diagnostic only.
	F []r2.Vec
}

// NewScenario copies the initial conditions into a fresh Scenario and
// validates it. Forces start at zero.
func NewScenario(m []float64, r, v []r2.Vec) (*Scenario, error) {
	s := &Scenario{
		M: append([]float64(nil), m...),
		R: append([]r2.Vec(nil), r...),
		V: append([]r2.Vec(nil), v...),
		F: make([]r2.Vec, len(m)),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scenario) Len() int { return len(s.M) }

// Validate reports the first malformed body. The returned error matches
// ErrMalformedScenario plus a more specific sentinel.
func (s *Scenario) Validate() error {
	n := len(s.M)
	if len(s.R) != n || len(s.V) != n || len(s.F) != n {
		return fmt.Errorf("%w: %w: m=%d r=%d v=%d f=%d",
			ErrMalformedScenario, ErrLengthMismatch, n, len(s.R), len(s.V), len(s.F))
	}
	for i := 0; i < n; i++ {
		m := s.M[i]
		if math.IsInf(m, 0) {
			return &BodyError{Index: i, Field: "mass", Wrapped: ErrNonFinite}
		}
		if !(m > 0) {
			return &BodyError{Index: i, Field: "mass", Wrapped: ErrNonPositiveMass}
		}
		if !finite(s.R[i]) {
			return &BodyError{Index: i, Field: "position", Wrapped: ErrNonFinite}
		}
		if !finite(s.V[i]) {
			return &BodyError{Index: i, Field: "velocity", Wrapped: ErrNonFinite}
		}
	}
	return nil
}

func (s *Scenario) Clone() *Scenario {
	return &Scenario{
		M: append([]float64(nil), s.M...),
		R: append([]r2.Vec(nil), s.R...),
		V: append([]r2.Vec(nil), s.V...),
		F: append([]r2.Vec(nil), s.F...),
	}
}

func (s *Scenario) TotalMass() float64 {
	total := 0.0
	for _, m := range s.M {
		total += m
	}
	return total
}

// Snapshot copies positions, velocities and forces. Masses are constant for
// a run and are shared, not copied.
func (s *Scenario) Snapshot(step int, t float64) Snapshot {
	return Snapshot{
		Step: step,
		Time: t,
		M:    s.M,
		R:    append([]r2.Vec(nil), s.R...),
		V:    append([]r2.Vec(nil), s.V...),
		F:    append([]r2.Vec(nil), s.F...),
	}
}

// Snapshot is the read-only view handed to recorders once per step.
type Snapshot struct {
	Step int
	Time float64
	M    []float64
	R    []r2.Vec
	V    []r2.Vec
	F    []r2.Vec
}

func (s Snapshot) Len() int { return len(s.R) }

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
