package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// Momentum returns the total linear momentum sum(m*v).
func Momentum(snap dynamo.Snapshot) r2.Vec {
	var p r2.Vec
	for i, v := range snap.V {
		p = r2.Add(p, r2.Scale(snap.M[i], v))
	}
	return p
}

// AngularMomentum returns sum(m * (r x v)) about the origin.
func AngularMomentum(snap dynamo.Snapshot) float64 {
	var l float64
	for i := range snap.R {
		l += snap.M[i] * r2.Cross(snap.R[i], snap.V[i])
	}
	return l
}

// CenterOfMass returns the mass-weighted mean position.
func CenterOfMass(snap dynamo.Snapshot) r2.Vec {
	var acc r2.Vec
	var total float64
	for i, r := range snap.R {
		acc = r2.Add(acc, r2.Scale(snap.M[i], r))
		total += snap.M[i]
	}
	if total == 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/total, acc)
}

// MomentumDrift tracks the largest |P-P0| seen.
type MomentumDrift struct {
	name     string
	initial  r2.Vec
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(snap dynamo.Snapshot) {
	p := Momentum(snap)
	if m.samples == 0 {
		m.initial = p
	}
	m.samples++
	m.maxDrift = math.Max(m.maxDrift, r2.Norm(r2.Sub(p, m.initial)))
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = r2.Vec{}
	m.maxDrift = 0
	m.samples = 0
}

// MaxSpeed is the fastest body speed seen across all observations.
type MaxSpeed struct {
	name string
	max  float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{name: "max_speed"}
}

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(snap dynamo.Snapshot) {
	for _, v := range snap.V {
		m.max = math.Max(m.max, r2.Norm(v))
	}
}

func (m *MaxSpeed) Value() float64 { return m.max }

func (m *MaxSpeed) Reset() { m.max = 0 }
