package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// KineticEnergy returns sum(m|v|^2)/2.
func KineticEnergy(snap dynamo.Snapshot) float64 {
	var ke float64
	for i, v := range snap.V {
		ke += 0.5 * snap.M[i] * r2.Norm2(v)
	}
	return ke
}

// PotentialEnergy returns the pairwise gravitational potential with
// squared distances floored at eps, consistent with the force law.
func PotentialEnergy(snap dynamo.Snapshot, g, eps float64) float64 {
	var pe float64
	for i := range snap.R {
		for j := i + 1; j < len(snap.R); j++ {
			d := math.Sqrt(math.Max(r2.Norm2(r2.Sub(snap.R[j], snap.R[i])), eps))
			pe -= g * snap.M[i] * snap.M[j] / d
		}
	}
	return pe
}

func TotalEnergy(snap dynamo.Snapshot, g, eps float64) float64 {
	return KineticEnergy(snap) + PotentialEnergy(snap, g, eps)
}

type Kinetic struct {
	name  string
	value float64
}

// NewKinetic reports the kinetic energy of the most recent snapshot.
func NewKinetic() *Kinetic {
	return &Kinetic{name: "kinetic_energy"}
}

func (k *Kinetic) Name() string { return k.name }

func (k *Kinetic) Observe(snap dynamo.Snapshot) {
	k.value = KineticEnergy(snap)
}

func (k *Kinetic) Value() float64 { return k.value }

func (k *Kinetic) Reset() { k.value = 0 }

// EnergyDrift tracks the largest |E-E0|/|E0| seen since the first
// observation.
type EnergyDrift struct {
	name          string
	g, eps        float64
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(g, eps float64) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		g:    g,
		eps:  eps,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(snap dynamo.Snapshot) {
	energy := TotalEnergy(snap, e.g, e.eps)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

// Current is the total energy at the latest observation.
func (e *EnergyDrift) Current() float64 {
	return e.currentEnergy
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
