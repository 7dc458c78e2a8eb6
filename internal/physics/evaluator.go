package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/quadtree"
)

// Config holds the force-evaluation constants.
type Config struct {
	// G is the gravitational constant.
	G float64
	// Theta is the opening angle; 0 disables approximation.
	Theta float64
	// Epsilon floors squared distances in the force law and the
	// opening-angle test.
	Epsilon float64
	// Threads is the number of workers; values below 1 run single-threaded.
	Threads int
}

func DefaultConfig() Config {
	return Config{
		G:       GravitationalConstant,
		Theta:   0.5,
		Epsilon: 1e-6,
		Threads: 1,
	}
}

func (c Config) Validate() error {
	if math.IsNaN(c.G) || math.IsInf(c.G, 0) {
		return fmt.Errorf("gravitational constant must be finite, got %g: %w", c.G, dynamo.ErrInvalidConfig)
	}
	if !(c.Theta >= 0) || math.IsInf(c.Theta, 0) {
		return fmt.Errorf("theta must be finite and non-negative, got %g: %w", c.Theta, dynamo.ErrInvalidConfig)
	}
	if !(c.Epsilon > 0) || math.IsInf(c.Epsilon, 0) {
		return fmt.Errorf("epsilon must be finite and positive, got %g: %w", c.Epsilon, dynamo.ErrInvalidConfig)
	}
	return nil
}

// Stats counts the work done by one evaluation.
type Stats struct {
	PairInteractions   int64
	NodeApproximations int64
	NodesVisited       int64
}

func (s *Stats) Add(o Stats) {
	s.PairInteractions += o.PairInteractions
	s.NodeApproximations += o.NodeApproximations
	s.NodesVisited += o.NodesVisited
}

// Interactions is the number of force terms applied, exact or approximate.
func (s Stats) Interactions() int64 {
	return s.PairInteractions + s.NodeApproximations
}

// Evaluator computes per-body forces over a quadtree. It is safe to reuse
// across steps but not to call Evaluate concurrently on the same scenario.
type Evaluator struct {
	cfg    Config
	stacks *stackPool
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg, stacks: newStackPool()}
}

func (e *Evaluator) Config() Config { return e.cfg }

// Workers is the effective worker count.
func (e *Evaluator) Workers() int {
	return max(e.cfg.Threads, 1)
}

// Evaluate resets and recomputes F for every body of s and kicks V by
// F/m*dt, one contribution at a time. tree must have been built from s.
// Workers own disjoint index ranges and join before Evaluate returns.
func (e *Evaluator) Evaluate(s *dynamo.Scenario, tree *quadtree.Tree, dt float64) Stats {
	workers := e.Workers()
	perWorker := make([]Stats, workers)

	dynamo.ParallelFor(s.Len(), workers, func(w, start, end int) {
		stack := e.stacks.Get()
		defer e.stacks.Put(stack)

		st := &perWorker[w]
		for i := start; i < end; i++ {
			e.accumulate(s, tree, i, dt, stack, st)
		}
	})

	var total Stats
	for _, st := range perWorker {
		total.Add(st)
	}
	return total
}

func (e *Evaluator) accumulate(s *dynamo.Scenario, tree *quadtree.Tree, i int, dt float64, stack *[]int32, st *Stats) {
	g, theta, eps := e.cfg.G, e.cfg.Theta, e.cfg.Epsilon
	ri, mi := s.R[i], s.M[i]
	kick := dt / mi

	var force r2.Vec
	vel := s.V[i]
	apply := func(rj r2.Vec, mj float64) {
		f := PairForce(g, mi, mj, ri, rj, eps)
		force = r2.Add(force, f)
		vel = r2.Add(vel, r2.Scale(kick, f))
	}

	n := s.Len()
	*stack = append((*stack)[:0], 0)
	for len(*stack) > 0 {
		top := len(*stack) - 1
		idx := (*stack)[top]
		*stack = (*stack)[:top]

		node := tree.Node(int(idx))
		st.NodesVisited++

		switch {
		case len(node.Bodies) > 0:
			for _, j := range node.Bodies {
				if j == i {
					continue
				}
				if j < 0 || j >= n {
					panic(fmt.Sprintf("physics: leaf holds body index %d, scenario has %d bodies", j, n))
				}
				apply(s.R[j], s.M[j])
				st.PairInteractions++
			}
		case node.Mass == 0:
			// empty root
		case !node.Contains(ri) && node.FarEnough(ri, theta, eps):
			apply(node.CenterOfMass, node.Mass)
			st.NodeApproximations++
		default:
			for q := quadtree.NW; q <= quadtree.SE; q++ {
				if c, ok := node.Child(q); ok {
					*stack = append(*stack, int32(c))
				}
			}
		}
	}

	s.F[i] = force
	s.V[i] = vel
}
